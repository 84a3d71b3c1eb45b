package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erasmus-atlas/internal/shared/cache"
	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage"
)

// fakeUserStore 内存用户存储
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User // by email
	seq   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (s *fakeUserStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.users[email]; ok {
		return storage.ErrDuplicate
	}
	s.seq++
	u.ID = fmt.Sprintf("user-%d", s.seq)
	u.Email = email
	u.CreatedAt = time.Now()
	s.users[email] = u
	return nil
}

func (s *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[strings.ToLower(email)], nil
}

func (s *fakeUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

var testCfg = Config{JWTSecret: "test-secret", TokenTTL: 7 * 24 * time.Hour}

func newTestMux(store UserStore, attempts cache.LoginAttemptCache, throttle ThrottleConfig) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store, testCfg, attempts, throttle).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func decodeAuth(t *testing.T, w *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeUserStore()
	mux := newTestMux(store, nil, ThrottleConfig{})

	w := doJSON(t, mux, "POST", "/auth/register",
		map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decodeAuth(t, w)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.NotContains(t, w.Body.String(), "password")

	claims, err := ParseToken(testCfg, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)

	w = doJSON(t, mux, "POST", "/auth/login",
		map[string]string{"email": "ana@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeAuth(t, w)
	assert.Equal(t, reg.User.ID, login.User.ID)

	w = doJSON(t, mux, "GET", "/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.PublicUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "Ana", me.Name)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mux := newTestMux(newFakeUserStore(), nil, ThrottleConfig{})
	body := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret123"}

	require.Equal(t, http.StatusCreated, doJSON(t, mux, "POST", "/auth/register", body, "").Code)
	w := doJSON(t, mux, "POST", "/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"email already registered"}`, w.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	mux := newTestMux(newFakeUserStore(), nil, ThrottleConfig{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"blank name", map[string]string{"name": " ", "email": "a@example.com", "password": "secret123"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "secret123"}},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, "POST", "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "details")
		})
	}

	r := httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFailures(t *testing.T) {
	store := newFakeUserStore()
	mux := newTestMux(store, nil, ThrottleConfig{})
	require.Equal(t, http.StatusCreated, doJSON(t, mux, "POST", "/auth/register",
		map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret123"}, "").Code)

	// 种子用户：未设置密码
	require.NoError(t, store.CreateUser(context.Background(), &model.User{Name: "Seed", Email: "seed@example.com"}))

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "ana@example.com", "nope-nope"},
		{"unknown email", "ghost@example.com", "secret123"},
		{"no password set", "seed@example.com", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, "POST", "/auth/login", map[string]string{"email": tt.email, "password": tt.pass}, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestLoginThrottle(t *testing.T) {
	store := newFakeUserStore()
	attempts := cache.NewMemoryCache()
	mux := newTestMux(store, attempts, ThrottleConfig{MaxFailures: 3, Window: time.Minute})
	require.Equal(t, http.StatusCreated, doJSON(t, mux, "POST", "/auth/register",
		map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret123"}, "").Code)

	bad := map[string]string{"email": "ana@example.com", "password": "wrong-pass"}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, doJSON(t, mux, "POST", "/auth/login", bad, "").Code)
	}
	// 达到上限后连正确密码也被拒绝
	good := map[string]string{"email": "ana@example.com", "password": "secret123"}
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, mux, "POST", "/auth/login", good, "").Code)

	require.NoError(t, attempts.ResetLoginFailures(context.Background(), "ana@example.com"))
	assert.Equal(t, http.StatusOK, doJSON(t, mux, "POST", "/auth/login", good, "").Code)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	store := newFakeUserStore()
	attempts := cache.NewMemoryCache()
	mux := newTestMux(store, attempts, ThrottleConfig{MaxFailures: 3, Window: time.Minute})
	require.Equal(t, http.StatusCreated, doJSON(t, mux, "POST", "/auth/register",
		map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret123"}, "").Code)

	doJSON(t, mux, "POST", "/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong-pass"}, "")
	require.Equal(t, http.StatusOK, doJSON(t, mux, "POST", "/auth/login",
		map[string]string{"email": "ana@example.com", "password": "secret123"}, "").Code)

	n, err := attempts.LoginFailures(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMeRequiresToken(t *testing.T) {
	mux := newTestMux(newFakeUserStore(), nil, ThrottleConfig{})
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, mux, "GET", "/auth/me", nil, "").Code)

	// 令牌合法但用户已不存在
	token, err := GenerateToken(testCfg, "ghost", "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, doJSON(t, mux, "GET", "/auth/me", nil, token).Code)
}

func TestRateLimiterWrapsAuthRoutes(t *testing.T) {
	h := NewHandler(newFakeUserStore(), testCfg, nil, ThrottleConfig{})
	h.SetRateLimiter(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := doJSON(t, mux, "POST", "/auth/login", map[string]string{"email": "a@example.com", "password": "x"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
