package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"erasmus-atlas/internal/shared/cache"
	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// ThrottleConfig 登录限流：窗口内失败 MaxFailures 次后拒绝，MaxFailures<=0 关闭
type ThrottleConfig struct {
	MaxFailures int
	Window      time.Duration
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store     UserStore
	cfg       Config
	attempts  cache.LoginAttemptCache
	throttle  ThrottleConfig
	rateLimit func(http.Handler) http.Handler
}

// NewHandler 创建认证处理器，attempts 为 nil 时不做登录限流
func NewHandler(store UserStore, cfg Config, attempts cache.LoginAttemptCache, throttle ThrottleConfig) *Handler {
	if attempts == nil {
		attempts = cache.NewNoOpCache()
	}
	return &Handler{store: store, cfg: cfg, attempts: attempts, throttle: throttle}
}

// SetRateLimiter 为注册和登录路由设置按 IP 限流中间件
func (h *Handler) SetRateLimiter(mw func(http.Handler) http.Handler) {
	h.rateLimit = mw
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /auth/register", h.limited(h.Register))
	mux.Handle("POST /auth/login", h.limited(h.Login))
	mux.HandleFunc("GET /auth/me", RequireAuth(h.cfg, h.Me))
}

func (h *Handler) limited(fn http.HandlerFunc) http.Handler {
	if h.rateLimit == nil {
		return fn
	}
	return h.rateLimit(fn)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Name     string `json:"name" validate:"nonblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// 检查邮箱是否已注册
	existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.register] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: &hash,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		// 并发注册时唯一索引兜底
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID, user.Email)
	if err != nil {
		log.Printf("[auth.register] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User registered: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user.Public()})
}

// Login 用户登录
//
// 邮箱不存在、账号未设置密码、密码错误统一返回 401，并计入失败次数。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if h.throttle.MaxFailures > 0 {
		n, err := h.attempts.LoginFailures(ctx, req.Email)
		if err != nil {
			log.Printf("[auth.login] LoginFailures error: %v", err)
		} else if n >= h.throttle.MaxFailures {
			writeError(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
			return
		}
	}

	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("[auth.login] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.PasswordHash == nil || !CheckPassword(req.Password, *user.PasswordHash) {
		h.recordFailure(ctx, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if h.throttle.MaxFailures > 0 {
		if err := h.attempts.ResetLoginFailures(ctx, req.Email); err != nil {
			log.Printf("[auth.login] ResetLoginFailures error: %v", err)
		}
	}

	token, err := GenerateToken(h.cfg, user.ID, user.Email)
	if err != nil {
		log.Printf("[auth.login] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] User logged in: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user.Public()})
}

func (h *Handler) recordFailure(ctx context.Context, email string) {
	if h.throttle.MaxFailures <= 0 {
		return
	}
	n, err := h.attempts.RecordLoginFailure(ctx, email, h.throttle.Window)
	if err != nil {
		log.Printf("[auth.login] RecordLoginFailure error: %v", err)
		return
	}
	if n == h.throttle.MaxFailures {
		log.Printf("[auth] Login throttled for %s after %d failures", email, n)
	}
}

// Me 获取当前用户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		log.Printf("[auth.me] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
