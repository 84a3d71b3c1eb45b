package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要真实 Redis：REDIS_TEST_URL=redis://localhost:6379/15
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	s, err := NewStoreFromURL(url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoginFailureCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	email := "throttle-test@example.com"
	require.NoError(t, s.ResetLoginFailures(ctx, email))

	n, err := s.RecordLoginFailure(ctx, email, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.RecordLoginFailure(ctx, email, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.LoginFailures(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	ttl, err := s.Client().TTL(ctx, "erasmus:login_failures:"+email).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, s.ResetLoginFailures(ctx, email))
	got, err = s.LoginFailures(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
