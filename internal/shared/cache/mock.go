// Package cache 缓存层 mock 实现
package cache

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// NoOpCache - 未配置 Redis 时使用，登录限流失效
// ============================================================================

// NoOpCache 是一个不做任何操作的 Cache 实现
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Close() error { return nil }

func (c *NoOpCache) LoginFailures(ctx context.Context, email string) (int, error) {
	return 0, nil
}
func (c *NoOpCache) RecordLoginFailure(ctx context.Context, email string, window time.Duration) (int, error) {
	return 0, nil
}
func (c *NoOpCache) ResetLoginFailures(ctx context.Context, email string) error {
	return nil
}

// ============================================================================
// MemoryCache - 进程内实现（用于测试）
// ============================================================================

type counter struct {
	n         int
	expiresAt time.Time
}

// MemoryCache 进程内 Cache 实现
type MemoryCache struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryCache 创建 MemoryCache 实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{counters: make(map[string]*counter), now: time.Now}
}

func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) LoginFailures(ctx context.Context, email string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct := c.live(LoginFailuresKey(email)); ct != nil {
		return ct.n, nil
	}
	return 0, nil
}

func (c *MemoryCache) RecordLoginFailure(ctx context.Context, email string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := LoginFailuresKey(email)
	ct := c.live(key)
	if ct == nil {
		ct = &counter{expiresAt: c.now().Add(window)}
		c.counters[key] = ct
	}
	ct.n++
	return ct.n, nil
}

func (c *MemoryCache) ResetLoginFailures(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, LoginFailuresKey(email))
	return nil
}

// live 返回未过期的计数器，调用方需持有锁
func (c *MemoryCache) live(key string) *counter {
	ct, ok := c.counters[key]
	if !ok {
		return nil
	}
	if !c.now().Before(ct.expiresAt) {
		delete(c.counters, key)
		return nil
	}
	return ct
}

var (
	_ Cache = (*NoOpCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)
