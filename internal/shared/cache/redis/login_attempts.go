// Package redis 登录失败计数
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"erasmus-atlas/internal/shared/cache"
)

// LoginFailures 返回当前窗口内的失败次数
func (s *Store) LoginFailures(ctx context.Context, email string) (int, error) {
	n, err := s.client.Get(ctx, cache.LoginFailuresKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RecordLoginFailure INCR 计数，首次失败时设置过期时间（窗口固定，不随后续失败顺延）
func (s *Store) RecordLoginFailure(ctx context.Context, email string, window time.Duration) (int, error) {
	key := cache.LoginFailuresKey(email)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

// ResetLoginFailures 删除计数
func (s *Store) ResetLoginFailures(ctx context.Context, email string) error {
	return s.client.Del(ctx, cache.LoginFailuresKey(email)).Err()
}

var _ cache.Cache = (*Store)(nil)
