// Package cache 缓存层抽象接口
//
// 提供临时状态的存取能力，当前由 Redis 实现。
// 帖子和城市数据不经过缓存，每次读取都直达数据库。
package cache

import (
	"context"
	"time"
)

// LoginAttemptCache 登录失败计数，用于登录限流
//
// 计数在窗口期内累积，窗口从第一次失败开始计算，过期后自动清零。
type LoginAttemptCache interface {
	// LoginFailures 返回当前窗口内的失败次数
	LoginFailures(ctx context.Context, email string) (int, error)
	// RecordLoginFailure 失败次数加一并返回新值
	RecordLoginFailure(ctx context.Context, email string, window time.Duration) (int, error)
	// ResetLoginFailures 登录成功后清零
	ResetLoginFailures(ctx context.Context, email string) error
}

// Cache 缓存组合接口
type Cache interface {
	LoginAttemptCache
	Close() error
}
