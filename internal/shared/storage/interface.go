// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在 repository/ 子包中，通过 dbutil.Dialect 支持 PostgreSQL/PostGIS 与 SQLite
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"

	"erasmus-atlas/internal/shared/model"
)

// UserStore 用户存储
type UserStore interface {
	// CreateUser 创建用户，邮箱重复时返回 ErrDuplicate
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByEmail 不存在时返回 (nil, nil)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUserByID 不存在时返回 (nil, nil)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
}

// CityStore 城市目录
type CityStore interface {
	ListCities(ctx context.Context, limit int) ([]*model.City, error)
	// GetCity 不存在时返回 (nil, nil)
	GetCity(ctx context.Context, id string) (*model.City, error)
	// FindCity 按名称（不区分大小写）和国家代码查找，不存在时返回 (nil, nil)
	FindCity(ctx context.Context, name, countryISO2 string) (*model.City, error)
	UpsertCity(ctx context.Context, city *model.City) error
}

// PostStore 帖子存储
type PostStore interface {
	// CreatePost 创建帖子，CityID 指向不存在的城市时返回 ErrCityNotFound
	CreatePost(ctx context.Context, in *model.NewPost) (*model.Post, error)
	// ListPosts 按创建时间倒序返回满足过滤条件的帖子
	ListPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error)
	CountPosts(ctx context.Context, filter model.PostFilter) (int, error)
	// GetOwnedPost 仅返回属于 userID 的帖子，不存在时返回 (nil, nil)
	GetOwnedPost(ctx context.Context, userID, id string) (*model.Post, error)
	// UpdatePost 部分更新，帖子不存在或不属于 userID 时返回 ErrNotFound
	UpdatePost(ctx context.Context, userID, id string, patch model.PostPatch) error
	// DeletePost 删除帖子，帖子不存在或不属于 userID 时返回 ErrNotFound
	DeletePost(ctx context.Context, userID, id string) error
	// SetPostImage 设置图片 key，帖子不存在或不属于 userID 时返回 ErrNotFound
	SetPostImage(ctx context.Context, userID, id, imageKey string) error
	// GetPostImageKey 返回已发布帖子的图片 key，帖子不存在、未发布或无图片时返回 ""
	GetPostImageKey(ctx context.Context, id string) (string, error)
}

// AnalyticsStore 统计聚合
// country 为空表示不按国家过滤
type AnalyticsStore interface {
	CountPostsByCountry(ctx context.Context, country string) (int, error)
	TopicHistogram(ctx context.Context, country string) ([]model.TopicCount, error)
	MonthlySeries(ctx context.Context, country string) ([]model.MonthCount, error)
}

// PersistentStore 持久化存储（PostgreSQL/SQLite）
type PersistentStore interface {
	UserStore
	CityStore
	PostStore
	AnalyticsStore

	Ping(ctx context.Context) error
	Close() error
}
