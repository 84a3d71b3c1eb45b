// Package repository 数据库无关的业务逻辑存储层
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
package repository

import (
	"context"
	"database/sql"
	"time"

	"erasmus-atlas/internal/shared/storage"
	"erasmus-atlas/internal/shared/storage/dbutil"
)

var _ storage.PersistentStore = (*Store)(nil)

// QueryObserver 每次存储操作结束后回调，用于查询日志和指标
type QueryObserver func(operation, table string, duration time.Duration, err error)

// Store 通用存储实现
// 实现了 storage.PersistentStore 接口
type Store struct {
	db       *sql.DB
	dialect  dbutil.Dialect
	onClose  func()
	observer QueryObserver
}

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// SetQueryObserver 设置查询观察者，nil 表示关闭
func (s *Store) SetQueryObserver(fn QueryObserver) {
	s.observer = fn
}

// Migrate 创建/迁移 Schema
func (s *Store) Migrate() error {
	return s.dialect.AutoMigrate(s.db)
}

// Ping 检查数据库连通性
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

// DB 返回底层数据库连接（仅用于测试和种子命令）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// track 在 defer 中调用，上报操作耗时和最终错误
func (s *Store) track(operation, table string, start time.Time, err *error) {
	if s.observer == nil {
		return
	}
	var e error
	if err != nil {
		e = *err
	}
	s.observer(operation, table, time.Since(start), e)
}
