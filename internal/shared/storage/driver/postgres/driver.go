// Package postgres PostgreSQL/PostGIS 数据库驱动
//
// 提供连接池管理和方言实现。
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"erasmus-atlas/deployments"
	"erasmus-atlas/internal/shared/storage/dbutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation PostgreSQL 唯一约束冲突错误码
const uniqueViolation = "23505"

// Dialect PostgreSQL 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverPostgres
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.RebindToPositional(query)
}

func (d *Dialect) UpsertConflict(conflictColumns string, updateExprs []string) string {
	return dbutil.UpsertClause(conflictColumns, updateExprs)
}

func (d *Dialect) MakePoint(lngParam, latParam string) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s::float8, %s::float8), 4326)", lngParam, latParam)
}

func (d *Dialect) PointLng(col string) string {
	return fmt.Sprintf("ST_X(%s)", col)
}

func (d *Dialect) PointLat(col string) string {
	return fmt.Sprintf("ST_Y(%s)", col)
}

func (d *Dialect) PointInBox(col, minLng, minLat, maxLng, maxLat string) string {
	return fmt.Sprintf("%s && ST_MakeEnvelope(%s::float8, %s::float8, %s::float8, %s::float8, 4326)",
		col, minLng, minLat, maxLng, maxLat)
}

func (d *Dialect) TopicsValue(param string) string {
	return fmt.Sprintf("ARRAY(SELECT json_array_elements_text(%s::json))", param)
}

func (d *Dialect) TopicsJSON(col string) string {
	return fmt.Sprintf("array_to_json(%s)::text", col)
}

func (d *Dialect) TopicContains(col, param string) string {
	return fmt.Sprintf("%s::text = ANY(%s)", param, col)
}

func (d *Dialect) TopicUnnest(col, alias string) (string, string) {
	return fmt.Sprintf("CROSS JOIN LATERAL unnest(%s) AS %s(topic)", col, alias), alias + ".topic"
}

func (d *Dialect) MonthBucket(col string) string {
	return fmt.Sprintf("to_char(date_trunc('month', %s), 'YYYY-MM')", col)
}

func (d *Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// AutoMigrate 执行 deployments/init-db.sql（全部语句幂等）
func (d *Dialect) AutoMigrate(db *sql.DB) error {
	if _, err := db.Exec(deployments.InitDBSQL); err != nil {
		return fmt.Errorf("apply init-db.sql: %w", err)
	}
	return nil
}

// Open 创建 PostgreSQL 连接池并包装为 *sql.DB
//
// 关闭返回的 *sql.DB 不会关闭底层连接池，调用方需在退出时调用 closePool。
func Open(ctx context.Context, databaseURL string, maxConns int) (db *sql.DB, closePool func(), err error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return stdlib.OpenDBFromPool(pool), pool.Close, nil
}

// NewDialect 创建 PostgreSQL 方言
func NewDialect() *Dialect {
	return &Dialect{}
}
