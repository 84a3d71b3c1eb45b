// Package sqlite SQLite 数据库驱动
//
// 提供 SQLite 连接管理、方言实现和自动 Schema 迁移。
// 适用于开发和测试场景：点坐标以 JSON 文本 [lng,lat] 存储，话题以 JSON 数组文本存储，
// 空间过滤退化为经纬度范围比较。
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"erasmus-atlas/internal/shared/storage/dbutil"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect SQLite 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverSQLite
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToNumbered(query))
}

func (d *Dialect) UpsertConflict(conflictColumns string, updateExprs []string) string {
	return dbutil.UpsertClause(conflictColumns, updateExprs)
}

func (d *Dialect) MakePoint(lngParam, latParam string) string {
	return fmt.Sprintf("json_array(%s, %s)", lngParam, latParam)
}

func (d *Dialect) PointLng(col string) string {
	return fmt.Sprintf("json_extract(%s, '$[0]')", col)
}

func (d *Dialect) PointLat(col string) string {
	return fmt.Sprintf("json_extract(%s, '$[1]')", col)
}

func (d *Dialect) PointInBox(col, minLng, minLat, maxLng, maxLat string) string {
	return fmt.Sprintf("(%s IS NOT NULL AND %s BETWEEN %s AND %s AND %s BETWEEN %s AND %s)",
		col, d.PointLng(col), minLng, maxLng, d.PointLat(col), minLat, maxLat)
}

func (d *Dialect) TopicsValue(param string) string {
	return fmt.Sprintf("json(%s)", param)
}

func (d *Dialect) TopicsJSON(col string) string {
	return col
}

func (d *Dialect) TopicContains(col, param string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = %s)", col, param)
}

func (d *Dialect) TopicUnnest(col, alias string) (string, string) {
	return fmt.Sprintf("CROSS JOIN json_each(%s) AS %s", col, alias), alias + ".value"
}

func (d *Dialect) MonthBucket(col string) string {
	return fmt.Sprintf("strftime('%%Y-%%m', %s)", col)
}

func (d *Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (d *Dialect) AutoMigrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Open 创建 SQLite 数据库连接
// dsn 示例: "file:atlas.db?cache=shared&mode=rwc" 或 ":memory:"
//
// 连接数固定为 1：PRAGMA 按连接生效，且 ":memory:" 每个连接是独立数据库。
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// SQLite 优化设置
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return db, nil
}

// NewDialect 创建 SQLite 方言
func NewDialect() *Dialect {
	return &Dialect{}
}

// schema SQLite 完整建表语句（等价于 deployments/init-db.sql）
const schema = `
-- users
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    created_at DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
);

-- cities: centroid = json [lng, lat]
CREATE TABLE IF NOT EXISTS cities (
    id VARCHAR(64) PRIMARY KEY,
    name TEXT NOT NULL,
    country_iso2 CHAR(2) NOT NULL,
    centroid TEXT NOT NULL,
    UNIQUE (name, country_iso2)
);

-- posts: topics = json array, geom = json [lng, lat]
CREATE TABLE IF NOT EXISTS posts (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL REFERENCES users(id),
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    topics TEXT NOT NULL DEFAULT '[]',
    image_key TEXT,
    status VARCHAR(16) NOT NULL DEFAULT 'PUBLISHED'
        CHECK (status IN ('PENDING', 'PUBLISHED', 'FLAGGED', 'REMOVED')),
    geom TEXT,
    city_id VARCHAR(64) REFERENCES cities(id),
    created_at DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts (status, created_at);
CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at);
`
