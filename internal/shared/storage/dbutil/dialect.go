// Package dbutil 提供数据库方言抽象和工具函数
//
// 通过 Dialect 接口屏蔽不同数据库（PostgreSQL/PostGIS、SQLite）的 SQL 差异，
// 使 repository 层可以编写与数据库无关的业务逻辑。
package dbutil

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// DriverType 数据库驱动类型
type DriverType string

const (
	DriverPostgres DriverType = "postgres"
	DriverSQLite   DriverType = "sqlite"
)

// Dialect 数据库方言接口
//
// 不同数据库的 SQL 语法差异通过该接口屏蔽：
//   - 占位符：PostgreSQL 用 $1, $2；SQLite 用 ?1, ?2
//   - 空间类型：PostgreSQL 用 PostGIS geometry(Point,4326)；SQLite 用 JSON 文本 [lng,lat]
//   - 话题列表：PostgreSQL 用 text[]；SQLite 用 JSON 文本数组
//
// 参数统一用 PostgreSQL 风格 ($N) 传入，各方法返回的片段由调用方拼接后再 Rebind。
type Dialect interface {
	// DriverType 返回驱动类型标识
	DriverType() DriverType

	// Rebind 将 PostgreSQL 风格的占位符 ($1, $2, ...) 转换为目标数据库的占位符格式
	Rebind(query string) string

	// UpsertConflict 生成 UPSERT 的冲突处理子句
	// conflictColumns: 冲突检测列，如 "name, country_iso2"
	// updateExprs: 更新表达式列表，如 "centroid = EXCLUDED.centroid"
	UpsertConflict(conflictColumns string, updateExprs []string) string

	// MakePoint 由经度、纬度参数构造点
	MakePoint(lngParam, latParam string) string
	// PointLng 返回点列的经度表达式（列为 NULL 时为 NULL）
	PointLng(col string) string
	// PointLat 返回点列的纬度表达式（列为 NULL 时为 NULL）
	PointLat(col string) string
	// PointInBox 点列落在包围盒内的条件
	PointInBox(col, minLng, minLat, maxLng, maxLat string) string

	// TopicsValue 将 JSON 数组文本参数转换为话题列的存储值
	TopicsValue(param string) string
	// TopicsJSON 返回话题列的 JSON 数组文本表达式
	TopicsJSON(col string) string
	// TopicContains 话题列包含参数值（区分大小写）
	TopicContains(col, param string) string
	// TopicUnnest 返回展开话题列的 JOIN 子句和展开后的话题表达式
	TopicUnnest(col, alias string) (join string, topic string)

	// MonthBucket 返回时间列的 "YYYY-MM" 月份表达式
	MonthBucket(col string) string

	// IsUniqueViolation 判断错误是否为唯一约束冲突
	IsUniqueViolation(err error) bool

	// AutoMigrate 自动创建/迁移数据库 Schema
	AutoMigrate(db *sql.DB) error
}

// pgPlaceholderRe 匹配 PostgreSQL 风格占位符 $1, $2, ...
var pgPlaceholderRe = regexp.MustCompile(`\$(\d+)`)

// pgCastRe 匹配 PostgreSQL 类型转换 ::type
var pgCastRe = regexp.MustCompile(`::(\w+)`)

// RebindToPositional 保持 $N 占位符不变（PostgreSQL 专用）
func RebindToPositional(query string) string {
	return query
}

// RebindToNumbered 将 $N 占位符转换为 ?N（SQLite 专用）
// 保留编号，同一参数可在语句中多次引用
func RebindToNumbered(query string) string {
	return pgPlaceholderRe.ReplaceAllString(query, "?$1")
}

// StripPgCasts 去除 PostgreSQL 类型转换 (::varchar, ::text 等)
func StripPgCasts(query string) string {
	return pgCastRe.ReplaceAllString(query, "")
}

// UpsertClause 生成 ON CONFLICT ... DO UPDATE SET 子句（PostgreSQL 与 SQLite 语法相同）
func UpsertClause(conflictColumns string, updateExprs []string) string {
	if len(updateExprs) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", conflictColumns)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflictColumns, strings.Join(updateExprs, ", "))
}
