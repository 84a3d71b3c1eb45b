// Package deployments 嵌入部署相关文件到二进制
//
// 包含：
//   - init-db.sql: PostgreSQL/PostGIS 全量建表脚本（幂等）
//   - seed/cities.yaml: 城市目录种子数据
package deployments

import (
	_ "embed"
)

// InitDBSQL PostgreSQL 全量初始化脚本
//
//go:embed init-db.sql
var InitDBSQL string

// SeedCitiesYAML 城市目录种子数据
//
//go:embed seed/cities.yaml
var SeedCitiesYAML []byte
