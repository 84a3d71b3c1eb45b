// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 各驱动实现负责将底层错误转换为这些领域错误。
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 实体不存在
	// 替代 sql.ErrNoRows
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（如重复邮箱）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrNoChanges 部分更新未提供任何字段
	ErrNoChanges = errors.New("no fields to update")

	// ErrCityNotFound 引用或按名称查找的城市不存在
	ErrCityNotFound = fmt.Errorf("city not found: %w", ErrNotFound)
)
