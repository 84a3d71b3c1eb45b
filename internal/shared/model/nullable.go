package model

import (
	"bytes"
	"encoding/json"
)

// Nullable 区分"未提供"、"显式 null"和"有值"的 JSON 字段
//
// 结构体字段缺失时 UnmarshalJSON 不会被调用，Set 保持 false。
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// NullableOf 构造有值的 Nullable
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// NullOf 构造显式 null 的 Nullable
func NullOf[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
