package dbutil

import (
	"fmt"
	"strings"
)

// Query 动态 SQL 构建器
//
// 参数统一编号为 $N，条件和赋值表达式由调用方给出，列名/表名不得来自用户输入。
// 最终 SQL 通过 Build 交给方言 Rebind。
type Query struct {
	args  []interface{}
	conds []string
	sets  []string
}

// NewQuery 创建构建器
func NewQuery() *Query {
	return &Query{}
}

// Arg 追加参数并返回其占位符
func (q *Query) Arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// Where 追加 AND 条件
func (q *Query) Where(cond string) *Query {
	q.conds = append(q.conds, cond)
	return q
}

// Set 追加 UPDATE 赋值表达式
func (q *Query) Set(column, expr string) *Query {
	q.sets = append(q.sets, column+" = "+expr)
	return q
}

// WhereClause 返回 " WHERE a AND b"，无条件时返回空字符串
func (q *Query) WhereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// SetClause 返回 "a = $1, b = $2"
func (q *Query) SetClause() string {
	return strings.Join(q.sets, ", ")
}

// Args 返回参数列表
func (q *Query) Args() []interface{} {
	return q.args
}

// Build 用方言转换完整 SQL
func (q *Query) Build(d Dialect, query string) (string, []interface{}) {
	return d.Rebind(query), q.args
}
