package dbutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindToNumbered(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = ?1 AND b = ?2 OR c = ?1",
		RebindToNumbered("SELECT * FROM t WHERE a = $1 AND b = $2 OR c = $1"))
	assert.Equal(t, "LIMIT ?10 OFFSET ?11", RebindToNumbered("LIMIT $10 OFFSET $11"))
	// JSON 路径不是占位符
	assert.Equal(t, "json_extract(geom, '$[0]')", RebindToNumbered("json_extract(geom, '$[0]')"))
}

func TestStripPgCasts(t *testing.T) {
	assert.Equal(t, "UPDATE t SET status = $1 WHERE id = $2",
		StripPgCasts("UPDATE t SET status = $1::varchar WHERE id = $2"))
	assert.Equal(t, "SELECT $1", StripPgCasts("SELECT $1::float8"))
}

func TestUpsertClause(t *testing.T) {
	assert.Equal(t, "ON CONFLICT (email) DO NOTHING", UpsertClause("email", nil))
	assert.Equal(t, "ON CONFLICT (name, country_iso2) DO UPDATE SET a = EXCLUDED.a, b = EXCLUDED.b",
		UpsertClause("name, country_iso2", []string{"a = EXCLUDED.a", "b = EXCLUDED.b"}))
}

func TestQueryBuilder(t *testing.T) {
	q := NewQuery()
	assert.Equal(t, "", q.WhereClause())

	q.Set("title", q.Arg("T"))
	q.Set("city_id", "NULL")
	q.Where("id = " + q.Arg("p1")).Where("user_id = " + q.Arg("u1"))

	assert.Equal(t, "title = $1, city_id = NULL", q.SetClause())
	assert.Equal(t, " WHERE id = $2 AND user_id = $3", q.WhereClause())
	assert.Equal(t, []interface{}{"T", "p1", "u1"}, q.Args())
}
