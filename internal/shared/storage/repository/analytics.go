package repository

import (
	"context"
	"strings"
	"time"

	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage/dbutil"
)

// countryScope 国家过滤：通过 city_id 关联 cities，country 为空时不关联
func countryScope(q *dbutil.Query, country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return ""
	}
	q.Where("c.country_iso2 = " + q.Arg(country))
	return ` JOIN cities c ON c.id = p.city_id`
}

// CountPostsByCountry 帖子总数，country 为空时统计全部
func (r *Store) CountPostsByCountry(ctx context.Context, country string) (n int, err error) {
	defer r.track("count", "posts", time.Now(), &err)

	q := dbutil.NewQuery()
	join := countryScope(q, country)
	query, args := q.Build(r.dialect, `SELECT COUNT(*) FROM posts p`+join+q.WhereClause())
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// TopicHistogram 话题计数，按计数倒序、话题名升序
func (r *Store) TopicHistogram(ctx context.Context, country string) (hist []model.TopicCount, err error) {
	defer r.track("aggregate", "posts", time.Now(), &err)

	q := dbutil.NewQuery()
	join := countryScope(q, country)
	unnest, topic := r.dialect.TopicUnnest("p.topics", "t")
	query, args := q.Build(r.dialect,
		`SELECT `+topic+`, COUNT(*) AS n FROM posts p`+join+` `+unnest+q.WhereClause()+
			` GROUP BY `+topic+` ORDER BY n DESC, `+topic+` ASC`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hist = []model.TopicCount{}
	for rows.Next() {
		var tc model.TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, err
		}
		hist = append(hist, tc)
	}
	return hist, rows.Err()
}

// MonthlySeries 月度帖子数，按月份升序
func (r *Store) MonthlySeries(ctx context.Context, country string) (series []model.MonthCount, err error) {
	defer r.track("aggregate", "posts", time.Now(), &err)

	q := dbutil.NewQuery()
	join := countryScope(q, country)
	month := r.dialect.MonthBucket("p.created_at")
	query, args := q.Build(r.dialect,
		`SELECT `+month+` AS month, COUNT(*) AS n FROM posts p`+join+q.WhereClause()+
			` GROUP BY 1 ORDER BY 1 ASC`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series = []model.MonthCount{}
	for rows.Next() {
		var mc model.MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		series = append(series, mc)
	}
	return series, rows.Err()
}
