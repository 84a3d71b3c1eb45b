package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage"
	"erasmus-atlas/internal/shared/storage/dbutil"

	"github.com/google/uuid"
)

// postSelect 帖子查询列，LEFT JOIN cities 带出城市名称和国家
func (r *Store) postSelect() string {
	d := r.dialect
	return `SELECT p.id, p.user_id, p.title, p.body, ` + d.TopicsJSON("p.topics") + `, ` +
		d.PointLat("p.geom") + `, ` + d.PointLng("p.geom") + `,
		p.city_id, c.name, c.country_iso2, p.image_key, p.status, p.created_at
		FROM posts p LEFT JOIN cities c ON c.id = p.city_id`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s rowScanner) (*model.Post, error) {
	p := &model.Post{}
	var (
		topics                    string
		lat, lng                  sql.NullFloat64
		cityID, cityName, country sql.NullString
		imageKey                  sql.NullString
		status                    string
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &topics, &lat, &lng,
		&cityID, &cityName, &country, &imageKey, &status, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Topics = []string{}
	if topics != "" {
		if err := json.Unmarshal([]byte(topics), &p.Topics); err != nil {
			return nil, fmt.Errorf("decode topics of post %s: %w", p.ID, err)
		}
	}
	if p.Topics == nil {
		p.Topics = []string{}
	}
	if lat.Valid && lng.Valid {
		p.Lat, p.Lng = &lat.Float64, &lng.Float64
	}
	p.CityID = nullString(cityID)
	p.CityName = nullString(cityName)
	p.CountryISO2 = nullString(country)
	p.ImageKey = nullString(imageKey)
	p.Status = model.PostStatus(status)
	return p, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := strings.TrimSpace(ns.String)
	return &s
}

// topicsParam 将话题列表编码为 JSON 数组文本参数
func topicsParam(topics []string) (string, error) {
	if topics == nil {
		topics = []string{}
	}
	b, err := json.Marshal(topics)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Store) cityExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM cities WHERE id = $1`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// centroidOf 返回城市中心点子查询
func centroidOf(param string) string {
	return `(SELECT centroid FROM cities WHERE id = ` + param + `)`
}

// CreatePost 创建帖子
//
// 坐标优先级：显式坐标 > CityID 对应城市中心点（同一条 INSERT 内派生）。
// 显式坐标与 CityID 同时提供时，CityID 仍被记录。
func (r *Store) CreatePost(ctx context.Context, in *model.NewPost) (post *model.Post, err error) {
	defer r.track("insert", "posts", time.Now(), &err)

	if in.CityID != nil {
		ok, err := r.cityExists(ctx, *in.CityID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, storage.ErrCityNotFound
		}
	}

	topics, err := topicsParam(in.Topics)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.PostStatusPublished
	}

	// UUIDv7 按时间单调递增，作为同一时刻创建的帖子的排序依据
	uid, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}
	id := uid.String()
	q := dbutil.NewQuery()
	cols := []string{"id", "user_id", "title", "body", "topics", "status"}
	vals := []string{
		q.Arg(id), q.Arg(in.UserID), q.Arg(in.Title), q.Arg(in.Body),
		r.dialect.TopicsValue(q.Arg(topics)), q.Arg(string(status)),
	}
	switch {
	case in.Location != nil:
		cols = append(cols, "geom")
		vals = append(vals, r.dialect.MakePoint(q.Arg(in.Location.Lng), q.Arg(in.Location.Lat)))
	case in.CityID != nil:
		cols = append(cols, "geom")
		vals = append(vals, centroidOf(q.Arg(*in.CityID)))
	}
	if in.CityID != nil {
		cols = append(cols, "city_id")
		vals = append(vals, q.Arg(*in.CityID))
	}

	query, args := q.Build(r.dialect, fmt.Sprintf("INSERT INTO posts (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(vals, ", ")))
	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	return scanPostOrNil(r.db.QueryRowContext(ctx, r.rebind(r.postSelect()+` WHERE p.id = $1`), id))
}

// applyFilter 将过滤条件转换为 WHERE 谓词
func (r *Store) applyFilter(q *dbutil.Query, f model.PostFilter) {
	if f.BBox != nil {
		q.Where(r.dialect.PointInBox("p.geom",
			q.Arg(f.BBox.MinLng), q.Arg(f.BBox.MinLat), q.Arg(f.BBox.MaxLng), q.Arg(f.BBox.MaxLat)))
	}
	if f.Topic != "" {
		q.Where(r.dialect.TopicContains("p.topics", q.Arg(f.Topic)))
	}
	if f.UserID != "" {
		q.Where("p.user_id = " + q.Arg(f.UserID))
	}
	if f.Status != "" {
		q.Where("p.status = " + q.Arg(string(f.Status)))
	}
	if f.LocatedOnly {
		q.Where("p.geom IS NOT NULL")
	}
}

// ListPosts 按创建时间倒序返回帖子
func (r *Store) ListPosts(ctx context.Context, filter model.PostFilter) (posts []*model.Post, err error) {
	defer r.track("select", "posts", time.Now(), &err)

	q := dbutil.NewQuery()
	r.applyFilter(q, filter)
	sqlText := r.postSelect() + q.WhereClause() + ` ORDER BY p.created_at DESC, p.id DESC`
	if filter.Limit > 0 {
		sqlText += ` LIMIT ` + q.Arg(filter.Limit)
		if filter.Offset > 0 {
			sqlText += ` OFFSET ` + q.Arg(filter.Offset)
		}
	}

	query, args := q.Build(r.dialect, sqlText)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts = []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts 统计满足过滤条件的帖子数（忽略分页）
func (r *Store) CountPosts(ctx context.Context, filter model.PostFilter) (n int, err error) {
	defer r.track("count", "posts", time.Now(), &err)

	q := dbutil.NewQuery()
	r.applyFilter(q, filter)
	query, args := q.Build(r.dialect, `SELECT COUNT(*) FROM posts p`+q.WhereClause())
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// GetOwnedPost 查找属于 userID 的帖子
func (r *Store) GetOwnedPost(ctx context.Context, userID, id string) (post *model.Post, err error) {
	defer r.track("select", "posts", time.Now(), &err)

	return scanPostOrNil(r.db.QueryRowContext(ctx, r.rebind(
		r.postSelect()+` WHERE p.id = $1 AND p.user_id = $2`), id, userID))
}

func scanPostOrNil(row *sql.Row) (*model.Post, error) {
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Store) ownsPost(ctx context.Context, userID, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT 1 FROM posts WHERE id = $1 AND user_id = $2`), id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// UpdatePost 部分更新帖子
//
// 检查顺序：归属（ErrNotFound）> 空更新（ErrNoChanges）> 城市存在性（ErrCityNotFound）。
// 设置 CityID 而未提供坐标时，坐标在同一条 UPDATE 中取自城市中心点。
func (r *Store) UpdatePost(ctx context.Context, userID, id string, patch model.PostPatch) (err error) {
	defer r.track("update", "posts", time.Now(), &err)

	owned, err := r.ownsPost(ctx, userID, id)
	if err != nil {
		return err
	}
	if !owned {
		return storage.ErrNotFound
	}
	if patch.IsEmpty() {
		return storage.ErrNoChanges
	}
	if patch.CityID.Valid {
		ok, err := r.cityExists(ctx, patch.CityID.Value)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrCityNotFound
		}
	}

	q := dbutil.NewQuery()
	if patch.Title != nil {
		q.Set("title", q.Arg(*patch.Title))
	}
	if patch.Body != nil {
		q.Set("body", q.Arg(*patch.Body))
	}
	if patch.Topics != nil {
		topics, err := topicsParam(*patch.Topics)
		if err != nil {
			return err
		}
		q.Set("topics", r.dialect.TopicsValue(q.Arg(topics)))
	}
	if patch.Status != nil {
		q.Set("status", q.Arg(string(*patch.Status)))
	}
	if patch.CityID.Set {
		if patch.CityID.Valid {
			q.Set("city_id", q.Arg(patch.CityID.Value))
		} else {
			q.Set("city_id", "NULL")
		}
	}
	switch {
	case patch.Location.Set && patch.Location.Valid:
		q.Set("geom", r.dialect.MakePoint(q.Arg(patch.Location.Value.Lng), q.Arg(patch.Location.Value.Lat)))
	case patch.Location.Set:
		q.Set("geom", "NULL")
	case patch.CityID.Valid:
		q.Set("geom", centroidOf(q.Arg(patch.CityID.Value)))
	}

	q.Where("id = " + q.Arg(id)).Where("user_id = " + q.Arg(userID))
	query, args := q.Build(r.dialect, `UPDATE posts SET `+q.SetClause()+q.WhereClause())
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update post %s: %w", id, err)
	}
	return requireAffected(res)
}

// DeletePost 删除帖子
func (r *Store) DeletePost(ctx context.Context, userID, id string) (err error) {
	defer r.track("delete", "posts", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, r.rebind(
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`), id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetPostImage 记录帖子图片的对象存储 key
func (r *Store) SetPostImage(ctx context.Context, userID, id, imageKey string) (err error) {
	defer r.track("update", "posts", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, r.rebind(
		`UPDATE posts SET image_key = $1 WHERE id = $2 AND user_id = $3`), imageKey, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// GetPostImageKey 返回已发布帖子的图片 key
func (r *Store) GetPostImageKey(ctx context.Context, id string) (key string, err error) {
	defer r.track("select", "posts", time.Now(), &err)

	var k sql.NullString
	err = r.db.QueryRowContext(ctx, r.rebind(`SELECT image_key FROM posts WHERE id = $1 AND status = 'PUBLISHED'`), id).Scan(&k)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return k.String, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
