package model

import (
	"math"
	"time"
)

// PostStatus 帖子状态
type PostStatus string

const (
	PostStatusPending   PostStatus = "PENDING"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusFlagged   PostStatus = "FLAGGED"
	PostStatusRemoved   PostStatus = "REMOVED"
)

// OwnerSettable 作者自己可设置的状态（FLAGGED/REMOVED 仅限审核）
func (s PostStatus) OwnerSettable() bool {
	return s == PostStatusPending || s == PostStatusPublished
}

// Post 用户发布的城市点评
//
// Lat/Lng 同时为 nil 或同时非 nil。
// CityName/CountryISO2 仅在个人帖子列表中填充（来自 cities 关联）。
type Post struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Body        string     `json:"body" db:"body"`
	Topics      []string   `json:"topics" db:"topics"`
	Lat         *float64   `json:"lat"`
	Lng         *float64   `json:"lng"`
	CityID      *string    `json:"city_id" db:"city_id"`
	CityName    *string    `json:"city_name,omitempty"`
	CountryISO2 *string    `json:"country_iso2,omitempty"`
	ImageKey    *string    `json:"image_key,omitempty" db:"image_key"`
	Status      PostStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// HasLocation 是否有坐标
func (p *Post) HasLocation() bool {
	return p.Lat != nil && p.Lng != nil
}

// LatLng 经纬度坐标
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox 经纬度包围盒
type BBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// ListMode 帖子列表模式
type ListMode string

const (
	ListModeFlat      ListMode = "flat"
	ListModeClustered ListMode = "clustered"
)

// PostFilter 帖子列表过滤条件，零值字段不参与过滤
type PostFilter struct {
	BBox        *BBox
	Topic       string
	UserID      string
	Status      PostStatus
	LocatedOnly bool
	Limit       int
	Offset      int
}

// NewPost 创建帖子的输入
//
// 坐标优先级：Location > CityID 对应城市中心点。
// 按名称解析城市由调用方完成，解析结果填入 CityID。
type NewPost struct {
	UserID   string
	Title    string
	Body     string
	Topics   []string
	Location *LatLng
	CityID   *string
	Status   PostStatus
}

// PostPatch 编辑帖子的部分更新
//
// 指针为 nil 表示不修改；CityID/Location 为三态：
// 未提供（Set=false）、显式清空（Set=true, Valid=false）、设置新值。
type PostPatch struct {
	Title    *string
	Body     *string
	Topics   *[]string
	CityID   Nullable[string]
	Location Nullable[LatLng]
	Status   *PostStatus
}

// IsEmpty 是否没有任何字段需要更新
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.Topics == nil &&
		!p.CityID.Set && !p.Location.Set && p.Status == nil
}

// PostCluster 地图聚合点：坐标四舍五入到 ClusterPrecision 位小数后相同的帖子
type PostCluster struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Posts []*Post `json:"posts"`
}

// ClusterPrecision 聚合坐标的小数位数
const ClusterPrecision = 4

// RoundCoord 将坐标四舍五入到 ClusterPrecision 位小数
func RoundCoord(v float64) float64 {
	scale := math.Pow(10, ClusterPrecision)
	return math.Round(v*scale) / scale
}

// ClusterPosts 按四舍五入后的坐标分组
//
// posts 需已按创建时间倒序排列；无坐标的帖子被忽略。
// 组内保持输入顺序（最新在前），组按首个成员出现顺序排列，最多返回 limit 组（limit<=0 不限制）。
func ClusterPosts(posts []*Post, limit int) []*PostCluster {
	type key struct{ lat, lng float64 }
	index := make(map[key]*PostCluster)
	var clusters []*PostCluster

	for _, p := range posts {
		if !p.HasLocation() {
			continue
		}
		k := key{RoundCoord(*p.Lat), RoundCoord(*p.Lng)}
		c, ok := index[k]
		if !ok {
			if limit > 0 && len(clusters) >= limit {
				continue
			}
			c = &PostCluster{Lat: k.lat, Lng: k.lng}
			index[k] = c
			clusters = append(clusters, c)
		}
		c.Posts = append(c.Posts, p)
	}
	if clusters == nil {
		clusters = []*PostCluster{}
	}
	return clusters
}
