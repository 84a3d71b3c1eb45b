package post

import (
	"fmt"
	"net/url"
	"strconv"

	"erasmus-atlas/internal/shared/model"
)

// listQuery GET /posts 的查询参数
type listQuery struct {
	BBox   *model.BBox
	Topic  string
	Limit  int
	Offset int
	Mode   model.ListMode
}

var bboxParams = []string{"minLng", "minLat", "maxLng", "maxLat"}

// parseListQuery 解析列表参数
//
// 包围盒四个参数必须同时提供或同时省略；limit 超过上限时截断为上限。
func parseListQuery(v url.Values, cfg Config) (listQuery, error) {
	q := listQuery{Topic: v.Get("topic"), Limit: defaultListLimit, Mode: cfg.ListMode}

	present := 0
	for _, name := range bboxParams {
		if v.Get(name) != "" {
			present++
		}
	}
	switch present {
	case 0:
	case len(bboxParams):
		vals := make([]float64, len(bboxParams))
		for i, name := range bboxParams {
			f, err := strconv.ParseFloat(v.Get(name), 64)
			if err != nil {
				return q, fmt.Errorf("%s must be a number", name)
			}
			vals[i] = f
		}
		q.BBox = &model.BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
		if q.BBox.MinLng > q.BBox.MaxLng || q.BBox.MinLat > q.BBox.MaxLat {
			return q, fmt.Errorf("bounding box min must not exceed max")
		}
	default:
		return q, fmt.Errorf("minLng, minLat, maxLng and maxLat must be supplied together")
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, fmt.Errorf("limit must be a positive integer")
		}
		q.Limit = min(n, cfg.MaxListLimit)
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("offset must be a non-negative integer")
		}
		q.Offset = n
	}
	if s := v.Get("mode"); s != "" {
		switch model.ListMode(s) {
		case model.ListModeFlat, model.ListModeClustered:
			q.Mode = model.ListMode(s)
		default:
			return q, fmt.Errorf("mode must be one of: flat clustered")
		}
	}
	return q, nil
}

// parsePage 解析 page/limit，page 默认 1，limit 默认 20、上限 100
func parsePage(v url.Values) (page, limit int, err error) {
	page, limit = 1, defaultPageLimit
	if s := v.Get("page"); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
	}
	if s := v.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageLimit)
		}
	}
	return page, limit, nil
}
