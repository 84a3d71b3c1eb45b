// Package analytics 统计接口：概览、月度序列、国家对比
//
// 所有聚合共享可选的 country 过滤（经由帖子所属城市关联，国家代码不区分大小写）。
package analytics

import (
	"context"
	"log"
	"net/http"
	"strings"

	"erasmus-atlas/internal/shared/model"
)

// Store 统计聚合存储接口，country 为空表示不过滤
type Store interface {
	CountPostsByCountry(ctx context.Context, country string) (int, error)
	TopicHistogram(ctx context.Context, country string) ([]model.TopicCount, error)
	MonthlySeries(ctx context.Context, country string) ([]model.MonthCount, error)
}

// Handler 统计 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建统计处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册统计路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /analytics/overview", h.Overview)
	mux.HandleFunc("GET /analytics/timeseries", h.Timeseries)
	mux.HandleFunc("GET /analytics/compare", h.Compare)
}

// countryCode 规范化国家代码参数
func countryCode(r *http.Request, name string) string {
	return strings.ToUpper(strings.TrimSpace(r.URL.Query().Get(name)))
}

// Overview 帖子总数、话题排行、月度序列和洞察
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := countryCode(r, "country")

	total, err := h.store.CountPostsByCountry(ctx, country)
	if err != nil {
		log.Printf("[analytics.overview] CountPostsByCountry error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	topics, err := h.store.TopicHistogram(ctx, country)
	if err != nil {
		log.Printf("[analytics.overview] TopicHistogram error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	series, err := h.store.MonthlySeries(ctx, country)
	if err != nil {
		log.Printf("[analytics.overview] MonthlySeries error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, model.Overview{
		Total:    total,
		Topics:   topics,
		Series:   series,
		Insights: model.TopicInsight(topics),
	})
}

// Timeseries 月度帖子数
func (h *Handler) Timeseries(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.MonthlySeries(r.Context(), countryCode(r, "country"))
	if err != nil {
		log.Printf("[analytics.timeseries] MonthlySeries error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"points": points})
}

// Compare 对比两个国家的帖子数，缺省的一侧计为 0
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	left, err := h.side(r.Context(), countryCode(r, "left"))
	if err != nil {
		log.Printf("[analytics.compare] left %s error: %v", left.Code, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	right, err := h.side(r.Context(), countryCode(r, "right"))
	if err != nil {
		log.Printf("[analytics.compare] right %s error: %v", right.Code, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, model.Comparison{Metric: "posts", Left: left, Right: right})
}

func (h *Handler) side(ctx context.Context, code string) (model.CompareSide, error) {
	s := model.CompareSide{Code: code}
	if code == "" {
		return s, nil
	}
	n, err := h.store.CountPostsByCountry(ctx, code)
	if err != nil {
		return s, err
	}
	s.Value = n
	return s, nil
}
