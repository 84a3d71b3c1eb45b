// Package city 城市目录 HTTP 接口
package city

import (
	"context"
	"log"
	"net/http"

	"erasmus-atlas/internal/shared/model"
)

// listLimit 城市列表最多返回的条数
const listLimit = 200

// Store 城市目录存储接口
type Store interface {
	ListCities(ctx context.Context, limit int) ([]*model.City, error)
}

// Handler 城市 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建城市处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册城市路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cities", h.List)
}

// List 按名称排序返回城市目录
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cities, err := h.store.ListCities(r.Context(), listLimit)
	if err != nil {
		log.Printf("[city.list] ListCities error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": cities})
}
