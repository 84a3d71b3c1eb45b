// Package server 路由配置与核心基础设施
//
// 本文件组装 HTTP API 路由，将请求分发到各领域独立包：
//   - auth: 注册、登录、当前用户
//   - city: 城市目录
//   - post: 帖子列表、发帖、个人帖子、编辑删除、图片
//   - analytics: 统计
//
// 本包自身负责健康检查、Prometheus 指标、OpenAPI 文档、CORS 和访问日志。
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"erasmus-atlas/internal/apiserver/analytics"
	"erasmus-atlas/internal/apiserver/auth"
	"erasmus-atlas/internal/apiserver/city"
	"erasmus-atlas/internal/apiserver/post"
	"erasmus-atlas/internal/shared/cache"
	"erasmus-atlas/internal/shared/storage"
	"erasmus-atlas/pkg/logging"
)

// Options 路由行为配置
type Options struct {
	Auth     auth.Config
	Throttle auth.ThrottleConfig
	Posts    post.Config

	CORSOrigins []string

	// AuthRateLimit 注册/登录每个 IP 在 AuthRateWindow 内允许的请求数，<=0 不限流
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Handler API 处理器
//
// 依赖说明：
//   - store: 持久化存储（PostgreSQL/PostGIS 或 SQLite）
//   - attempts: 登录失败计数（Redis，未配置时为 NoOp）
//   - images: 帖子图片对象存储（MinIO，可选）
type Handler struct {
	store    storage.PersistentStore
	attempts cache.LoginAttemptCache
	images   post.ImageStore

	opts    Options
	openapi []byte
	metrics *Metrics
	logger  *logging.Logger
}

// NewHandler 创建 Handler 实例，attempts 为 nil 时不做登录失败限制
func NewHandler(store storage.PersistentStore, attempts cache.LoginAttemptCache, opts Options) *Handler {
	if attempts == nil {
		attempts = cache.NewNoOpCache()
	}
	return &Handler{
		store:    store,
		attempts: attempts,
		opts:     opts,
		metrics:  NewMetrics("atlas"),
		logger:   logging.Default("api-server"),
	}
}

// SetImageStore 启用帖子图片接口
func (h *Handler) SetImageStore(images post.ImageStore) {
	h.images = images
}

// SetOpenAPI 设置 GET /openapi.yaml 返回的文档
func (h *Handler) SetOpenAPI(doc []byte) {
	h.openapi = doc
}

// SetLogger 设置访问日志使用的日志器
func (h *Handler) SetLogger(l *logging.Logger) {
	h.logger = l
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 基础设施:
//   - GET  /health          - 健康检查（含数据库 Ping）
//   - GET  /metrics         - Prometheus 指标
//   - GET  /openapi.yaml    - OpenAPI 文档
//
// 认证 (Auth):
//   - POST /auth/register   - 注册（按 IP 限流）
//   - POST /auth/login      - 登录（按 IP 限流 + 失败次数限制）
//   - GET  /auth/me         - 当前用户
//
// 城市 (City):
//   - GET  /cities          - 城市目录
//
// 帖子 (Post):
//   - GET  /posts                 - 公开列表（flat/clustered）
//   - POST /posts                 - 发帖
//   - GET  /me/posts              - 个人帖子分页
//   - GET  /me/posts/{id}         - 个人单个帖子
//   - POST /posts/{id}/edit       - 编辑
//   - POST /posts/{id}/delete     - 删除
//   - POST /posts/{id}/image      - 上传图片（启用对象存储时）
//   - GET  /posts/{id}/image      - 图片下载重定向（启用对象存储时）
//
// 统计 (Analytics):
//   - GET  /analytics/overview|timeseries|compare
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())
	if h.openapi != nil {
		mux.HandleFunc("GET /openapi.yaml", h.OpenAPI)
	}

	authHandler := auth.NewHandler(h.store, h.opts.Auth, h.attempts, h.opts.Throttle)
	if h.opts.AuthRateLimit > 0 {
		authHandler.SetRateLimiter(httprate.LimitByIP(h.opts.AuthRateLimit, h.opts.AuthRateWindow))
	}
	authHandler.RegisterRoutes(mux)

	city.NewHandler(h.store).RegisterRoutes(mux)
	post.NewHandler(h.store, h.opts.Auth, h.opts.Posts, h.images).RegisterRoutes(mux)
	analytics.NewHandler(h.store).RegisterRoutes(mux)

	// 指标中间件直接包裹 mux，才能读到匹配的路由模式
	var handler http.Handler = h.metrics.MetricsMiddleware(mux)
	handler = accessLog(h.logger, handler)
	handler = requestID(handler)
	handler = corsMiddleware(h.opts.CORSOrigins)(handler)
	return handler
}

// corsMiddleware 跨域配置，浏览器前端通过 Authorization 头携带令牌
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})
}

// requestIDHeader 请求 ID 头，客户端未提供时生成
const requestIDHeader = "X-Request-ID"

// requestID 为每个请求分配 ID，写入响应头和上下文
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), logging.RequestIDKey, id)))
	})
}

// accessLog 访问日志中间件
func accessLog(l *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		l.WithContext(r.Context()).HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 数据库可达时返回 {"status": "ok"}，否则返回 503。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OpenAPI 返回嵌入的 OpenAPI 文档
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(h.openapi)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
