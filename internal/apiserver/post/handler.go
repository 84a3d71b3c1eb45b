// Package post 帖子 HTTP 接口：公开列表（平铺/聚合）、发帖、个人帖子、编辑删除、图片
package post

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"erasmus-atlas/internal/apiserver/auth"
	"erasmus-atlas/internal/apiserver/validation"
	"erasmus-atlas/internal/shared/model"
	"erasmus-atlas/internal/shared/storage"
)

// Store 帖子处理器依赖的存储接口
type Store interface {
	CreatePost(ctx context.Context, in *model.NewPost) (*model.Post, error)
	ListPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error)
	CountPosts(ctx context.Context, filter model.PostFilter) (int, error)
	GetOwnedPost(ctx context.Context, userID, id string) (*model.Post, error)
	UpdatePost(ctx context.Context, userID, id string, patch model.PostPatch) error
	DeletePost(ctx context.Context, userID, id string) error
	SetPostImage(ctx context.Context, userID, id, imageKey string) error
	GetPostImageKey(ctx context.Context, id string) (string, error)
	FindCity(ctx context.Context, name, countryISO2 string) (*model.City, error)
}

// ImageStore 帖子图片对象存储
type ImageStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedGetURL(ctx context.Context, key string) (*url.URL, error)
	Delete(ctx context.Context, key string) error
}

// Config 帖子行为配置
type Config struct {
	InitialStatus model.PostStatus
	ListMode      model.ListMode
	MaxListLimit  int
}

const (
	defaultListLimit = 200
	defaultPageLimit = 20
	maxPageLimit     = 100
	// clusterScanLimit 聚合模式下最多读取的帖子数
	clusterScanLimit = 5000
	maxBodyBytes     = 1 << 20
)

// Handler 帖子 HTTP 处理器
type Handler struct {
	store  Store
	auth   auth.Config
	cfg    Config
	images ImageStore
}

// NewHandler 创建帖子处理器，images 为 nil 时不注册图片路由
func NewHandler(store Store, authCfg auth.Config, cfg Config, images ImageStore) *Handler {
	if !cfg.InitialStatus.OwnerSettable() {
		cfg.InitialStatus = model.PostStatusPublished
	}
	if cfg.ListMode == "" {
		cfg.ListMode = model.ListModeClustered
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 500
	}
	return &Handler{store: store, auth: authCfg, cfg: cfg, images: images}
}

// RegisterRoutes 注册帖子相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /posts", h.List)
	mux.HandleFunc("POST /posts", auth.RequireAuth(h.auth, h.Create))
	mux.HandleFunc("GET /me/posts", auth.RequireAuth(h.auth, h.ListMine))
	mux.HandleFunc("GET /me/posts/{id}", auth.RequireAuth(h.auth, h.GetMine))
	mux.HandleFunc("POST /posts/{id}/edit", auth.RequireAuth(h.auth, h.Edit))
	mux.HandleFunc("POST /posts/{id}/delete", auth.RequireAuth(h.auth, h.Delete))

	if h.images != nil {
		mux.HandleFunc("POST /posts/{id}/image", auth.RequireAuth(h.auth, h.UploadImage))
		mux.HandleFunc("GET /posts/{id}/image", h.GetImage)
	}
}

// ============================================================================
// 公开列表
// ============================================================================

// List 公开帖子列表，仅包含已发布帖子
//
// mode=flat 返回按时间倒序的帖子；mode=clustered 返回按坐标聚合的点位。
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), h.cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := model.PostFilter{
		BBox:   q.BBox,
		Topic:  q.Topic,
		Status: model.PostStatusPublished,
	}

	if q.Mode == model.ListModeFlat {
		filter.Limit, filter.Offset = q.Limit, q.Offset
		posts, err := h.store.ListPosts(r.Context(), filter)
		if err != nil {
			log.Printf("[post.list] ListPosts error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": posts})
		return
	}

	filter.LocatedOnly = true
	filter.Limit = clusterScanLimit
	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		log.Printf("[post.list] ListPosts error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": model.ClusterPosts(posts, q.Limit)})
}

// ============================================================================
// 发帖
// ============================================================================

type createRequest struct {
	Title       string   `json:"title" validate:"nonblank,max=200"`
	Body        string   `json:"body" validate:"nonblank,max=10000"`
	Lat         *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng" validate:"omitempty,longitude"`
	CityID      *string  `json:"cityId" validate:"omitempty,uuid"`
	CityName    *string  `json:"cityName" validate:"omitempty,nonblank,max=100"`
	CountryISO2 *string  `json:"countryIso2" validate:"omitempty,iso2"`
	Topics      []string `json:"topics" validate:"max=20,dive,nonblank,max=50"`
	Topic       *string  `json:"topic" validate:"omitempty,nonblank,max=50"`
}

// Create 发帖
//
// 位置优先级：lat/lng > cityId 中心点 > cityName+countryIso2 查到的城市中心点。
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())

	var req createRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(w, http.StatusBadRequest, "lat and lng must be supplied together")
		return
	}
	if (req.CityName == nil) != (req.CountryISO2 == nil) {
		writeError(w, http.StatusBadRequest, "cityName and countryIso2 must be supplied together")
		return
	}

	in := &model.NewPost{
		UserID: user.ID,
		Title:  strings.TrimSpace(req.Title),
		Body:   strings.TrimSpace(req.Body),
		Topics: normalizeTopics(req.Topics, req.Topic),
		CityID: req.CityID,
		Status: h.cfg.InitialStatus,
	}
	if req.Lat != nil {
		in.Location = &model.LatLng{Lat: *req.Lat, Lng: *req.Lng}
	}

	if in.CityID == nil && req.CityName != nil {
		city, err := h.store.FindCity(r.Context(), *req.CityName, *req.CountryISO2)
		if err != nil {
			log.Printf("[post.create] FindCity error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if city == nil {
			writeError(w, http.StatusBadRequest, "city not found for that country")
			return
		}
		in.CityID = &city.ID
	}

	post, err := h.store.CreatePost(r.Context(), in)
	if err != nil {
		if errors.Is(err, storage.ErrCityNotFound) {
			writeError(w, http.StatusBadRequest, "city not found")
			return
		}
		log.Printf("[post.create] CreatePost error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[post] Created %s by %s", post.ID, user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": post.ID})
}

// normalizeTopics 非空 topics 优先，否则把旧版单个 topic 转为单元素列表
func normalizeTopics(topics []string, legacy *string) []string {
	if len(topics) > 0 {
		out := make([]string, len(topics))
		for i, t := range topics {
			out[i] = strings.TrimSpace(t)
		}
		return out
	}
	if legacy != nil {
		return []string{strings.TrimSpace(*legacy)}
	}
	return []string{}
}

// ============================================================================
// 个人帖子
// ============================================================================

// ListMine 当前用户的帖子（全部状态），分页
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())

	page, limit, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := model.PostFilter{UserID: user.ID, Limit: limit, Offset: (page - 1) * limit}
	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		log.Printf("[post.mine] ListPosts error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := h.store.CountPosts(r.Context(), model.PostFilter{UserID: user.ID})
	if err != nil {
		log.Printf("[post.mine] CountPosts error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": posts,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// GetMine 当前用户的单个帖子
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.store.GetOwnedPost(r.Context(), user.ID, id)
	if err != nil {
		log.Printf("[post.get] GetOwnedPost error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ============================================================================
// 编辑 / 删除
// ============================================================================

type editRequest struct {
	Title  *string                 `json:"title" validate:"omitempty,nonblank,max=200"`
	Body   *string                 `json:"body" validate:"omitempty,nonblank,max=10000"`
	Topics *[]string               `json:"topics" validate:"omitempty,max=20,dive,nonblank,max=50"`
	CityID model.Nullable[string]  `json:"cityId"`
	Lat    model.Nullable[float64] `json:"lat"`
	Lng    model.Nullable[float64] `json:"lng"`
	Status *string                 `json:"status" validate:"omitempty,oneof=PENDING PUBLISHED"`
}

// toPatch 转换为存储层补丁，cityId/lat/lng 区分未提供与显式 null
func (req *editRequest) toPatch() (model.PostPatch, error) {
	patch := model.PostPatch{Title: req.Title, Body: req.Body, Topics: req.Topics, CityID: req.CityID}

	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Body != nil {
		b := strings.TrimSpace(*patch.Body)
		patch.Body = &b
	}
	if req.Status != nil {
		s := model.PostStatus(*req.Status)
		patch.Status = &s
	}
	if req.CityID.Valid {
		if _, err := uuid.Parse(req.CityID.Value); err != nil {
			return patch, errors.New("cityId must be a valid UUID")
		}
	}

	switch {
	case !req.Lat.Set && !req.Lng.Set:
	case req.Lat.Set != req.Lng.Set || req.Lat.Valid != req.Lng.Valid:
		return patch, errors.New("lat and lng must be supplied together")
	case req.Lat.Valid:
		if req.Lat.Value < -90 || req.Lat.Value > 90 {
			return patch, errors.New("lat must be a valid latitude (-90 to 90)")
		}
		if req.Lng.Value < -180 || req.Lng.Value > 180 {
			return patch, errors.New("lng must be a valid longitude (-180 to 180)")
		}
		patch.Location = model.NullableOf(model.LatLng{Lat: req.Lat.Value, Lng: req.Lng.Value})
	default:
		patch.Location = model.NullOf[model.LatLng]()
	}
	return patch, nil
}

// Edit 部分更新帖子
//
// 非作者或帖子不存在返回 404；没有任何字段时返回 400。
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var req editRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.store.UpdatePost(r.Context(), user.ID, id, patch)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	case errors.Is(err, storage.ErrCityNotFound):
		writeError(w, http.StatusBadRequest, "city not found")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, storage.ErrNoChanges):
		writeError(w, http.StatusBadRequest, "nothing to update")
	default:
		log.Printf("[post.edit] UpdatePost error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Delete 删除帖子
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	id, ok := postID(w, r)
	if !ok {
		return
	}

	// 删除前记下图片 key，删除成功后清理对象存储
	var imageKey string
	if h.images != nil {
		post, err := h.store.GetOwnedPost(r.Context(), user.ID, id)
		if err != nil {
			log.Printf("[post.delete] GetOwnedPost error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if post != nil && post.ImageKey != nil {
			imageKey = *post.ImageKey
		}
	}

	err := h.store.DeletePost(r.Context(), user.ID, id)
	switch {
	case err == nil:
		log.Printf("[post] Deleted %s by %s", id, user.ID)
		if imageKey != "" {
			if err := h.images.Delete(r.Context(), imageKey); err != nil {
				log.Printf("[post.delete] delete image %s failed: %v", imageKey, err)
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	default:
		log.Printf("[post.delete] DeletePost error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// postID 读取路径中的帖子 ID，非 UUID 直接按不存在处理
func postID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "post not found")
		return "", false
	}
	return id, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := validation.DecodeJSON(w, r, maxBodyBytes, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, validation.ErrorBody(err))
		return false
	}
	return true
}
