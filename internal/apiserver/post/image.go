package post

import (
	"log"
	"net/http"
	"strings"

	"erasmus-atlas/internal/apiserver/auth"
	"erasmus-atlas/internal/shared/objstore"
)

// maxImageBytes 单张图片上限 5 MiB
const maxImageBytes = 5 << 20

// UploadImage 上传帖子图片（multipart 字段 file），替换旧图片
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetAuthUser(r.Context())
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.store.GetOwnedPost(r.Context(), user.ID, id)
	if err != nil {
		log.Printf("[post.image] GetOwnedPost error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or image exceeds 5 MiB")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "image exceeds 5 MiB")
		return
	}

	// 以内容嗅探为准，不信任客户端声明的 Content-Type
	sniff := make([]byte, 512)
	n, _ := file.Read(sniff)
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "file must be an image")
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	key := objstore.PostImageKey(id, header.Filename, contentType)
	if err := h.images.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		log.Printf("[post.image] Upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var oldKey string
	if post.ImageKey != nil {
		oldKey = *post.ImageKey
	}
	if err := h.store.SetPostImage(r.Context(), user.ID, id, key); err != nil {
		log.Printf("[post.image] SetPostImage error: %v", err)
		if delErr := h.images.Delete(r.Context(), key); delErr != nil {
			log.Printf("[post.image] cleanup %s failed: %v", key, delErr)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if oldKey != "" && oldKey != key {
		if err := h.images.Delete(r.Context(), oldKey); err != nil {
			log.Printf("[post.image] delete old image %s failed: %v", oldKey, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "image_key": key})
}

// GetImage 重定向到图片的限时下载链接
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	key, err := h.store.GetPostImageKey(r.Context(), id)
	if err != nil {
		log.Printf("[post.image] GetPostImageKey error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if key == "" {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}

	u, err := h.images.PresignedGetURL(r.Context(), key)
	if err != nil {
		log.Printf("[post.image] PresignedGetURL error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, u.String(), http.StatusFound)
}
