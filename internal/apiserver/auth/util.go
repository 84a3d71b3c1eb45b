package auth

import (
	"encoding/json"
	"net/http"

	"erasmus-atlas/internal/apiserver/validation"
)

// maxBodyBytes 认证请求体上限
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate 解析并校验请求体，失败时已写入 400 响应
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := validation.DecodeJSON(w, r, maxBodyBytes, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, validation.ErrorBody(err))
		return false
	}
	return true
}
