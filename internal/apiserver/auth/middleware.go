package auth

import (
	"log"
	"net/http"
	"strings"
)

// RequireAuth 包装需要登录的路由：校验 Bearer 令牌并注入 AuthUser
func RequireAuth(cfg Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		claims, err := ParseToken(cfg, token)
		if err != nil {
			log.Printf("[auth] token parse error: %v", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := WithAuthUser(r.Context(), &AuthUser{ID: claims.Subject, Email: claims.Email})
		next(w, r.WithContext(ctx))
	}
}

// bearerToken 提取 "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
