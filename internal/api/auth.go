package api

import (
	"net/http"
	"strings"
)

// AdminVerifier checks the admin bearer secret.
type AdminVerifier interface {
	AdminEnabled() bool
	CheckAdmin(bearer string) bool
}

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// AdminAuthMiddleware requires the admin bearer secret. With no verifier
// or no secret configured the admin routes are disabled.
func AdminAuthMiddleware(v AdminVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil || !v.AdminEnabled() {
				writeError(w, "admin routes disabled", http.StatusNotFound)
				return
			}
			if !v.CheckAdmin(bearerToken(r)) {
				RecordConnectionRejected("admin_auth")
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				writeError(w, "Admin authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
