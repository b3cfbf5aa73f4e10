package middleware

import (
	"net/http"
	"strings"
	"weedcam/internal/config"
)

// AuthCookie is set by a successful login.
const AuthCookie = "authenticated"

// AuthMiddleware requires the auth cookie on every request except the login
// page and static assets. With no password configured it lets everything through.
func AuthMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	if !cfg.AuthEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || cookie.Value != "true" {
			// API and script clients get a status code instead of a redirect
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
