package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"weedcam/internal/config"
	"weedcam/internal/middleware"
)

func loginRequest(password string) *http.Request {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginHandler(t *testing.T) {
	h := LoginHandler(&config.Config{Password: "secret"}, newTestLogger(t))

	t.Run("valid password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h(rr, loginRequest("secret"))

		if rr.Code != http.StatusSeeOther {
			t.Fatalf("Expected 303, got %d", rr.Code)
		}
		cookies := rr.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != middleware.AuthCookie || cookies[0].Value != "true" {
			t.Errorf("Expected auth cookie, got %v", cookies)
		}
	})

	t.Run("invalid password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h(rr, loginRequest("guess"))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}
		if len(rr.Result().Cookies()) != 0 {
			t.Error("No cookie should be set on failure")
		}
	})
}

func TestLogoutHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	LogoutHandler(rr, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("Expected redirect to /login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected expired auth cookie, got %v", cookies)
	}
}
