package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/common/auth"
	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
)

func TestJWTAuthMiddleware(t *testing.T) {
	authCfg := config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		Issuer:      "tallerdrive",
		Audience:    "tallerdrive",
		PublicPaths: []string{"/healthz"},
	}

	tokenStr, _, err := auth.GenerateAccessToken(authCfg, "u-1", "Ana", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	var seen AuthInfo
	var seenOK bool
	handler := JWTAuth(authCfg, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// 带合法令牌
	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if !seenOK || seen.Subject != "u-1" || seen.Role != "admin" {
		t.Fatalf("auth info mismatch: ok=%v %+v", seenOK, seen)
	}

	// 无令牌
	req2 := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec2.Code)
	}

	// 公开路径不需要令牌
	req3 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200 on public path, got %d", rec3.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mk("outer"), mk("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("unexpected execution order: %v", order)
	}
}
