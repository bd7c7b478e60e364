package subscriptiontracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/realtime"
	authservice "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
)

func newTestRouter(t *testing.T, checks map[string]health.Checker) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	r := chi.NewRouter()
	RegisterRoutes(context.Background(), r, logger, Services{
		Auth:    authservice.NewAuthService(nil, maker),
		Hub:     realtime.NewHub(logger),
		Limiter: middlewarectx.NewRateLimiter(100, 100),
		Metrics: metrics.MustNew(prometheus.NewRegistry()),
		Checks:  checks,
	})
	return r, maker
}

func TestRoutes(t *testing.T) {
	ok := map[string]health.Checker{"postgres": func(context.Context) error { return nil }}
	router, maker := newTestRouter(t, ok)

	token, err := maker.GenerateToken("alice", "user", "0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "метрики", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "swagger", method: http.MethodGet, path: "/docs/doc.json", wantStatus: http.StatusOK},
		{name: "без токена", method: http.MethodGet, path: "/api/v1/subscriptions", wantStatus: http.StatusUnauthorized},
		{name: "плохой токен", method: http.MethodGet, path: "/api/v1/payments", token: "garbage", wantStatus: http.StatusUnauthorized},
		{name: "некорректный id", method: http.MethodGet, path: "/api/v1/subscriptions/42", token: token, wantStatus: http.StatusBadRequest},
		{name: "некорректный месяц", method: http.MethodGet, path: "/api/v1/subscriptions/calendar?month=2025-13", token: token, wantStatus: http.StatusBadRequest},
		{name: "неизвестный маршрут", method: http.MethodGet, path: "/api/v1/unknown", token: token, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestHealthReportsFailedDependency(t *testing.T) {
	router, _ := newTestRouter(t, map[string]health.Checker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis")
}
