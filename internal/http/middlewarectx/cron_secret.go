package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// CronSecretMiddleware пропускает только запросы с заголовком
// "Authorization: Bearer <secret>". Пустой secret закрывает эндпоинт.
func CronSecretMiddleware(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				log.Error("cron secret is not configured")
				w.WriteHeader(http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("trigger is disabled"))
				return
			}
			got := []byte(r.Header.Get("Authorization"))
			want := []byte("Bearer " + secret)
			if subtle.ConstantTimeCompare(got, want) != 1 {
				log.Warn("unauthorized trigger request")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
