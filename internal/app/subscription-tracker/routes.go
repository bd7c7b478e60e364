// Package subscriptiontracker собирает HTTP API трекера подписок.
package subscriptiontracker

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-спецификации.
	_ "github.com/magabrotheeeer/subscription-tracker/docs"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/lifecycle/evaluate"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/history"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/sendtest"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/settings"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/payment/export"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/payment/monthly"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/calendar"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/summary"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/upcoming"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/ws"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/realtime"
	authservice "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/lifecycle"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/subscription-tracker/internal/services/payment"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
)

// Services зависимости обработчиков.
type Services struct {
	Auth          *authservice.AuthService
	Subscriptions *subservice.Service
	Payments      *paymentservice.PaymentService
	Notifications *notification.Service
	Lifecycle     *lifecycle.Service
	Hub           *realtime.Hub
	Limiter       *middlewarectx.RateLimiter
	Metrics       *metrics.Metrics
	Checks        map[string]health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(ctx context.Context, r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		s.Metrics.Middleware,
	)

	r.Get("/health", health.New(logger, s.Checks).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(s.Limiter.Middleware(logger))
			r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		})
		r.Get("/ws", ws.New(ctx, logger, s.Auth, s.Hub).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(s.Limiter.Middleware(logger))

			r.Get("/subscriptions", list.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions", create.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/upcoming", upcoming.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/summary", summary.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/calendar", calendar.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}", read.New(logger, s.Subscriptions).ServeHTTP)
			r.Put("/subscriptions/{id}", update.New(logger, s.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", remove.New(logger, s.Subscriptions).ServeHTTP)

			r.Post("/payments", paymentcreate.New(logger, s.Payments).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, s.Payments).ServeHTTP)
			r.Get("/payments/monthly", monthly.New(logger, s.Payments).ServeHTTP)
			r.Get("/payments/export", export.New(logger, s.Payments).ServeHTTP)

			settingsHandler := settings.New(logger, s.Notifications)
			r.Get("/notifications/settings", settingsHandler.Get)
			r.Put("/notifications/settings", settingsHandler.Put)
			r.Post("/notifications/test", sendtest.New(logger, s.Notifications).ServeHTTP)
			r.Get("/notifications/history", history.New(logger, s.Notifications).ServeHTTP)

			r.Post("/lifecycle/evaluate", evaluate.New(logger, s.Lifecycle).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
