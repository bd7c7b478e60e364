// Package run реализует внешний запуск прохода рассылки напоминаний.
// Эндпоинт закрыт общим секретом, см. middlewarectx.CronSecretMiddleware.
package run

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/scheduler"
)

// Service запускает один проход.
type Service interface {
	RunOnce(ctx context.Context) (*models.RunResult, error)
}

// Handler обрабатывает POST /notifications/run.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запустить рассылку напоминаний
// @Description Один проход планировщика. Повторный запуск в тот же день ничего не отправляет повторно.
// @Tags Notifications
// @Produce  json
// @Param Authorization header string true "Bearer <CRON_SECRET>"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Failure 409 {object} response.ErrorResponse "Проход уже идет"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /notifications/run [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.RunOnce(r.Context())
	if errors.Is(err, scheduler.ErrBusy) {
		log.Warn("notification pass already running")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}
	if err != nil {
		log.Error("notification pass failed", sl.Err(err))
		code, msg := response.StatusFor(err)
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("notification pass done",
		slog.String("run_id", res.RunID),
		slog.Int("sent", res.NotificationsSent),
		slog.Int("failed", res.NotificationsFailed),
	)
	render.JSON(w, r, response.StatusOKWithData(res))
}
