// Package evaluate запускает пересчет жизненного цикла подписок пользователя.
// Клиент вызывает его при загрузке данных.
package evaluate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/lifecycle"
)

// Service пересчитывает подписки одного пользователя.
type Service interface {
	EvaluateUser(ctx context.Context, userUID string) (*lifecycle.EvaluationResult, error)
}

// Handler обрабатывает POST /lifecycle/evaluate.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Пересчитать подписки
// @Description Завершает истекшие пробные периоды и переносит прошедшие даты платежей с записью в историю.
// @Tags Lifecycle
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /lifecycle/evaluate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lifecycle.evaluate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user_uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	res, err := h.service.EvaluateUser(r.Context(), userUID)
	if err != nil {
		log.Error("lifecycle evaluation failed", sl.Err(err))
		code, msg := response.StatusFor(err)
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}
	log.Info("lifecycle evaluated", slog.Int("applied", len(res.Applied)), slog.Int("failed", len(res.Failed)))
	render.JSON(w, r, response.StatusOKWithData(res))
}
