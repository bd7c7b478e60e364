// Package sendtest отправляет текущему пользователю проверочное письмо.
package sendtest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
)

// Service описывает отправку проверочного письма.
type Service interface {
	SendTest(ctx context.Context, userUID string) (string, error)
}

// Handler обрабатывает POST /notifications/test.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверочное письмо
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse "Почта не настроена"
// @Failure 500 {object} response.ErrorResponse "Письмо не отправлено"
// @Router /notifications/test [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.sendtest"
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

	email, err := h.service.SendTest(r.Context(), userUID)
	if errors.Is(err, notification.ErrNoMailer) {
		log.Error("mailer is not configured")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("email delivery is not configured"))
		return
	}
	if err != nil {
		log.Error("failed to send test email", sl.Err(err))
		code, _ := response.StatusFor(err)
		w.WriteHeader(code)
		render.JSON(w, r, response.Error("failed to send test email"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"email":   email,
		"message": "test email sent",
	}))
}
