// Package calendar реализует HTTP-обработчик календаря платежей.
package calendar

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Service описывает построение календаря.
type Service interface {
	Calendar(ctx context.Context, userUID string, year int, m time.Month) ([]models.CalendarDay, error)
}

// Handler обрабатывает GET /subscriptions/calendar.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Календарь платежей
// @Description Платежи месяца, сгруппированные по дням. Без параметра берется текущий месяц.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Param month query string false "Месяц в формате YYYY-MM"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный месяц"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/calendar [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.calendar"
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

	var year int
	var month time.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			log.Error("invalid month", slog.String("month", raw))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("month must be in format YYYY-MM"))
			return
		}
		year, month = t.Year(), t.Month()
	}

	days, err := h.service.Calendar(r.Context(), userUID, year, month)
	if err != nil {
		log.Error("failed to build calendar", sl.Err(err))
		code, msg := response.StatusFor(err)
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(days))
}
