// Package ws открывает websocket-канал изменений подписок.
//
// Браузер не умеет передавать заголовок Authorization при апгрейде,
// поэтому токен принимается и из параметра token.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// TokenValidator проверяет JWT.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Hub обслуживает подключение до его закрытия.
type Hub interface {
	Serve(ctx context.Context, conn *websocket.Conn, userUID string)
}

// Handler обрабатывает GET /ws.
type Handler struct {
	log      *slog.Logger
	auth     TokenValidator
	hub      Hub
	upgrader websocket.Upgrader
	ctx      context.Context
}

// New создает Handler. ctx ограничивает жизнь всех подключений.
func New(ctx context.Context, log *slog.Logger, auth TokenValidator, hub Hub) *Handler {
	return &Handler{
		log:  log,
		auth: auth,
		hub:  hub,
		ctx:  ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// доступ определяется токеном, Origin не проверяется
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP godoc
// @Summary Канал изменений
// @Description Websocket. Сервер присылает {"type":"change","payload":{table,event,id,user_uid}}, клиент может слать "ping".
// @Tags Realtime
// @Param token query string true "JWT"
// @Success 101
// @Failure 401 {object} response.ErrorResponse "Неверный токен"
// @Router /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ws"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("missing token"))
		return
	}

	user, err := h.auth.ValidateToken(r.Context(), token)
	if err != nil {
		log.Error("websocket authentication failed", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired token"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}
	log.Info("websocket client connected", sl.User(user.UUID))
	h.hub.Serve(h.ctx, conn, user.UUID)
}
