// Package realtime рассылает события изменения подписок по websocket
// всем открытым вкладкам пользователя.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Типы сообщений сервера.
const (
	MessageChange = "change"
	MessagePong   = "pong"
)

// Message кадр, который получает клиент.
type Message struct {
	Type    string              `json:"type"`
	Payload *models.ChangeEvent `json:"payload,omitempty"`
}

// Hub хранит клиентов по пользователям. Регистрация и рассылка идут
// через цикл Run, отключение снимает клиента сразу.
type Hub struct {
	register  chan *Client
	broadcast chan models.ChangeEvent

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	log *slog.Logger
}

// NewHub создает пустой Hub. Перед использованием нужно запустить Run.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		register:  make(chan *Client),
		broadcast: make(chan models.ChangeEvent, 256),
		clients:   make(map[string]map[*Client]struct{}),
		log:       log,
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.userUID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userUID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("websocket client registered", sl.User(c.userUID))
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// Publish ставит событие в очередь рассылки. При переполнении событие
// отбрасывается: клиент все равно перечитает данные при следующем событии.
func (h *Hub) Publish(ev models.ChangeEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn("realtime broadcast queue is full, event dropped", slog.String("id", ev.ID))
	}
}

// Count число подключений пользователя.
func (h *Hub) Count(userUID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userUID])
}

func (h *Hub) fanOut(ev models.ChangeEvent) {
	data, err := json.Marshal(Message{Type: MessageChange, Payload: &ev})
	if err != nil {
		h.log.Error("failed to marshal change event", sl.Err(err))
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[ev.UserUID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("websocket client is too slow, disconnecting", sl.User(c.userUID))
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userUID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userUID)
	}
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, uid)
	}
}
