package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat_platform/internal/repository"
	"chat_platform/pkg/logger"
)

// Registry отслеживает, какие живые соединения принадлежат какому пользователю.
// Одному пользователю может принадлежать несколько соединений (несколько вкладок).
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	presence    repository.PresenceRepository
	presenceTTL time.Duration
	log         logger.Logger
}

func NewRegistry(presence repository.PresenceRepository, presenceTTL time.Duration, log logger.Logger) *Registry {
	return &Registry{
		clients:     make(map[uuid.UUID]map[*Client]struct{}),
		presence:    presence,
		presenceTTL: presenceTTL,
		log:         log,
	}
}

// Register добавляет соединение; первое живое соединение переводит пользователя в online
func (r *Registry) Register(c *Client) {
	userID := c.UserID

	r.mu.Lock()
	conns, ok := r.clients[userID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.clients[userID] = conns
	}
	first := len(conns) == 0
	conns[c] = struct{}{}
	r.mu.Unlock()

	if r.presence != nil {
		// Жизненный цикл presence не привязан к контексту запроса
		if first {
			if err := r.presence.SetOnline(context.Background(), userID, r.presenceTTL); err == nil {
				r.log.Info("User presence online", "user_id", userID)
			}
		} else {
			_ = r.presence.Refresh(context.Background(), userID, r.presenceTTL)
		}
	}
}

// Touch продлевает presence-отметку пользователя с живым соединением.
// Интервал пинга короче TTL отметки, поэтому одно соединение,
// открытое дольше TTL, не выглядит офлайновым.
func (r *Registry) Touch(userID uuid.UUID) {
	if r.presence != nil {
		_ = r.presence.Refresh(context.Background(), userID, r.presenceTTL)
	}
}

// Unregister убирает соединение; последнее закрытое переводит пользователя в offline
func (r *Registry) Unregister(c *Client) {
	userID := c.UserID

	r.mu.Lock()
	conns, ok := r.clients[userID]
	if ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.clients, userID)
		}
	}
	last := !ok || len(conns) == 0
	r.mu.Unlock()

	if last && r.presence != nil {
		if err := r.presence.SetOffline(context.Background(), userID); err == nil {
			r.log.Info("User presence offline", "user_id", userID)
		}
	}
}

// Connections возвращает живые соединения пользователя
func (r *Registry) Connections(userID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.clients[userID]))
	for c := range r.clients[userID] {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline возвращает true, если у пользователя есть хотя бы одно живое соединение
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients[userID]) > 0
}

// Send доставляет данные во все живые соединения пользователя.
// Отсутствие соединений не является ошибкой: адресат получит историю при следующем запросе.
func (r *Registry) Send(userID uuid.UUID, data []byte) {
	for _, c := range r.Connections(userID) {
		c.Enqueue(data)
	}
}

// SendExcept доставляет данные во все соединения пользователя, кроме указанного
func (r *Registry) SendExcept(userID uuid.UUID, except *Client, data []byte) {
	for _, c := range r.Connections(userID) {
		if c == except {
			continue
		}
		c.Enqueue(data)
	}
}
