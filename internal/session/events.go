package session

import (
	"sync"

	"go.uber.org/zap"
)

// EventType enumerates auth-state changes.
type EventType string

const (
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	ProfileUpdated EventType = "PROFILE_UPDATED"
)

// Event is an auth-state change for one principal.
type Event struct {
	Type EventType
	UID  string
}

// Events is the subscription side of the hub.
type Events interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Hub fans auth-state events out to subscribers. Callbacks run synchronously
// on the publisher's goroutine and must not block.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]func(Event)),
		logger: logger.Named("SessionHub"),
	}
}

// Subscribe registers fn. The returned func removes it and is idempotent.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	h.logger.Debug("Publishing auth event", zap.String("type", string(e.Type)), zap.String("uid", e.UID), zap.Int("subscribers", len(fns)))
	for _, fn := range fns {
		fn(e)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
