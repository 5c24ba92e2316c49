package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// Listener receives a coalesced signal whenever its collection changes.
// Several changes between two reads collapse into a single signal.
type Listener struct {
	ID         uuid.UUID
	Collection string
	signal     chan struct{}
	hub        *Hub
	closeOnce  sync.Once
}

func (l *Listener) C() <-chan struct{} { return l.signal }

func (l *Listener) Close() {
	l.closeOnce.Do(func() { l.hub.remove(l) })
}

// Hub fans collection changes out to in-process listeners.
type Hub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	listeners map[string]map[*Listener]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:       log.With("component", "ChangeHub"),
		listeners: make(map[string]map[*Listener]bool),
	}
}

func (h *Hub) Listen(collection string) *Listener {
	collection = strings.TrimSpace(collection)
	l := &Listener{
		ID:         uuid.New(),
		Collection: collection,
		signal:     make(chan struct{}, 1),
		hub:        h,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[collection]
	if !ok {
		set = make(map[*Listener]bool)
		h.listeners[collection] = set
	}
	set[l] = true
	h.log.Debug("listener added", "listener_id", l.ID, "collection", collection)
	return l
}

func (h *Hub) remove(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.listeners[l.Collection]; ok {
		delete(set, l)
		if len(set) == 0 {
			delete(h.listeners, l.Collection)
		}
	}
	h.log.Debug("listener removed", "listener_id", l.ID, "collection", l.Collection)
}

// Publish signals every listener of ch.Collection. It never blocks.
func (h *Hub) Publish(_ context.Context, ch Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for l := range h.listeners[ch.Collection] {
		select {
		case l.signal <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *Hub) Count(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[collection])
}
