package worklog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/employee-management/internal/core/events"
)

const subscriberBuffer = 16

// Hub fans new work logs out to the live subscribers of each room. A
// subscriber whose buffer is full misses the delta; it can catch up with
// ListLogs and since.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[chan LogResponse]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[chan LogResponse]struct{}),
		logger: logger,
	}
}

// Register feeds the hub from worklog.created events on the bus.
func (h *Hub) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeWorkLogCreated, h.HandleEvent)
}

// Subscribe returns a channel of new logs for roomID and a function that
// unsubscribes and closes it.
func (h *Hub) Subscribe(roomID string) (<-chan LogResponse, func()) {
	ch := make(chan LogResponse, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[chan LogResponse]struct{})
		h.rooms[roomID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.rooms[roomID], ch)
			if len(h.rooms[roomID]) == 0 {
				delete(h.rooms, roomID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast delivers l to every subscriber of its room without blocking.
func (h *Hub) Broadcast(l LogResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.rooms[l.RoomID] {
		select {
		case ch <- l:
		default:
			h.logger.Warn("dropping work log for slow subscriber", "room_id", l.RoomID, "log_id", l.ID)
		}
	}
}

func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) HandleEvent(_ context.Context, event events.Event) error {
	e, ok := event.(*events.WorkLogCreatedEvent)
	if !ok {
		return nil
	}
	l, ok := e.Log.(LogResponse)
	if !ok {
		h.logger.Warn("unexpected work log payload", "event_id", e.EventID())
		return nil
	}
	h.Broadcast(l)
	return nil
}
