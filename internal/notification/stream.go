package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/employee-management/internal/core/events"
)

const (
	subscriberBuffer  = 16
	heartbeatInterval = 25 * time.Second
)

// Hub pushes new notifications to the open streams of their recipient. It is
// fed from leave.reviewed on the in-process bus, so it works whether the
// stored row is written here or by the kafka worker; both derive the same id
// from the event.
type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[chan NotificationResponse]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		users:  make(map[string]map[chan NotificationResponse]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeLeaveReviewed, h.HandleLeaveReviewed)
}

// Subscribe returns a channel of new notifications for userID and a function
// that unsubscribes and closes it.
func (h *Hub) Subscribe(userID string) (<-chan NotificationResponse, func()) {
	ch := make(chan NotificationResponse, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.users[userID]
	if !ok {
		subs = make(map[chan NotificationResponse]struct{})
		h.users[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.users[userID], ch)
			if len(h.users[userID]) == 0 {
				delete(h.users, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Push delivers n to every open stream of its recipient without blocking.
func (h *Hub) Push(n *Notification) {
	resp := ToResponse(n)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.users[n.UserID] {
		select {
		case ch <- resp:
		default:
			h.logger.Warn("dropping notification for slow subscriber", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) HandleLeaveReviewed(_ context.Context, event events.Event) error {
	reviewed, ok := event.(*events.LeaveReviewedEvent)
	if !ok {
		return nil
	}
	at := reviewed.ReviewedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	h.Push(NewLeaveReviewed(reviewed.EventID(), reviewed.RequesterID, reviewed.Status, reviewed.StartDate, reviewed.EndDate, at))
	return nil
}

// StreamNotifications pushes the caller's new notifications as server-sent
// events.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.Hub.Subscribe(session.UserID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case n, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.Logger.Error("failed to encode notification event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\nid: %s\ndata: %s\n\n", n.ID, payload)
			flusher.Flush()
		}
	}
}
