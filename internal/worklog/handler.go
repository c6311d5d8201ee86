package worklog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

const heartbeatInterval = 25 * time.Second

type ServiceAPI interface {
	CreateRoom(ctx context.Context, session internal.Session, dto CreateRoomDTO) (*Room, error)
	JoinRoom(ctx context.Context, session internal.Session, dto JoinRoomDTO) (*Room, error)
	ListRooms(ctx context.Context, session internal.Session) ([]*Room, error)
	RequireMember(ctx context.Context, session internal.Session, roomID string) error
	CreateLog(ctx context.Context, session internal.Session, roomID string, dto CreateLogDTO) (*WorkLog, error)
	ListLogs(ctx context.Context, session internal.Session, roomID string, since *time.Time) ([]*WorkLog, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Hub     *Hub
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, hub *Hub) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Hub:         hub,
	}
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto CreateRoomDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.Service.CreateRoom(r.Context(), session, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToRoomResponse(room))
}

func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto JoinRoomDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.Service.JoinRoom(r.Context(), session, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToRoomResponse(room))
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	rooms, err := h.Service.ListRooms(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToRoomsResponse(rooms))
}

func (h *Handler) roomID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid room ID")
		return "", false
	}
	return id, true
}

func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var dto CreateLogDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Service.CreateLog(r.Context(), session, roomID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToLogResponse(l))
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.HandleServiceError(w, internal.NewValidationFieldError("since", "since must be an RFC3339 timestamp", internal.ErrCodeInvalidDate))
			return
		}
		since = &t
	}

	logs, err := h.Service.ListLogs(r.Context(), session, roomID, since)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToLogsResponse(logs))
}

// StreamLogs pushes each new log in the room as a server-sent event.
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}

	if err := h.Service.RequireMember(r.Context(), session, roomID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.Hub.Subscribe(roomID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.Logger.Debug("work log stream opened", "room_id", roomID, "user_id", session.UserID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.Logger.Debug("work log stream closed", "room_id", roomID, "user_id", session.UserID)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case l, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(l)
			if err != nil {
				h.Logger.Error("failed to encode work log event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: worklog\nid: %s\ndata: %s\n\n", l.ID, payload)
			flusher.Flush()
		}
	}
}
