package notification

import (
	"context"
	"net/http"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	List(ctx context.Context, session internal.Session) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, session internal.Session, id string) error
	MarkAllRead(ctx context.Context, session internal.Session) (int64, error)
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

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	rows, unread, err := h.Service.List(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToListResponse(rows, unread))
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := h.Service.MarkRead(r.Context(), session, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	n, err := h.Service.MarkAllRead(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MarkAllReadResponse{Updated: n})
}
