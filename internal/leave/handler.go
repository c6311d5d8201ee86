package leave

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ServiceAPI interface {
	Submit(ctx context.Context, session internal.Session, sub Submission) (*LeaveRequest, error)
	List(ctx context.Context, session internal.Session) ([]*LeaveRequest, error)
	Review(ctx context.Context, session internal.Session, id string, decision Status) (*LeaveRequest, error)
	Export(ctx context.Context, session internal.Session, w io.Writer) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto SubmitLeaveDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Warn("SubmitLeaveRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, appErr := dto.ToSubmission()
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	l, err := h.Service.Submit(r.Context(), session, sub)
	if err != nil {
		h.Logger.Error("SubmitLeaveRequest: service error", "error", err, "user_id", session.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(l, session))
}

func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	rows, err := h.Service.List(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToListResponse(rows, session))
}

func (h *Handler) ReviewLeaveRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.Logger.Warn("ReviewLeaveRequest: invalid leave request ID", "id", id)
		h.WriteError(w, http.StatusBadRequest, "invalid leave request ID")
		return
	}

	var dto ReviewLeaveDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Warn("ReviewLeaveRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	l, err := h.Service.Review(r.Context(), session, id, Status(dto.Decision))
	if err != nil {
		h.Logger.Warn("ReviewLeaveRequest: service error", "error", err, "leave_id", id, "reviewer_id", session.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(l, session))
}

func (h *Handler) ExportLeaveRequests(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	// render fully before writing headers so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := h.Service.Export(r.Context(), session, &buf); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filename := "leave-requests-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("ExportLeaveRequests: failed to write response", "error", err)
	}
}
