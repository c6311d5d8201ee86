package profile

import (
	"context"
	"io"
	"net/http"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetMe(ctx context.Context, session internal.Session) (*Profile, error)
	UpdateMe(ctx context.Context, session internal.Session, dto UpdateProfileDTO) (*Profile, error)
	UploadAvatar(ctx context.Context, session internal.Session, filename, contentType string, r io.Reader) (*Profile, error)
	ListEmployees(ctx context.Context, session internal.Session) ([]*Profile, error)
	CreateEmployee(ctx context.Context, session internal.Session, dto CreateEmployeeDTO) (*Profile, error)
	Register(ctx context.Context, dto RegisterDTO) (*Profile, error)
	UpdateEmployee(ctx context.Context, session internal.Session, id string, dto UpdateEmployeeDTO) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	maxUploadBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadBytes int64) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		Service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetMe handles GET /profile/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	p, err := h.Service.GetMe(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// UpdateMe handles PUT /profile/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto UpdateProfileDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.UpdateMe(r.Context(), session, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// UploadAvatar handles POST /profile/me/avatar (multipart field "file")
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.Logger.Warn("UploadAvatar: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	p, err := h.Service.UploadAvatar(r.Context(), session, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// ListEmployees handles GET /employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	rows, err := h.Service.ListEmployees(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToEmployeesResponse(rows))
}

// CreateEmployee handles POST /employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto CreateEmployeeDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.CreateEmployee(r.Context(), session, dto)
	if err != nil {
		h.Logger.Warn("CreateEmployee: service error", "error", err, "user_id", session.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(p))
}

// Register handles POST /auth/register. It is public.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("Register: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(p))
}

// UpdateEmployee handles PUT /employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	var dto UpdateEmployeeDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.UpdateEmployee(r.Context(), session, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}
