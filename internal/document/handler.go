package document

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	Upload(ctx context.Context, session internal.Session, dto UploadDTO, contentType string, r io.Reader) (*Document, error)
	List(ctx context.Context, session internal.Session) ([]*Document, error)
	Open(ctx context.Context, session internal.Session, id string) (*Document, io.ReadCloser, error)
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

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.Logger.Warn("UploadDocument: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	dto := UploadDTO{UserID: r.FormValue("user_id"), FileName: header.Filename}
	d, err := h.Service.Upload(r.Context(), session, dto, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.Logger.Warn("UploadDocument: service error", "error", err, "user_id", session.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(d))
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	rows, err := h.Service.List(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToListResponse(rows))
}

func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := h.RequireSession(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	d, content, err := h.Service.Open(r.Context(), session, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", d.FileType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	if d.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		h.Logger.Error("DownloadDocument: failed to write response", "error", err, "document_id", id)
	}
}
