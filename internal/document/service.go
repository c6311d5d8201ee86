package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	documentDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/document"
	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/frahmantamala/employee-management/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type Repository interface {
	Create(ctx context.Context, d *documentDatamodel.Document) error
	GetByID(ctx context.Context, id string) (*documentDatamodel.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*documentDatamodel.Document, error)
	ListAll(ctx context.Context) ([]*documentDatamodel.Document, error)
}

type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error)
	Open(ctx context.Context, key string) (afero.File, error)
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	files     FileStore
	publisher EventPublisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewService(repo Repository, files FileStore, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		files:     files,
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
}

// Upload stores a file for ownerID. Only admins may upload.
func (s *Service) Upload(ctx context.Context, session internal.Session, dto UploadDTO, contentType string, r io.Reader) (*Document, error) {
	if !session.IsAdmin() {
		s.logger.Warn("document upload denied", "user_id", session.UserID, "role", session.Role)
		return nil, internal.ErrUnauthorizedAccess
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.files.Save(ctx, storage.Key("documents/"+dto.UserID, dto.FileName), r, contentType)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to store document", "error", err, "owner_id", dto.UserID)
		return nil, internal.NewInternalError("failed to store document", err)
	}

	id := uuid.NewString()
	d := &Document{
		ID:         id,
		OwnerID:    dto.UserID,
		FileName:   dto.FileName,
		FileType:   contentType,
		FileURL:    DownloadPath(id),
		StorageKey: obj.Key,
		SizeBytes:  obj.Size,
		UploadedBy: session.UserID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ToDataModel(d)); err != nil {
		if delErr := s.files.Delete(ctx, obj.Key); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "key", obj.Key, "error", delErr)
		}
		if errors.Is(err, internal.ErrProfileNotFound) {
			s.logger.Warn("document owner does not exist", "owner_id", dto.UserID)
			return nil, internal.ErrProfileNotFound
		}
		s.logger.Error("failed to save document", "error", err, "owner_id", dto.UserID)
		return nil, internal.NewInternalError("failed to save document", err)
	}

	s.logger.Info("document uploaded",
		"document_id", d.ID,
		"owner_id", d.OwnerID,
		"uploaded_by", d.UploadedBy,
		"size", d.SizeBytes)

	if s.publisher != nil {
		event := events.NewDocumentUploadedEvent(d.ID, d.OwnerID, d.UploadedBy, d.FileName)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}

	return d, nil
}

// List returns the documents visible to the session, newest first.
func (s *Service) List(ctx context.Context, session internal.Session) ([]*Document, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		rows []*documentDatamodel.Document
		err  error
	)
	if session.IsReviewer() {
		rows, err = s.repo.ListAll(ctx)
	} else {
		rows, err = s.repo.ListByOwner(ctx, session.UserID)
	}
	if err != nil {
		s.logger.Error("failed to list documents", "error", err, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to list documents", err)
	}

	out := make([]*Document, 0, len(rows))
	for _, m := range rows {
		if d := FromDataModel(m); d.CanBeReadBy(session) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Open returns the document metadata and its content. A document the caller
// may not read is reported as not found.
func (s *Service) Open(ctx context.Context, session internal.Session, id string) (*Document, io.ReadCloser, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrDocumentNotFound) {
			return nil, nil, internal.ErrDocumentNotFound
		}
		s.logger.Error("failed to load document", "error", err, "document_id", id)
		return nil, nil, internal.NewInternalError("failed to load document", err)
	}

	d := FromDataModel(m)
	if !d.CanBeReadBy(session) {
		s.logger.Warn("document download denied", "document_id", id, "user_id", session.UserID)
		return nil, nil, internal.ErrDocumentNotFound
	}

	f, err := s.files.Open(ctx, d.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Error("document content missing", "document_id", id, "key", d.StorageKey)
			return nil, nil, internal.ErrDocumentNotFound
		}
		return nil, nil, internal.NewInternalError("failed to open document", err)
	}
	return d, f, nil
}
