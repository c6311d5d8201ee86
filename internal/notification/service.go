package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	notificationDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/notification"
)

type Repository interface {
	// Create ignores a notification whose id already exists.
	Create(ctx context.Context, n *notificationDatamodel.Notification) error
	ListLatest(ctx context.Context, userID string, limit int) ([]*notificationDatamodel.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead returns ErrNotificationNotFound unless the row belongs to userID.
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// List returns the caller's latest notifications and their total unread count.
func (s *Service) List(ctx context.Context, session internal.Session) ([]*Notification, int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.repo.ListLatest(ctx, session.UserID, ListLimit)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", session.UserID)
		return nil, 0, internal.NewInternalError("failed to list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, session.UserID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", session.UserID)
		return nil, 0, internal.NewInternalError("failed to list notifications", err)
	}
	return FromDataModelSlice(rows), unread, nil
}

func (s *Service) MarkRead(ctx context.Context, session internal.Session, id string) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.MarkRead(ctx, id, session.UserID); err != nil {
		if errors.Is(err, internal.ErrNotificationNotFound) {
			return internal.ErrNotificationNotFound
		}
		s.logger.Error("failed to mark notification read", "error", err, "notification_id", id)
		return internal.NewInternalError("failed to update notification", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, session internal.Session) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repo.MarkAllRead(ctx, session.UserID)
	if err != nil {
		s.logger.Error("failed to mark notifications read", "error", err, "user_id", session.UserID)
		return 0, internal.NewInternalError("failed to update notifications", err)
	}
	s.logger.Info("notifications marked read", "user_id", session.UserID, "count", n)
	return n, nil
}

// Notify stores n for its user.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Create(ctx, ToDataModel(n)); err != nil {
		s.logger.Error("failed to create notification", "error", err, "user_id", n.UserID)
		return err
	}
	s.logger.Info("notification created", "notification_id", n.ID, "user_id", n.UserID, "title", n.Title)
	return nil
}
