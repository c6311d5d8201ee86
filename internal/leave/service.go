package leave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	leaveDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/leave"
	"github.com/frahmantamala/employee-management/internal/core/events"
)

// Repository interface defines the data access methods for leave requests
type Repository interface {
	Create(ctx context.Context, l *leaveDatamodel.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*leaveDatamodel.LeaveRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*leaveDatamodel.LeaveRequestWithRequester, error)
	ListAll(ctx context.Context) ([]*leaveDatamodel.LeaveRequestWithRequester, error)
	// MarkReviewed updates only a row that is still pending. It returns
	// ErrLeaveNotFound or ErrLeaveAlreadyReviewed when nothing was updated.
	MarkReviewed(ctx context.Context, id, status, reviewerID string, reviewedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles leave request business logic
type Service struct {
	repo      Repository
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
}

func NewService(repo Repository, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		timeout:   5 * time.Second,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit stores a new pending request owned by the session user.
func (s *Service) Submit(ctx context.Context, session internal.Session, sub Submission) (*LeaveRequest, error) {
	if session.UserID == "" {
		return nil, internal.ErrUnauthorizedAccess
	}

	if appErr := sub.Validate(); appErr != nil {
		s.logger.Warn("leave submission validation failed", "user_id", session.UserID, "error", appErr)
		return nil, appErr
	}

	l := NewLeaveRequest(session.UserID, sub, s.now())

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Create(ctx, ToDataModel(l)); err != nil {
		s.logger.Error("failed to create leave request", "error", err, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to submit leave request", err)
	}

	s.publish(ctx, events.NewLeaveSubmittedEvent(l.ID, l.RequesterID, string(l.LeaveType)))

	s.logger.Info("leave request submitted",
		"leave_id", l.ID,
		"user_id", session.UserID,
		"leave_type", l.LeaveType,
		"start_date", l.StartDate.Format(validation.DateLayout),
		"end_date", l.EndDate.Format(validation.DateLayout))

	return l, nil
}

// List returns the requests visible to the session, newest first. Employees
// only ever see their own rows.
func (s *Service) List(ctx context.Context, session internal.Session) ([]*LeaveRequest, error) {
	if session.UserID == "" {
		return nil, internal.ErrUnauthorizedAccess
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		rows []*leaveDatamodel.LeaveRequestWithRequester
		err  error
	)
	if session.IsReviewer() {
		rows, err = s.repo.ListAll(ctx)
	} else {
		rows, err = s.repo.ListByRequester(ctx, session.UserID)
	}
	if err != nil {
		s.logger.Error("failed to list leave requests", "error", err, "user_id", session.UserID, "role", session.Role)
		return nil, internal.NewInternalError("failed to list leave requests", err)
	}

	result := FromJoinedDataModelSlice(rows)

	// employees only ever see their own requests
	if !session.IsReviewer() {
		owned := result[:0]
		for _, l := range result {
			if l.RequesterID == session.UserID {
				owned = append(owned, l)
			}
		}
		result = owned
	}

	return result, nil
}

// Review moves a pending request to approved or rejected. Only the first
// review of a request succeeds; later ones get ErrLeaveAlreadyReviewed.
func (s *Service) Review(ctx context.Context, session internal.Session, id string, decision Status) (*LeaveRequest, error) {
	if !session.IsReviewer() {
		s.logger.Warn("review leave denied: insufficient role",
			"leave_id", id,
			"user_id", session.UserID,
			"role", session.Role)
		return nil, internal.ErrUnauthorizedAccess
	}

	if !decision.IsDecision() {
		return nil, internal.NewValidationFieldError("decision", "decision must be one of: approved, rejected", internal.ErrCodeInvalidDecision)
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrLeaveNotFound) {
			return nil, internal.ErrLeaveNotFound
		}
		s.logger.Error("failed to load leave request for review", "error", err, "leave_id", id)
		return nil, internal.NewInternalError("failed to review leave request", err)
	}

	l := FromDataModel(row)
	if !l.CanBeReviewed() {
		s.logger.Warn("cannot review leave request in current status",
			"leave_id", id,
			"current_status", l.Status)
		return nil, internal.ErrLeaveAlreadyReviewed
	}

	l.Review(session.UserID, decision, s.now())

	if err := s.repo.MarkReviewed(ctx, l.ID, string(l.Status), session.UserID, *l.ReviewedAt); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode < 500 {
			s.logger.Warn("leave review lost a race", "leave_id", id, "reviewer_id", session.UserID, "code", appErr.Code)
			return nil, appErr
		}
		s.logger.Error("failed to update leave request status", "error", err, "leave_id", id)
		return nil, internal.NewInternalError("failed to review leave request", err)
	}

	s.publish(ctx, events.NewLeaveReviewedEvent(
		l.ID,
		l.RequesterID,
		session.UserID,
		string(l.Status),
		l.StartDate.Format(validation.DateLayout),
		l.EndDate.Format(validation.DateLayout),
		*l.ReviewedAt,
	))

	s.logger.Info("leave request reviewed",
		"leave_id", l.ID,
		"reviewer_id", session.UserID,
		"status", l.Status)

	return l, nil
}

// Export writes what List would return for the session as an xlsx workbook.
func (s *Service) Export(ctx context.Context, session internal.Session, w io.Writer) error {
	rows, err := s.List(ctx, session)
	if err != nil {
		return err
	}
	if err := WriteWorkbook(w, rows); err != nil {
		s.logger.Error("failed to write leave export", "error", err, "user_id", session.UserID)
		return internal.NewInternalError("failed to export leave requests", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
