package worklog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	worklogDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/worklog"
	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/google/uuid"
)

// ErrRoomCodeTaken is returned by Repository.CreateRoom when the generated
// code collides with an existing room.
var ErrRoomCodeTaken = errors.New("worklog: room code taken")

const maxCodeAttempts = 5

type Repository interface {
	// CreateRoom stores the room and the creator's membership together.
	CreateRoom(ctx context.Context, room *worklogDatamodel.ChatRoom, creator *worklogDatamodel.RoomMember) error
	GetRoomByCode(ctx context.Context, code string) (*worklogDatamodel.ChatRoom, error)
	// AddMember returns ErrAlreadyMember for an existing membership.
	AddMember(ctx context.Context, m *worklogDatamodel.RoomMember) error
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]*worklogDatamodel.ChatRoom, error)
	CreateLog(ctx context.Context, l *worklogDatamodel.WorkLog) error
	// ListLogs orders by log_date DESC, created_at DESC. A non-nil since keeps
	// only logs created after it.
	ListLogs(ctx context.Context, roomID string, since *time.Time) ([]*worklogDatamodel.WorkLog, error)
}

// Directory resolves user ids to display names.
type Directory interface {
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	directory Directory
	publisher EventPublisher
	logger    *slog.Logger
	newCode   func() (string, error)
	timeout   time.Duration
}

func NewService(repo Repository, directory Directory, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		publisher: publisher,
		logger:    logger,
		newCode:   GenerateRoomCode,
		timeout:   5 * time.Second,
	}
}

// WithCodeGenerator overrides the room code source.
func (s *Service) WithCodeGenerator(gen func() (string, error)) *Service {
	s.newCode = gen
	return s
}

// CreateRoom opens a room with a fresh code and joins the creator to it.
func (s *Service) CreateRoom(ctx context.Context, session internal.Session, dto CreateRoomDTO) (*Room, error) {
	if !session.IsReviewer() {
		s.logger.Warn("create room denied", "user_id", session.UserID, "role", session.Role)
		return nil, internal.ErrUnauthorizedAccess
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	room := &Room{
		ID:        uuid.NewString(),
		Name:      dto.Name,
		CreatedBy: session.UserID,
		CreatedAt: now,
	}
	creator := &worklogDatamodel.RoomMember{RoomID: room.ID, UserID: session.UserID, JoinedAt: now}

	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, internal.NewInternalError("failed to create room", err)
		}
		room.RoomCode = code

		err = s.repo.CreateRoom(ctx, RoomToDataModel(room), creator)
		if err == nil {
			break
		}
		if errors.Is(err, ErrRoomCodeTaken) && attempt < maxCodeAttempts {
			s.logger.Debug("room code collision, retrying", "attempt", attempt)
			continue
		}
		s.logger.Error("failed to create room", "error", err, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to create room", err)
	}

	s.logger.Info("room created", "room_id", room.ID, "room_code", room.RoomCode, "created_by", session.UserID)
	return room, nil
}

func (s *Service) JoinRoom(ctx context.Context, session internal.Session, dto JoinRoomDTO) (*Room, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err := s.repo.GetRoomByCode(ctx, dto.RoomCode)
	if err != nil {
		if errors.Is(err, internal.ErrRoomNotFound) {
			return nil, internal.ErrRoomNotFound
		}
		return nil, internal.NewInternalError("failed to join room", err)
	}

	err = s.repo.AddMember(ctx, &worklogDatamodel.RoomMember{RoomID: m.ID, UserID: session.UserID, JoinedAt: time.Now().UTC()})
	if err != nil {
		if errors.Is(err, internal.ErrAlreadyMember) {
			return nil, internal.ErrAlreadyMember
		}
		s.logger.Error("failed to join room", "error", err, "room_id", m.ID, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to join room", err)
	}

	s.logger.Info("room joined", "room_id", m.ID, "user_id", session.UserID)
	return RoomFromDataModel(m), nil
}

func (s *Service) ListRooms(ctx context.Context, session internal.Session) ([]*Room, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.repo.ListRoomsForUser(ctx, session.UserID)
	if err != nil {
		s.logger.Error("failed to list rooms", "error", err, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to list rooms", err)
	}
	return RoomsFromDataModel(rows), nil
}

// RequireMember returns ErrNotRoomMember unless the session belongs to the room.
func (s *Service) RequireMember(ctx context.Context, session internal.Session, roomID string) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.repo.IsMember(ctx, roomID, session.UserID)
	if err != nil {
		return internal.NewInternalError("failed to check room membership", err)
	}
	if !ok {
		s.logger.Warn("room access denied", "room_id", roomID, "user_id", session.UserID)
		return internal.ErrNotRoomMember
	}
	return nil
}

// CreateLog appends a log entry to the room and announces it to live subscribers.
func (s *Service) CreateLog(ctx context.Context, session internal.Session, roomID string, dto CreateLogDTO) (*WorkLog, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if err := s.RequireMember(ctx, session, roomID); err != nil {
		return nil, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	logDate, _ := validation.ParseDate(dto.LogDate)
	l := &WorkLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    session.UserID,
		LogDate:   logDate,
		Tasks:     dto.Tasks,
		CreatedAt: time.Now().UTC(),
	}
	if dto.LogTime != nil && *dto.LogTime != "" {
		t := *dto.LogTime
		l.LogTime = &t
	}

	if err := s.repo.CreateLog(ctx, LogToDataModel(l)); err != nil {
		s.logger.Error("failed to create work log", "error", err, "room_id", roomID, "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to create work log", err)
	}
	s.annotate(ctx, []*WorkLog{l})

	s.logger.Info("work log created", "log_id", l.ID, "room_id", roomID, "user_id", session.UserID)

	if s.publisher != nil {
		event := events.NewWorkLogCreatedEvent(l.ID, l.RoomID, l.UserID, ToLogResponse(l))
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}

	return l, nil
}

// ListLogs returns the room's logs, optionally only those created after since.
func (s *Service) ListLogs(ctx context.Context, session internal.Session, roomID string, since *time.Time) ([]*WorkLog, error) {
	if err := s.RequireMember(ctx, session, roomID); err != nil {
		return nil, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.repo.ListLogs(ctx, roomID, since)
	if err != nil {
		s.logger.Error("failed to list work logs", "error", err, "room_id", roomID)
		return nil, internal.NewInternalError("failed to list work logs", err)
	}

	logs := LogsFromDataModel(rows)
	s.annotate(ctx, logs)
	return logs, nil
}

// annotate fills AuthorName where the directory knows the author. Lookup
// failures leave the logs unannotated.
func (s *Service) annotate(ctx context.Context, logs []*WorkLog) {
	if s.directory == nil || len(logs) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(logs))
	ids := make([]string, 0, len(logs))
	for _, l := range logs {
		if _, ok := seen[l.UserID]; !ok {
			seen[l.UserID] = struct{}{}
			ids = append(ids, l.UserID)
		}
	}

	names, err := s.directory.DisplayNames(ctx, ids)
	if err != nil {
		s.logger.Warn("author lookup failed, returning logs without names", "error", err)
		return
	}
	for _, l := range logs {
		if name, ok := names[l.UserID]; ok {
			n := name
			l.AuthorName = &n
		}
	}
}
