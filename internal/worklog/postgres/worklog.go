package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	worklogDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/worklog"
	"github.com/frahmantamala/employee-management/internal/worklog"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type WorkLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) worklog.Repository {
	return &WorkLogRepository{db: db}
}

func (r *WorkLogRepository) CreateRoom(ctx context.Context, room *worklogDatamodel.ChatRoom, creator *worklogDatamodel.RoomMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return tx.Create(creator).Error
	})
	if isUniqueViolation(err) {
		return worklog.ErrRoomCodeTaken
	}
	return err
}

func (r *WorkLogRepository) GetRoomByCode(ctx context.Context, code string) (*worklogDatamodel.ChatRoom, error) {
	var room worklogDatamodel.ChatRoom
	err := r.db.WithContext(ctx).Where("room_code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *WorkLogRepository) AddMember(ctx context.Context, m *worklogDatamodel.RoomMember) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return internal.ErrAlreadyMember
	}
	return err
}

func (r *WorkLogRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&worklogDatamodel.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *WorkLogRepository) ListRoomsForUser(ctx context.Context, userID string) ([]*worklogDatamodel.ChatRoom, error) {
	var rows []*worklogDatamodel.ChatRoom
	err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = chat_rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("chat_rooms.created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *WorkLogRepository) CreateLog(ctx context.Context, l *worklogDatamodel.WorkLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *WorkLogRepository) ListLogs(ctx context.Context, roomID string, since *time.Time) ([]*worklogDatamodel.WorkLog, error) {
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if since != nil {
		query = query.Where("created_at > ?", since.UTC())
	}

	var rows []*worklogDatamodel.WorkLog
	err := query.Order("log_date DESC").Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
