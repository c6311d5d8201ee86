package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	leaveDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/leave"
	"github.com/frahmantamala/employee-management/internal/leave"
	"gorm.io/gorm"
)

// LeaveRepository implements leave.Repository using GORM
type LeaveRepository struct {
	db *gorm.DB
}

func NewLeaveRepository(db *gorm.DB) leave.Repository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) Create(ctx context.Context, l *leaveDatamodel.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*leaveDatamodel.LeaveRequest, error) {
	var l leaveDatamodel.LeaveRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLeaveNotFound
		}
		return nil, err
	}
	return &l, nil
}

// joined selects leave rows with the requester's name in the same query.
// A missing profile leaves requester_name NULL.
func (r *LeaveRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("leave_requests").
		Select("leave_requests.*, profiles.full_name AS requester_name").
		Joins("LEFT JOIN profiles ON profiles.id = leave_requests.user_id").
		Order("leave_requests.created_at DESC")
}

func (r *LeaveRepository) ListByRequester(ctx context.Context, requesterID string) ([]*leaveDatamodel.LeaveRequestWithRequester, error) {
	var rows []*leaveDatamodel.LeaveRequestWithRequester
	err := r.joined(ctx).
		Where("leave_requests.user_id = ?", requesterID).
		Scan(&rows).Error
	return rows, err
}

func (r *LeaveRepository) ListAll(ctx context.Context) ([]*leaveDatamodel.LeaveRequestWithRequester, error) {
	var rows []*leaveDatamodel.LeaveRequestWithRequester
	err := r.joined(ctx).Scan(&rows).Error
	return rows, err
}

// MarkReviewed is a conditional update on status = 'pending'. When no row
// changes it tells a missing request apart from one already reviewed.
func (r *LeaveRepository) MarkReviewed(ctx context.Context, id, status, reviewerID string, reviewedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&leaveDatamodel.LeaveRequest{}).
		Where("id = ? AND status = ?", id, string(leave.StatusPending)).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": reviewedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&leaveDatamodel.LeaveRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return internal.ErrLeaveNotFound
	}
	return internal.ErrLeaveAlreadyReviewed
}
