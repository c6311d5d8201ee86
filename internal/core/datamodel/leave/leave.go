package leave

import "time"

type LeaveRequest struct {
	ID         string     `gorm:"column:id;primaryKey;type:uuid"`
	UserID     string     `gorm:"column:user_id;type:uuid;not null;index"`
	LeaveType  string     `gorm:"column:leave_type;not null"`
	StartDate  time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate    time.Time  `gorm:"column:end_date;type:date;not null"`
	Reason     *string    `gorm:"column:reason"`
	ExtraInfo  *string    `gorm:"column:extra_info"`
	Status     string     `gorm:"column:status;not null;index"`
	ReviewedBy *string    `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;index"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// LeaveRequestWithRequester is a leave row joined with the requester's profile name.
type LeaveRequestWithRequester struct {
	LeaveRequest  `gorm:"embedded"`
	RequesterName *string `gorm:"column:requester_name"`
}
