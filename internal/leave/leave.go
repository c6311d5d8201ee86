package leave

import (
	"fmt"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	leaveDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/leave"
	"github.com/google/uuid"
)

type Type string

const (
	TypeFullDay     Type = "full-day"
	TypeHalfDay     Type = "half-day"
	TypeEarlyOut    Type = "early-out"
	TypeLateArrival Type = "late-arrival"
)

var Types = []Type{TypeFullDay, TypeHalfDay, TypeEarlyOut, TypeLateArrival}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsDecision reports whether s is a terminal status a reviewer may choose.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

type Half string

const (
	HalfFirst  Half = "first"
	HalfSecond Half = "second"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Detail is the type-specific part of a submission. Each leave type has
// exactly one variant carrying only the fields that type requires.
type Detail interface {
	Type() Type
	endDate(start time.Time) time.Time
	extraInfo() *string
	validate(v *validation.ValidationBuilder, start time.Time)
}

type FullDay struct {
	End time.Time
}

func (FullDay) Type() Type                    { return TypeFullDay }
func (d FullDay) endDate(time.Time) time.Time { return d.End }
func (FullDay) extraInfo() *string            { return nil }
func (d FullDay) validate(v *validation.ValidationBuilder, start time.Time) {
	v.Field("end_date", d.End).Custom(func(interface{}) *internal.AppError {
		if d.End.IsZero() {
			return internal.NewValidationFieldError("end_date", "end_date is required for full-day leave", internal.ErrCodeValidationFailed)
		}
		if !start.IsZero() && d.End.Before(start) {
			return internal.NewValidationFieldError("end_date", "end_date must not be before start_date", internal.ErrCodeInvalidDate)
		}
		return nil
	})
}

type HalfDay struct {
	Half Half
}

func (HalfDay) Type() Type                        { return TypeHalfDay }
func (HalfDay) endDate(start time.Time) time.Time { return start }
func (d HalfDay) extraInfo() *string {
	s := fmt.Sprintf("Half Day (%s half)", d.Half)
	return &s
}
func (d HalfDay) validate(v *validation.ValidationBuilder, _ time.Time) {
	v.Field("half", string(d.Half)).Required().OneOf(internal.ErrCodeValidationFailed, string(HalfFirst), string(HalfSecond))
}

type EarlyOut struct {
	At string
}

func (EarlyOut) Type() Type                        { return TypeEarlyOut }
func (EarlyOut) endDate(start time.Time) time.Time { return start }
func (d EarlyOut) extraInfo() *string {
	s := "Early out at " + d.At
	return &s
}
func (d EarlyOut) validate(v *validation.ValidationBuilder, _ time.Time) {
	v.Field("time", d.At).Required().ClockTime()
}

type LateArrival struct {
	At string
}

func (LateArrival) Type() Type                        { return TypeLateArrival }
func (LateArrival) endDate(start time.Time) time.Time { return start }
func (d LateArrival) extraInfo() *string {
	s := "Arriving at " + d.At
	return &s
}
func (d LateArrival) validate(v *validation.ValidationBuilder, _ time.Time) {
	v.Field("time", d.At).Required().ClockTime()
}

// Submission is a validated-at-the-boundary leave request draft.
type Submission struct {
	StartDate time.Time
	Reason    string
	Detail    Detail
}

func (s Submission) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("start_date", s.StartDate).Custom(func(interface{}) *internal.AppError {
		if s.StartDate.IsZero() {
			return internal.NewValidationFieldError("start_date", "start_date is required", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	v.Field("reason", s.Reason).MaxLength(1000)
	if s.Detail == nil {
		v.Field("leave_type", "").Required()
	} else {
		s.Detail.validate(v, s.StartDate)
	}
	return v.Validate()
}

type LeaveRequest struct {
	ID            string
	RequesterID   string
	RequesterName *string
	LeaveType     Type
	StartDate     time.Time
	EndDate       time.Time
	Reason        *string
	ExtraInfo     *string
	Status        Status
	ReviewedBy    *string
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

// NewLeaveRequest builds a pending request owned by requesterID. The
// submission must already be valid.
func NewLeaveRequest(requesterID string, sub Submission, now time.Time) *LeaveRequest {
	var reason *string
	if sub.Reason != "" {
		r := sub.Reason
		reason = &r
	}

	return &LeaveRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		LeaveType:   sub.Detail.Type(),
		StartDate:   sub.StartDate,
		EndDate:     sub.Detail.endDate(sub.StartDate),
		Reason:      reason,
		ExtraInfo:   sub.Detail.extraInfo(),
		Status:      StatusPending,
		CreatedAt:   now,
	}
}

func (l *LeaveRequest) CanBeReviewed() bool {
	return l.Status == StatusPending
}

// Review applies a decision. reviewed_at never precedes created_at.
func (l *LeaveRequest) Review(reviewerID string, decision Status, at time.Time) {
	if at.Before(l.CreatedAt) {
		at = l.CreatedAt
	}
	l.Status = decision
	l.ReviewedBy = &reviewerID
	l.ReviewedAt = &at
}

// Actions lists what viewer may do with this request right now.
func (l *LeaveRequest) Actions(viewer internal.Session) []Action {
	if !viewer.IsReviewer() || !l.CanBeReviewed() {
		return []Action{}
	}
	return []Action{ActionApprove, ActionReject}
}

func ToDataModel(l *LeaveRequest) *leaveDatamodel.LeaveRequest {
	return &leaveDatamodel.LeaveRequest{
		ID:         l.ID,
		UserID:     l.RequesterID,
		LeaveType:  string(l.LeaveType),
		StartDate:  l.StartDate,
		EndDate:    l.EndDate,
		Reason:     l.Reason,
		ExtraInfo:  l.ExtraInfo,
		Status:     string(l.Status),
		ReviewedBy: l.ReviewedBy,
		ReviewedAt: l.ReviewedAt,
		CreatedAt:  l.CreatedAt,
	}
}

func FromDataModel(m *leaveDatamodel.LeaveRequest) *LeaveRequest {
	return &LeaveRequest{
		ID:          m.ID,
		RequesterID: m.UserID,
		LeaveType:   Type(m.LeaveType),
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Reason:      m.Reason,
		ExtraInfo:   m.ExtraInfo,
		Status:      Status(m.Status),
		ReviewedBy:  m.ReviewedBy,
		ReviewedAt:  m.ReviewedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func FromJoinedDataModel(m *leaveDatamodel.LeaveRequestWithRequester) *LeaveRequest {
	l := FromDataModel(&m.LeaveRequest)
	if m.RequesterName != nil && *m.RequesterName != "" {
		name := *m.RequesterName
		l.RequesterName = &name
	}
	return l
}

func FromJoinedDataModelSlice(rows []*leaveDatamodel.LeaveRequestWithRequester) []*LeaveRequest {
	result := make([]*LeaveRequest, len(rows))
	for i, r := range rows {
		result[i] = FromJoinedDataModel(r)
	}
	return result
}
