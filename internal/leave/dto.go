package leave

import (
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
)

// SubmitLeaveDTO is the transport shape for POST /leave-requests. Which of
// end_date, half and time is required depends on leave_type.
type SubmitLeaveDTO struct {
	LeaveType string  `json:"leave_type"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Reason    *string `json:"reason,omitempty"`
	Half      *string `json:"half,omitempty"`
	Time      *string `json:"time,omitempty"`
	// ExtraInfo is accepted from older clients that send the rendered text
	// instead of half/time; it is parsed back into the typed field.
	ExtraInfo *string `json:"extra_info,omitempty"`
}

type ReviewLeaveDTO struct {
	Decision string `json:"decision"`
}

var (
	halfDayInfo     = regexp.MustCompile(`^Half Day \((first|second) half\)$`)
	earlyOutInfo    = regexp.MustCompile(`^Early out at (\d{2}:\d{2})$`)
	lateArrivalInfo = regexp.MustCompile(`^Arriving at (\d{2}:\d{2})$`)
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func fromExtraInfo(re *regexp.Regexp, extra string) string {
	if m := re.FindStringSubmatch(extra); len(m) == 2 {
		return m[1]
	}
	return ""
}

func typeNames() []string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return names
}

// ToSubmission validates the DTO and builds the variant for its leave type.
func (d SubmitLeaveDTO) ToSubmission() (Submission, *internal.AppError) {
	v := validation.NewValidator()
	v.Field("leave_type", d.LeaveType).Required().OneOf(internal.ErrCodeInvalidLeaveType, typeNames()...)
	v.Field("start_date", d.StartDate).Required().Date()
	v.Field("end_date", d.EndDate).Date()
	if appErr := v.Validate(); appErr != nil {
		return Submission{}, appErr
	}

	start, _ := validation.ParseDate(d.StartDate)
	sub := Submission{StartDate: start, Reason: deref(d.Reason)}
	extra := deref(d.ExtraInfo)

	switch Type(d.LeaveType) {
	case TypeFullDay:
		var end time.Time
		if e := deref(d.EndDate); e != "" {
			end, _ = validation.ParseDate(e)
		}
		sub.Detail = FullDay{End: end}
	case TypeHalfDay:
		half := deref(d.Half)
		if half == "" {
			half = fromExtraInfo(halfDayInfo, extra)
		}
		sub.Detail = HalfDay{Half: Half(half)}
	case TypeEarlyOut:
		at := deref(d.Time)
		if at == "" {
			at = fromExtraInfo(earlyOutInfo, extra)
		}
		sub.Detail = EarlyOut{At: at}
	case TypeLateArrival:
		at := deref(d.Time)
		if at == "" {
			at = fromExtraInfo(lateArrivalInfo, extra)
		}
		sub.Detail = LateArrival{At: at}
	}

	if appErr := sub.Validate(); appErr != nil {
		return Submission{}, appErr
	}
	return sub, nil
}

func (d ReviewLeaveDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("decision", d.Decision).Required().OneOf(internal.ErrCodeInvalidDecision, string(StatusApproved), string(StatusRejected))
	return v.Validate()
}

type LeaveRequestResponse struct {
	ID            string     `json:"id"`
	RequesterID   string     `json:"requester_id"`
	RequesterName *string    `json:"requester_name,omitempty"`
	LeaveType     Type       `json:"leave_type"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Reason        *string    `json:"reason"`
	ExtraInfo     *string    `json:"extra_info"`
	Status        Status     `json:"status"`
	ReviewedBy    *string    `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	Actions       []Action   `json:"actions"`
}

type LeaveRequestsResponse struct {
	LeaveRequests []LeaveRequestResponse `json:"leave_requests"`
}

func ToResponse(l *LeaveRequest, viewer internal.Session) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:            l.ID,
		RequesterID:   l.RequesterID,
		RequesterName: l.RequesterName,
		LeaveType:     l.LeaveType,
		StartDate:     l.StartDate.Format(validation.DateLayout),
		EndDate:       l.EndDate.Format(validation.DateLayout),
		Reason:        l.Reason,
		ExtraInfo:     l.ExtraInfo,
		Status:        l.Status,
		ReviewedBy:    l.ReviewedBy,
		ReviewedAt:    l.ReviewedAt,
		CreatedAt:     l.CreatedAt,
		Actions:       l.Actions(viewer),
	}
}

func ToListResponse(rows []*LeaveRequest, viewer internal.Session) LeaveRequestsResponse {
	out := LeaveRequestsResponse{LeaveRequests: make([]LeaveRequestResponse, len(rows))}
	for i, l := range rows {
		out.LeaveRequests[i] = ToResponse(l, viewer)
	}
	return out
}
