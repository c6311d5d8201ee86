package notification

import (
	"fmt"
	"time"

	notificationDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/notification"
	"github.com/google/uuid"
)

// ListLimit caps how many notifications a list returns.
const ListLimit = 10

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// notificationNamespace derives stable notification ids from event ids so a
// redelivered event does not notify twice.
var notificationNamespace = uuid.MustParse("6f1c8a2e-3b7d-4e59-9c0a-2d4e8f1b7a63")

// NewLeaveReviewed builds the requester's notice for a reviewed leave request.
func NewLeaveReviewed(eventID, requesterID, status, startDate, endDate string, at time.Time) *Notification {
	period := startDate
	if endDate != "" && endDate != startDate {
		period = startDate + " to " + endDate
	}
	return &Notification{
		ID:        uuid.NewSHA1(notificationNamespace, []byte(eventID)).String(),
		UserID:    requesterID,
		Title:     "Leave request " + status,
		Message:   fmt.Sprintf("Your leave request for %s has been %s.", period, status),
		CreatedAt: at,
	}
}

func ToDataModel(n *Notification) *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func FromDataModel(m *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

func FromDataModelSlice(rows []*notificationDatamodel.Notification) []*Notification {
	out := make([]*Notification, len(rows))
	for i, m := range rows {
		out[i] = FromDataModel(m)
	}
	return out
}
