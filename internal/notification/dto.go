package notification

import "time"

type NotificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func ToResponse(n *Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func ToListResponse(rows []*Notification, unread int64) NotificationsResponse {
	out := NotificationsResponse{
		Notifications: make([]NotificationResponse, len(rows)),
		UnreadCount:   unread,
	}
	for i, n := range rows {
		out.Notifications[i] = ToResponse(n)
	}
	return out
}
