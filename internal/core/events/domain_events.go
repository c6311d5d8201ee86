package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLeaveSubmitted   = "leave.submitted"
	EventTypeLeaveReviewed    = "leave.reviewed"
	EventTypeWorkLogCreated   = "worklog.created"
	EventTypeDocumentUploaded = "document.uploaded"
)

// AllEventTypes lists every event forwarded to the message broker.
var AllEventTypes = []string{
	EventTypeLeaveSubmitted,
	EventTypeLeaveReviewed,
	EventTypeWorkLogCreated,
	EventTypeDocumentUploaded,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type LeaveSubmittedEvent struct {
	BaseEvent
	LeaveID     string `json:"leave_id"`
	RequesterID string `json:"requester_id"`
	LeaveType   string `json:"leave_type"`
}

func NewLeaveSubmittedEvent(leaveID, requesterID, leaveType string) *LeaveSubmittedEvent {
	return &LeaveSubmittedEvent{
		BaseEvent: newBase(EventTypeLeaveSubmitted, map[string]interface{}{
			"leave_id":     leaveID,
			"requester_id": requesterID,
			"leave_type":   leaveType,
		}),
		LeaveID:     leaveID,
		RequesterID: requesterID,
		LeaveType:   leaveType,
	}
}

type LeaveReviewedEvent struct {
	BaseEvent
	LeaveID     string    `json:"leave_id"`
	RequesterID string    `json:"requester_id"`
	ReviewerID  string    `json:"reviewer_id"`
	Status      string    `json:"status"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

func NewLeaveReviewedEvent(leaveID, requesterID, reviewerID, status, startDate, endDate string, reviewedAt time.Time) *LeaveReviewedEvent {
	return &LeaveReviewedEvent{
		BaseEvent: newBase(EventTypeLeaveReviewed, map[string]interface{}{
			"leave_id":     leaveID,
			"requester_id": requesterID,
			"reviewer_id":  reviewerID,
			"status":       status,
		}),
		LeaveID:     leaveID,
		RequesterID: requesterID,
		ReviewerID:  reviewerID,
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		ReviewedAt:  reviewedAt,
	}
}

type WorkLogCreatedEvent struct {
	BaseEvent
	LogID  string `json:"log_id"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	// Log is the full delta pushed to live subscribers.
	Log interface{} `json:"log"`
}

func NewWorkLogCreatedEvent(logID, roomID, userID string, log interface{}) *WorkLogCreatedEvent {
	return &WorkLogCreatedEvent{
		BaseEvent: newBase(EventTypeWorkLogCreated, map[string]interface{}{
			"log_id":  logID,
			"room_id": roomID,
			"user_id": userID,
		}),
		LogID:  logID,
		RoomID: roomID,
		UserID: userID,
		Log:    log,
	}
}

type DocumentUploadedEvent struct {
	BaseEvent
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	UploadedBy string `json:"uploaded_by"`
	FileName   string `json:"file_name"`
}

func NewDocumentUploadedEvent(documentID, ownerID, uploadedBy, fileName string) *DocumentUploadedEvent {
	return &DocumentUploadedEvent{
		BaseEvent: newBase(EventTypeDocumentUploaded, map[string]interface{}{
			"document_id": documentID,
			"owner_id":    ownerID,
			"uploaded_by": uploadedBy,
			"file_name":   fileName,
		}),
		DocumentID: documentID,
		OwnerID:    ownerID,
		UploadedBy: uploadedBy,
		FileName:   fileName,
	}
}
