package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/segmentio/kafka-go"
)

type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) HandleLeaveReviewed(ctx context.Context, event events.Event) error {
	reviewed, ok := event.(*events.LeaveReviewedEvent)
	if !ok {
		h.logger.Error("invalid event type for leave reviewed handler", "event_type", event.EventType())
		return fmt.Errorf("expected LeaveReviewedEvent, got %T", event)
	}

	h.logger.Info("handling leave reviewed event",
		"leave_id", reviewed.LeaveID,
		"requester_id", reviewed.RequesterID,
		"status", reviewed.Status,
		"event_id", reviewed.EventID())

	at := reviewed.ReviewedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	n := NewLeaveReviewed(reviewed.EventID(), reviewed.RequesterID, reviewed.Status, reviewed.StartDate, reviewed.EndDate, at)
	if err := h.service.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify requester of leave %s: %w", reviewed.LeaveID, err)
	}
	return nil
}

// HandleMessage decodes a leave.reviewed event read from kafka.
func (h *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var reviewed events.LeaveReviewedEvent
	if err := json.Unmarshal(msg.Value, &reviewed); err != nil {
		return fmt.Errorf("decode %s message: %w", msg.Topic, err)
	}
	if reviewed.EventType() != events.EventTypeLeaveReviewed {
		h.logger.Debug("skipping message", "topic", msg.Topic, "event_type", reviewed.EventType())
		return nil
	}
	return h.HandleLeaveReviewed(ctx, &reviewed)
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeLeaveReviewed, h.HandleLeaveReviewed)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeLeaveReviewed})
}
