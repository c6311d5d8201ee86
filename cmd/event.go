package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test events onto the event bus and, when kafka is enabled, the broker.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging. leave.reviewed builds a full review event for --requester.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventData      string
	eventRequester string
	eventStatus    string
)

func testEvent(eventType string) events.Event {
	if eventType == events.EventTypeLeaveReviewed {
		today := time.Now().UTC().Format("2006-01-02")
		return events.NewLeaveReviewedEvent("cli-"+fmt.Sprint(time.Now().Unix()), eventRequester, "cli", eventStatus, today, today, time.Now().UTC())
	}
	return events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}
}

func publishTestEvent(ctx context.Context, eventType string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := initLogger(cfg)

	eventBus := events.NewEventBus(log)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		log.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if cfg.Kafka.Enabled {
		writer := events.NewKafkaWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		events.NewKafkaForwarder(writer, cfg.Kafka.TopicPrefix, log).Register(eventBus, eventType)
	}

	event := testEvent(eventType)
	log.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	log.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().StringVar(&eventRequester, "requester", "", "Requester id for leave.reviewed events")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "approved", "Decision for leave.reviewed events")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
