package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

func TopicName(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return strings.TrimSuffix(prefix, ".") + "." + eventType
}

// KafkaForwarder copies bus events onto kafka topics named after the event type.
type KafkaForwarder struct {
	writer MessageWriter
	prefix string
	logger *slog.Logger
}

func NewKafkaForwarder(writer MessageWriter, topicPrefix string, logger *slog.Logger) *KafkaForwarder {
	return &KafkaForwarder{writer: writer, prefix: topicPrefix, logger: logger}
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// Register subscribes the forwarder to each event type on the bus.
func (f *KafkaForwarder) Register(bus *EventBus, eventTypes ...string) {
	for _, t := range eventTypes {
		bus.Subscribe(t, f.Handle)
	}
}

func (f *KafkaForwarder) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	msg := kafka.Message{
		Topic: TopicName(f.prefix, event.EventType()),
		Key:   []byte(event.EventID()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
		},
	}

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.logger.Error("failed to forward event to kafka",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
		return err
	}

	f.logger.Debug("event forwarded to kafka", "topic", msg.Topic, "event_id", event.EventID())
	return nil
}

// MessageHandler processes one raw kafka message.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consume fetches messages until ctx is cancelled. Every message is committed
// after its handler runs; handler failures are logged, not retried.
func Consume(ctx context.Context, reader MessageReader, handle MessageHandler, logger *slog.Logger) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := handle(ctx, msg); err != nil {
			logger.Error("message handler failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("failed to commit message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}
