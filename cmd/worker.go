package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/frahmantamala/employee-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/employee-management/internal/notification/postgres"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start workers that consume domain events from kafka.`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Start the notification worker",
	Long:  `Consume leave.reviewed events from kafka and create in-app notifications for the requester.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startNotificationWorker(); err != nil {
			fmt.Fprintf(os.Stderr, "notification worker: %v\n", err)
			os.Exit(1)
		}
	},
}

var workerGroupID string

func startNotificationWorker() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := initLogger(cfg)

	if !cfg.Kafka.Enabled {
		return errors.New("kafka is disabled; leave.reviewed notifications are handled in the server process")
	}

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	db, err := initGorm(sqlDB)
	if err != nil {
		return err
	}

	service := notification.NewService(notificationPostgres.NewNotificationRepository(db), log)
	handler := notification.NewEventHandler(service, log)

	groupID := getStringFlag(workerGroupID, cfg.Kafka.GroupID)
	topic := events.TopicName(cfg.Kafka.TopicPrefix, events.EventTypeLeaveReviewed)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error("failed to close kafka reader", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("notification worker started", "topic", topic, "group_id", groupID)
	if err := events.Consume(ctx, reader, handler.HandleMessage, log); err != nil {
		return err
	}

	log.Info("notification worker stopped")
	return nil
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().StringVar(&workerGroupID, "group-id", "", "Kafka consumer group (overrides config)")

	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
