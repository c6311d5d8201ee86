package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/employee-management/api"
	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/auth"
	authPostgres "github.com/frahmantamala/employee-management/internal/auth/postgres"
	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/frahmantamala/employee-management/internal/dashboard"
	"github.com/frahmantamala/employee-management/internal/document"
	documentPostgres "github.com/frahmantamala/employee-management/internal/document/postgres"
	"github.com/frahmantamala/employee-management/internal/leave"
	leavePostgres "github.com/frahmantamala/employee-management/internal/leave/postgres"
	"github.com/frahmantamala/employee-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/employee-management/internal/notification/postgres"
	"github.com/frahmantamala/employee-management/internal/profile"
	profilePostgres "github.com/frahmantamala/employee-management/internal/profile/postgres"
	"github.com/frahmantamala/employee-management/internal/storage"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/frahmantamala/employee-management/internal/transport/middleware"
	"github.com/frahmantamala/employee-management/internal/transport/rest"
	"github.com/frahmantamala/employee-management/internal/worklog"
	worklogPostgres "github.com/frahmantamala/employee-management/internal/worklog/postgres"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config        *internal.Config
	DB            *sqlx.DB
	Gorm          *gorm.DB
	Redis         *redis.Client
	KafkaWriter   *kafka.Writer
	EventBus      *events.EventBus
	Router        *chi.Mux
	HealthChecker *rest.HealthHandler
	Logger        *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		deps.close()
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "kafka", deps.KafkaWriter != nil, "redis", deps.Redis != nil)

	// WriteTimeout stays at the configured value; 0 keeps the SSE stream open
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

// close drains in-flight event handlers before closing the stores they use.
func (d *Dependencies) close() {
	d.EventBus.Wait()
	if d.KafkaWriter != nil {
		if err := d.KafkaWriter.Close(); err != nil {
			d.Logger.Error("Kafka writer close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	log := deps.Logger
	baseHandler := transport.NewBaseHandler(log)

	store, err := storage.NewOSStore(cfg.Storage, log)
	if err != nil {
		return err
	}

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokenGen, log)
	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		return err
	}
	rbac := auth.NewRBACAuthorization(authorizer, log)

	profileService := profile.NewService(profilePostgres.NewProfileRepository(deps.Gorm), store, log, cfg.Security.BCryptCost)
	leaveService := leave.NewService(leavePostgres.NewLeaveRepository(deps.Gorm), deps.EventBus, log)
	documentService := document.NewService(documentPostgres.NewDocumentRepository(deps.Gorm), store, deps.EventBus, log)
	worklogService := worklog.NewService(worklogPostgres.NewWorkLogRepository(deps.Gorm), profileService, deps.EventBus, log)
	notificationService := notification.NewService(notificationPostgres.NewNotificationRepository(deps.Gorm), log)
	dashboardService := dashboard.NewService(dashboard.NewSQLCounter(deps.DB), authorizer, log)

	hub := worklog.NewHub(log)
	hub.Register(deps.EventBus)
	notificationHub := notification.NewHub(log)
	notificationHub.Register(deps.EventBus)

	if deps.KafkaWriter != nil {
		// the notifications worker consumes leave.reviewed from kafka instead
		events.NewKafkaForwarder(deps.KafkaWriter, cfg.Kafka.TopicPrefix, log).Register(deps.EventBus, events.AllEventTypes...)
	} else {
		notification.NewEventHandler(notificationService, log).RegisterEventHandlers(deps.EventBus)
	}

	doc, err := middleware.LoadOpenAPI(context.Background(), api.OpenAPI)
	if err != nil {
		return err
	}
	openAPI, err := middleware.OpenAPIValidator(doc, log)
	if err != nil {
		return err
	}

	mws := rest.Middlewares{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPI:        openAPI,
		Avatars:        store.FileServer("avatars"),
	}
	if deps.Redis != nil {
		mws.Idempotency = middleware.Idempotency(deps.Redis, cfg.Redis.IdempotencyTTL, log)
	}
	if cfg.RateLimit.LoginPerSecond > 0 {
		mws.LoginRateLimit = middleware.RateLimitByIP(rate.Limit(cfg.RateLimit.LoginPerSecond), cfg.RateLimit.LoginBurst)
	}

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(baseHandler, authService),
		Profile:      profile.NewHandler(baseHandler, profileService, store.MaxBytes()),
		Leave:        leave.NewHandler(baseHandler, leaveService),
		Document:     document.NewHandler(baseHandler, documentService, store.MaxBytes()),
		WorkLog:      worklog.NewHandler(baseHandler, worklogService, hub),
		Notification: notification.NewHandler(baseHandler, notificationService, notificationHub),
		Dashboard:    dashboard.NewHandler(baseHandler, dashboardService),
	}

	rest.RegisterAllRoutes(deps.Router, deps.HealthChecker, rbac, handlers, mws, log)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := initLogger(config)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	rdb, err := initRedis(config.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	var writer *kafka.Writer
	if config.Kafka.Enabled {
		writer = events.NewKafkaWriter(config.Kafka.Brokers)
	}

	deps := &Dependencies{
		Config:      config,
		Logger:      log,
		DB:          db,
		Gorm:        gormDB,
		Redis:       rdb,
		KafkaWriter: writer,
		EventBus:    events.NewEventBus(log),
		Router:      chi.NewRouter(),
	}

	var healthRedis redis.UniversalClient
	if rdb != nil {
		healthRedis = rdb
	}
	deps.HealthChecker = rest.NewHealthHandler(db.DB, healthRedis)
	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
}

// initRedis returns nil when no address is configured.
func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
