package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/idempotency"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/kafka"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/mongodb"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/outbox"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/tracing"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/api/handlers"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	mongoRepo "github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/mongodb"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/notify"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/projections"
)

const serviceName = "import-schedule-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting import-schedule-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics. Idempotency counters register on the
	// same registry so they show up on /metrics.
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	businessMetrics := middleware.NewBusinessMetrics(m)
	idempotencyMetrics := idempotency.NewMetrics(m.Registry())
	logger.Info("Metrics initialized")

	// Initialize MongoDB. The command monitor observes every driver
	// operation, so all collections get spans, metrics and query logs.
	config.MongoDB.Monitor = mongodb.NewCommandMonitor(m, logger)
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize idempotency indexes
	if err := idempotency.InitializeIndexes(ctx, mongoClient.Database()); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	} else {
		logger.Info("Idempotency indexes initialized")
	}

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceImportSchedule)

	// Initialize repositories with the shared database handle
	db := mongoClient.Database()
	shipmentRepo := mongoRepo.NewShipmentRepository(db, eventFactory)
	warehouseRepo := mongoRepo.NewWarehouseRepository(db, eventFactory)
	prefsRepo := mongoRepo.NewPreferencesRepository(db)
	deliveryRepo := mongoRepo.NewDeliveryRepository(db, eventFactory)

	// Initialize idempotency repositories
	idempotencyKeyRepo := idempotency.NewMongoKeyRepository(db)
	processedMsgRepo := idempotency.NewMongoMessageRepository(db)
	logger.Info("Idempotency repositories initialized")

	// Initialize and start outbox publisher. All repositories write to the
	// same outbox collection, so one publisher drains them all.
	outboxPublisher := outbox.NewPublisher(
		shipmentRepo.GetOutboxRepository(),
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	readModel := projections.NewMongoShipmentReadModel(db)
	shipmentService := application.NewShipmentApplicationService(shipmentRepo, logger)
	warehouseService := application.NewWarehouseApplicationService(warehouseRepo, readModel, logger)
	notifier := notify.NewWebhookNotifier(logger, m)
	notificationService := application.NewNotificationApplicationService(prefsRepo, deliveryRepo, notifier, logger)
	reportService := application.NewReportApplicationService(shipmentRepo, logger)

	// Start the notification dispatcher: consume shipment events and fan
	// them out to subscribed webhooks, deduplicating redeliveries.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	dedupConfig := idempotency.DefaultConsumerConfig(
		serviceName,
		kafka.Topics.ShipmentEvents,
		config.Kafka.ConsumerGroup,
		processedMsgRepo,
	)
	dedupConfig.Metrics = idempotencyMetrics
	consumer := kafka.NewInstrumentedConsumer(kafka.NewConsumer(config.Kafka, logger), m)
	consumer.SubscribeAll(kafka.Topics.ShipmentEvents, kafka.EventHandler(
		idempotency.DeduplicatingHandler(dedupConfig, notificationService.HandleShipmentEvent),
	))
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Event consumer stopped")
		}
	}()
	defer consumer.Close()
	logger.Info("Notification dispatcher started", "topic", kafka.Topics.ShipmentEvents, "group", config.Kafka.ConsumerGroup)

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)

	// Configure idempotency middleware
	middlewareConfig.IdempotencyConfig = &idempotency.Config{
		ServiceName:     serviceName,
		Repository:      idempotencyKeyRepo,
		RequireKey:      false,
		OnlyMutating:    true,
		MaxKeyLength:    255,
		LockTimeout:     5 * time.Minute,
		RetentionPeriod: 24 * time.Hour,
		MaxResponseSize: 1024 * 1024,
		Metrics:         idempotencyMetrics,
	}

	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		if err := mongoClient.HealthCheck(ctx); err != nil {
			return err
		}
		if !outboxPublisher.IsRunning() {
			return errors.New("outbox publisher not running")
		}
		return nil
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API routes; authentication applies only here, never to the probes
	api := router.Group("/api")
	api.Use(middleware.Auth(config.Auth))

	handlers.NewShipmentHandlers(shipmentService, readModel, logger, businessMetrics).RegisterRoutes(api)
	handlers.NewWarehouseHandlers(warehouseService, logger).RegisterRoutes(api)
	handlers.NewReportHandlers(reportService, logger, businessMetrics).RegisterRoutes(api)

	// Preferences are keyed per user. Once tokens are configured, the shared
	// fallback record must not be readable or writable anonymously.
	notificationHandlers := handlers.NewNotificationHandlers(notificationService, logger)
	if len(config.Auth.Tokens) > 0 {
		notificationHandlers.RegisterRoutes(api, middleware.RequireUser(config.Auth))
	} else {
		notificationHandlers.RegisterRoutes(api)
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
	Auth       *middleware.AuthConfig
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}
	kafkaConfig.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", "notification-dispatcher")
	kafkaConfig.ClientID = serviceName

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB:    mongoConfig,
		Kafka:      kafkaConfig,
		Auth: &middleware.AuthConfig{
			Required:    getEnv("AUTH_REQUIRED", "false") == "true",
			Tokens:      middleware.ParseTokens(getEnv("AUTH_TOKENS", "")),
			DefaultUser: getEnv("AUTH_DEFAULT_USER", "default"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
