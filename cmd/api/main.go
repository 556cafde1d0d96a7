package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/internal/application"
	"github.com/factory-platform/production-service/internal/config"
	"github.com/factory-platform/production-service/internal/domain"
	mongoRepo "github.com/factory-platform/production-service/internal/infrastructure/mongodb"
	"github.com/factory-platform/production-service/pkg/cloudevents"
	"github.com/factory-platform/production-service/pkg/kafka"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
	"github.com/factory-platform/production-service/pkg/middleware"
	"github.com/factory-platform/production-service/pkg/mongodb"
	"github.com/factory-platform/production-service/pkg/outbox"
	outboxMongo "github.com/factory-platform/production-service/pkg/outbox/mongodb"
)

const serviceName = "production-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Logging.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting production-service API")

	ctx := context.Background()

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = cfg.MongoDB.URI
	mongoConfig.Database = cfg.MongoDB.Database
	mongoClient, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	// Kafka producer
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = cfg.Kafka.Brokers
	kafkaConfig.ClientID = cfg.Kafka.ClientID
	producer := kafka.NewProducer(kafkaConfig)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	// CloudEvents factory
	eventFactory := cloudevents.NewEventFactory("/" + serviceName)

	// Repositories
	db := mongoClient.Database()
	stageRepo := mongoRepo.NewStageRepository(db, eventFactory)
	taskRepo := mongoRepo.NewTaskRepository(db, eventFactory)
	defectRepo := mongoRepo.NewDefectRepository(db, eventFactory)
	orderRepo := mongoRepo.NewOrderRepository(db, eventFactory)
	workerRepo := mongoRepo.NewWorkerRepository(db)
	materialRepo := mongoRepo.NewMaterialRepository(db)
	priceCatalog := mongoRepo.NewPriceCatalog(db)
	materialCatalog := mongoRepo.NewMaterialCatalog(db)
	transactor := mongoRepo.NewTransactor(mongoClient.Client())

	// Outbox publisher
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	outboxPublisher := outbox.NewPublisher(outboxRepo, producer, logger, m, &outbox.PublisherConfig{
		PollInterval: time.Duration(cfg.Outbox.PollIntervalMs) * time.Millisecond,
		BatchSize:    cfg.Outbox.BatchSize,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Application services
	graph := domain.NewWorkshopGraph()
	resolver := domain.NewPriceResolver(priceCatalog, cfg.Pricing.BaseRate, cfg.Pricing.BasePenaltyRate)

	routingService := application.NewRoutingService(stageRepo, orderRepo, graph, transactor, logger)
	settlementService := application.NewSettlementService(taskRepo, stageRepo, orderRepo, defectRepo,
		workerRepo, materialRepo, materialCatalog, resolver, graph, transactor, logger)
	defectService := application.NewDefectService(defectRepo, stageRepo, taskRepo, settlementService,
		graph, transactor, logger)

	// Router
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Logger))
	router.Use(middleware.Recovery(logger.Logger))
	router.Use(middleware.ErrorHandler(logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := mongoClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	apiV1 := router.Group("/api/v1")

	stages := apiV1.Group("/stages")
	{
		stages.GET("/:stageId", getStageHandler(routingService, logger))
		stages.POST("/:stageId/confirm", confirmStageHandler(routingService, logger, m))
		stages.POST("/:stageId/transfer", transferStageHandler(routingService, logger, m))
		stages.POST("/:stageId/postpone", postponeStageHandler(routingService, logger))
		stages.POST("/:stageId/hold", holdStageHandler(routingService, logger))
	}

	orders := apiV1.Group("/orders")
	{
		orders.POST("/:orderId/stages", createInitialStageHandler(routingService, logger))
		orders.GET("/:orderId/stages", listOrderStagesHandler(routingService, logger))
	}

	tasks := apiV1.Group("/tasks")
	{
		tasks.POST("", assignTaskHandler(settlementService, logger, m))
		tasks.GET("/:taskId", getTaskHandler(settlementService, logger))
		tasks.POST("/:taskId/progress", reportProgressHandler(settlementService, logger, m))
	}

	workers := apiV1.Group("/workers")
	{
		workers.GET("/:workerId/balance", getWorkerBalanceHandler(settlementService, logger))
	}

	defects := apiV1.Group("/defects")
	{
		defects.GET("", listDefectsHandler(defectService, logger))
		defects.GET("/:defectId", getDefectHandler(defectService, logger))
		defects.POST("/:defectId/approve", approveDefectHandler(defectService, logger, m))
		defects.POST("/:defectId/start", startReworkHandler(defectService, logger, m))
		defects.POST("/:defectId/complete", completeReworkHandler(defectService, logger, m))
		defects.POST("/:defectId/reject", rejectDefectHandler(defectService, logger, m))
		defects.POST("/:defectId/replenish", replenishDefectHandler(defectService, logger, m))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
