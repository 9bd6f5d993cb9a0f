package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-builder/config"
	"checkout-builder/internal/api"
	"checkout-builder/internal/broker"
	"checkout-builder/internal/redisclient"
	"checkout-builder/internal/service"
	"checkout-builder/internal/store"
	"checkout-builder/internal/util"
	"checkout-builder/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout builder")

	tp, err := util.InitTracer("checkout-builder", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema up to date")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicChanges))

	eventPublisher := broker.NewEventPublisher(producer)

	pageService := service.NewPageService(db, redisClient, redisClient, eventPublisher, cfg.Business.PageCacheTTL)
	orderService := service.NewOrderService(db, pageService, redisClient, eventPublisher, cfg.Business.OrderIdempotencyTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Every instance fans the whole feed out to its own subscribers, so each
	// one reads with its own group starting at the latest offset.
	hub := broker.NewHub()
	changeConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges, consumerGroup(cfg.Kafka.ConsumerGroup), kafka.LastOffset)
	changeWorker := worker.NewChangeFeedWorker(changeConsumer, hub)
	go func() {
		if err := changeWorker.Start(workerCtx); err != nil {
			logger.Error("Change feed worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(pageService, orderService, hub, cfg.Auth.JWTSecret, map[string]api.ReadinessCheck{
		"database": db.Ping,
		"redis":    redisClient.Ping,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	// open change streams never go idle on their own
	srv.RegisterOnShutdown(handler.CloseStreams)

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()

	if err := changeWorker.Stop(); err != nil {
		logger.Warn("Failed to stop change feed worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

func consumerGroup(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base
	}
	return base + "-" + host
}
