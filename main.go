package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/config"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/SAP-F-2025/quiz-engine/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel).With("service", "quiz-grader")
	slogLogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis (if configured)
	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisClient == nil {
		logger.Warn("REDIS_URL not set, running with in-process locks")
	}

	// Initialize event publisher
	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(redisClient, publisher, slogLogger, validator.New(),
		services.ServiceManagerConfigFromConfig(cfg))
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize submission consumer
	subscriber, err := cfg.Events.CreateSubmissionSubscriber(slogLogger)
	if err != nil {
		log.Fatalf("Failed to create submission subscriber: %v", err)
	}
	consumer, err := events.NewSubmissionConsumer(subscriber, cfg.Events.SubmissionTopic, serviceManager.Grading(), slogLogger)
	if err != nil {
		log.Fatalf("Failed to create submission consumer: %v", err)
	}

	logger.Info("Starting grading worker",
		"environment", cfg.Environment,
		"topic", cfg.Events.SubmissionTopic,
		"workers", cfg.GradingWorkers)

	// Run blocks until a shutdown signal cancels ctx
	if err := consumer.Run(ctx); err != nil {
		logger.LogError(err, "Submission consumer stopped")
	}

	logger.Info("Shutting down grading worker...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumer.Close(); err != nil {
		log.Printf("Failed to close submission consumer: %v", err)
	}

	// Shutdown services
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Grading worker exited")
}
