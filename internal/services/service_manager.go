package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/config"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Grading GradingConfig

	// Lifetime of a per-attempt grading lock
	LockTTL time.Duration
}

// ServiceManagerConfigFromConfig maps the process configuration onto the service manager
func ServiceManagerConfigFromConfig(cfg *config.Config) ServiceManagerConfig {
	return ServiceManagerConfig{
		Grading: GradingConfig{
			Workers:      cfg.GradingWorkers,
			PassingScore: cfg.PassingScore,
			PartialCreditDefaults: map[models.QuestionType]bool{
				models.Matching: cfg.PartialCreditMatching,
				models.Ordering: cfg.PartialCreditOrdering,
			},
			GradebookDir: cfg.GradebookDir,
		},
		LockTTL: cfg.LockTTL,
	}
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	redis     *redis.Client // nil runs without shared locks or result cache
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	gradingService GradingService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(redisClient *redis.Client, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		redis:     redisClient,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.shutdown {
		return errors.New("service manager is shut down")
	}

	sm.logger.Info("Initializing service manager")

	var locker cache.Locker
	if sm.redis != nil {
		ttl := sm.config.LockTTL
		if ttl <= 0 {
			ttl = cache.LockCacheConfig.TTL
		}
		locker = cache.NewRedisLocker(sm.redis, ttl)
		sm.logger.Info("Using redis grading locks", "ttl", ttl)
	} else {
		locker = cache.NewLocalLocker()
		sm.logger.Warn("Redis not configured, grading locks are local to this process and results are not cached")
	}

	results := cache.NewCacheHelper(sm.redis, cache.ResultCacheConfig.Prefix)
	sm.gradingService = NewGradingService(sm.logger, sm.validator, locker, results, sm.publisher, sm.config.Grading)
	sm.logger.Info("Grading service initialized",
		"workers", sm.config.Grading.Workers,
		"passing_score", sm.config.Grading.PassingScore)

	if err := sm.checkDependencies(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) checkDependencies(ctx context.Context) error {
	if sm.redis == nil {
		return nil
	}
	if err := sm.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.gradingService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	return sm.checkDependencies(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.InfoContext(ctx, "Shutting down service manager")

	var errs []error
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return errors.Join(errs...)
}
