package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	RedisURL    string // empty means in-process locks only
	LockTTL     time.Duration

	GradingWorkers        int
	PartialCreditMatching bool
	PartialCreditOrdering bool
	PassingScore          int // percentage
	GradebookDir          string

	Events EventConfig
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LockTTL:     getEnvDuration("LOCK_TTL", 30*time.Second, &errs),

		GradingWorkers:        getEnvInt("GRADING_WORKERS", 8, &errs),
		PartialCreditMatching: getEnvBool("PARTIAL_CREDIT_MATCHING", false, &errs),
		PartialCreditOrdering: getEnvBool("PARTIAL_CREDIT_ORDERING", false, &errs),
		PassingScore:          getEnvInt("PASSING_SCORE", 60, &errs),
		GradebookDir:          os.Getenv("GRADEBOOK_DIR"),

		Events: EventConfig{
			Enabled:         getEnvBool("EVENTS_ENABLED", true, &errs),
			Publisher:       getEnv("EVENTS_PUBLISHER", "kafka"),
			KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
			SubmissionTopic: getEnv("SUBMISSION_TOPIC", "attempt-submissions"),
			GradedTopic:     getEnv("GRADED_TOPIC", "grading-results"),
			ConsumerGroup:   getEnv("CONSUMER_GROUP", "quiz-engine"),
		},
	}

	if cfg.GradingWorkers < 1 {
		errs = append(errs, fmt.Errorf("GRADING_WORKERS must be at least 1, got %d", cfg.GradingWorkers))
	}
	if cfg.PassingScore < 0 || cfg.PassingScore > 100 {
		errs = append(errs, fmt.Errorf("PASSING_SCORE must be between 0 and 100, got %d", cfg.PassingScore))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
