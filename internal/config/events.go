package config

import (
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
)

// EventConfig holds configuration for the event bus
type EventConfig struct {
	Enabled         bool   `env:"EVENTS_ENABLED" envDefault:"true"`
	Publisher       string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka or mock
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	SubmissionTopic string `env:"SUBMISSION_TOPIC" envDefault:"attempt-submissions"`
	GradedTopic     string `env:"GRADED_TOPIC" envDefault:"grading-results"`
	ConsumerGroup   string `env:"CONSUMER_GROUP" envDefault:"quiz-engine"`
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	brokers := strings.Split(c.KafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return brokers
}

func (c *EventConfig) usesKafka() bool {
	return c.Enabled && c.Publisher == "kafka"
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.GradedTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.GradedTopic,
			Logger:       logger,
		})
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}

// CreateSubmissionSubscriber creates the subscriber for attempt.submitted events.
// Without Kafka an in-memory channel is returned so the worker can still start locally.
func (c *EventConfig) CreateSubmissionSubscriber(logger *slog.Logger) (message.Subscriber, error) {
	if !c.usesKafka() {
		logger.Info("Using in-memory submission subscriber")
		return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger)), nil
	}

	logger.Info("Creating Kafka submission subscriber",
		"brokers", c.KafkaBrokers,
		"topic", c.SubmissionTopic,
		"consumer_group", c.ConsumerGroup)

	return events.NewKafkaSubscriber(events.SubscriberConfig{
		KafkaBrokers:  c.GetKafkaBrokers(),
		ConsumerGroup: c.ConsumerGroup,
		Logger:        logger,
	})
}
