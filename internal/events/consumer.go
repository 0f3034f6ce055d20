package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
)

const gradeSubmissionsHandler = "grade_submissions"

// SubmissionGrader grades one submitted attempt
type SubmissionGrader interface {
	GradeSubmission(ctx context.Context, event *AttemptSubmittedEvent) error
}

// SubscriberConfig holds configuration for the Kafka subscriber
type SubscriberConfig struct {
	KafkaBrokers  []string
	ConsumerGroup string
	Logger        *slog.Logger
}

// NewKafkaSubscriber creates a consumer-group subscriber for submission events
func NewKafkaSubscriber(config SubscriberConfig) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               config.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

// SubmissionConsumer routes attempt.submitted messages to a SubmissionGrader.
// Malformed or invalid submissions are acked and dropped; any other grading error nacks the
// message so it is redelivered.
type SubmissionConsumer struct {
	router *message.Router
	grader SubmissionGrader
	logger *slog.Logger
}

func NewSubmissionConsumer(subscriber message.Subscriber, topic string, grader SubmissionGrader, logger *slog.Logger) (*SubmissionConsumer, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	c := &SubmissionConsumer{
		router: router,
		grader: grader,
		logger: logger,
	}
	router.AddNoPublisherHandler(gradeSubmissionsHandler, topic, subscriber, c.handle)
	return c, nil
}

func (c *SubmissionConsumer) handle(msg *message.Message) error {
	ctx := msg.Context()

	event, err := DecodeAttemptSubmitted(msg.Payload)
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping undecodable submission",
			"message_uuid", msg.UUID,
			"error", err)
		return nil
	}

	if err := c.grader.GradeSubmission(ctx, event); err != nil {
		if apperrors.IsInvalidInput(err) {
			c.logger.WarnContext(ctx, "Dropping invalid submission",
				"attempt_id", event.AttemptID,
				"error", err)
			return nil
		}
		c.logger.ErrorContext(ctx, "Failed to grade submission",
			"attempt_id", event.AttemptID,
			"error", err)
		return err
	}
	return nil
}

// Run blocks until ctx is cancelled or the router is closed
func (c *SubmissionConsumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once the router has subscribed to its topic
func (c *SubmissionConsumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *SubmissionConsumer) Close() error {
	return c.router.Close()
}
