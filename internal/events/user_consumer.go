package events

import (
	"context"

	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingCanceller cancels the open bookings of a user.
type BookingCanceller interface {
	CancelBookingsForUser(ctx context.Context, userID uuid.UUID, reason string) (int, error)
}

// UserEventConsumer listens to moderation events and cancels the bookings of
// suspended users.
type UserEventConsumer struct {
	consumer  *kafka.Consumer
	canceller BookingCanceller
	logger    *zap.Logger
}

// NewUserEventConsumer creates a new UserEventConsumer.
func NewUserEventConsumer(
	brokers []string,
	groupID string,
	canceller BookingCanceller,
	logger *zap.Logger,
) *UserEventConsumer {
	return &UserEventConsumer{
		consumer:  kafka.NewConsumer(brokers, groupID, TopicUserEvents, logger),
		canceller: canceller,
		logger:    logger,
	}
}

// Start begins consuming user events. This blocks until the context is cancelled.
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *UserEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *UserEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from user topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case UserSuspended:
		return c.handleUserSuspended(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled user event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *UserEventConsumer) handleUserSuspended(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt UserSuspendedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.UserID == uuid.Nil {
		c.logger.Error("failed to parse UserSuspendedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing user suspended event",
		zap.String("user_id", evt.UserID.String()),
		zap.String("reason", evt.Reason),
	)

	n, err := c.canceller.CancelBookingsForUser(ctx, evt.UserID, evt.Reason)
	if err != nil {
		c.logger.Error("failed to cancel bookings of suspended user",
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("bookings cancelled for suspended user",
		zap.String("user_id", evt.UserID.String()),
		zap.Int("count", n),
	)
	return nil
}
