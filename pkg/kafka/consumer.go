package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one message. A returned error is retried with backoff.
type Handler func(ctx context.Context, msg kafkago.Message) error

const (
	maxHandlerAttempts = 5
	initialBackoff     = 200 * time.Millisecond
)

// Consumer reads a topic as part of a consumer group and commits each message
// after it has been handled.
type Consumer struct {
	reader *kafkago.Reader
	topic  string
	logger *zap.Logger
}

// NewConsumer creates a group consumer on one topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafkago.FirstOffset,
		}),
		topic:  topic,
		logger: logger.With(zap.String("topic", topic), zap.String("group", groupID)),
	}
}

// Consume blocks until ctx is cancelled. A message whose handler keeps
// failing is logged and committed after maxHandlerAttempts so one bad message
// cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafkago.ErrGroupClosed) {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		if err := c.handleWithRetry(ctx, handle, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("giving up on message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handle Handler, msg kafkago.Message) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		if err = handle(ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("message handler failed",
			zap.Int("attempt", attempt),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		if attempt == maxHandlerAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// Close closes the reader and leaves the group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
