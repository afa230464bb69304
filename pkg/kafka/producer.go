// Package kafka carries CloudEvents over Kafka with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes CloudEvents.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given brokers. The topic is chosen
// per message.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// PublishEvent writes one event. The subject, when set, is the message key so
// events about the same entity stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ce CloudEvent) error {
	value, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("marshal cloud event: %w", err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Value: value,
		Headers: []kafkago.Header{
			{Key: "ce_type", Value: []byte(ce.Type)},
			{Key: "ce_id", Value: []byte(ce.ID)},
		},
	}
	if ce.Subject != "" {
		msg.Key = []byte(ce.Subject)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", ce.Type),
		zap.String("id", ce.ID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
