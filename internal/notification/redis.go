package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	inboxSize = 100
	inboxTTL  = 30 * 24 * time.Hour
)

// InboxKey is the Redis list holding a user's most recent notifications.
func InboxKey(recipient fmt.Stringer) string {
	return "notifications:inbox:" + recipient.String()
}

// ChannelKey is the Redis pub/sub channel a user's live connections subscribe to.
func ChannelKey(recipient fmt.Stringer) string {
	return "notifications:" + recipient.String()
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisDispatcher stores each notification in the recipient's inbox and
// publishes it on the recipient's channel.
type RedisDispatcher struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisDispatcher creates a RedisDispatcher.
func NewRedisDispatcher(client redis.UniversalClient, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{client: client, logger: logger}
}

// Notify pushes the notification to the inbox and the live channel in one round trip.
func (d *RedisDispatcher) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	inbox := InboxKey(n.RecipientID)
	pipe := d.client.TxPipeline()
	pipe.LPush(ctx, inbox, payload)
	pipe.LTrim(ctx, inbox, 0, inboxSize-1)
	pipe.Expire(ctx, inbox, inboxTTL)
	pipe.Publish(ctx, ChannelKey(n.RecipientID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to dispatch notification: %w", err)
	}

	d.logger.Debug("notification dispatched",
		zap.String("recipient_id", n.RecipientID.String()),
		zap.String("type", n.Type),
	)
	return nil
}
