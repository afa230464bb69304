// Package notification delivers in-app notifications to marketplace users.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification types.
const (
	TypeBookingCreated       = "booking_created"
	TypeBookingStatusChanged = "booking_status_changed"
	TypeBookingRescheduled   = "booking_rescheduled"
	TypeBookingUpdated       = "booking_updated"
	TypeBookingDeleted       = "booking_deleted"
	TypeBookingReminder      = "booking_reminder"
	TypeReviewReceived       = "review_received"
)

// Notification is a single message for one recipient.
type Notification struct {
	RecipientID uuid.UUID         `json:"recipient_id"`
	Type        string            `json:"type"`
	BookingID   uuid.UUID         `json:"booking_id,omitempty"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Dispatcher delivers notifications. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

// LogDispatcher writes notifications to the log. It is used when no Redis URL
// is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Notify logs the notification.
func (d *LogDispatcher) Notify(_ context.Context, n Notification) error {
	d.logger.Info("notification",
		zap.String("recipient_id", n.RecipientID.String()),
		zap.String("type", n.Type),
		zap.String("booking_id", n.BookingID.String()),
		zap.String("title", n.Title),
	)
	return nil
}
