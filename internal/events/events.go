// Package events defines the booking service's Kafka contracts and consumers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicUserEvents    = "user.events"
)

// Source is the CloudEvents source of everything this service publishes.
const Source = "service-booking"

// Booking event types.
const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingRescheduled   = "booking.rescheduled"
	BookingDeleted       = "booking.deleted"
	BookingReminder      = "booking.reminder"
	ReviewCreated        = "review.created"
)

// User event types consumed from the identity service.
const (
	UserSuspended = "user.suspended"
)

// BookingCreatedEvent is published when a customer books a service.
type BookingCreatedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	ServiceID        uuid.UUID `json:"service_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	ProviderID       uuid.UUID `json:"provider_id"`
	Date             string    `json:"date"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// BookingChangedEvent is published after a committed status or schedule change.
type BookingChangedEvent struct {
	BookingID      uuid.UUID `json:"booking_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	ActorID        uuid.UUID `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	Date           string    `json:"date"`
	StartTime      *string   `json:"start_time,omitempty"`
	EndTime        *string   `json:"end_time,omitempty"`
	AdminOverride  bool      `json:"admin_override,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// BookingDeletedEvent is published after a pending booking is removed.
type BookingDeletedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReviewCreatedEvent is published when a customer reviews a completed booking.
type ReviewCreatedEvent struct {
	ReviewID   uuid.UUID `json:"review_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserSuspendedEvent is emitted by moderation when an account is suspended.
type UserSuspendedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
