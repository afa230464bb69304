package review

import (
	"context"

	"github.com/google/uuid"
)

// Summary is the aggregate rating of a service.
type Summary struct {
	Count   int64
	Average float64
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	// Save persists a new review. A second review for the same booking is a conflict.
	Save(ctx context.Context, review *Review) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Review, error)
	FindByServiceID(ctx context.Context, serviceID uuid.UUID, page, limit int) ([]*Review, int64, error)
	SummaryForService(ctx context.Context, serviceID uuid.UUID) (Summary, error)
}
