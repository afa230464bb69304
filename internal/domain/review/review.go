package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
)

const (
	MinRating        = 1
	MaxRating        = 5
	maxCommentLength = 1000
)

// Review is a customer's rating of a completed booking. There is at most one
// review per booking.
type Review struct {
	id         uuid.UUID
	bookingID  uuid.UUID
	serviceID  uuid.UUID
	providerID uuid.UUID
	reviewerID uuid.UUID
	rating     int
	comment    string
	createdAt  time.Time
}

// NewReview creates a new review. Eligibility against the booking is checked
// by the caller.
func NewReview(bookingID, serviceID, providerID, reviewerID uuid.UUID, rating int, comment string) (*Review, error) {
	if bookingID == uuid.Nil || serviceID == uuid.Nil || reviewerID == uuid.Nil {
		return nil, domain.NewValidationError("booking, service and reviewer are required")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, domain.NewValidationError(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return nil, domain.NewValidationError(fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}

	return &Review{
		id:         uuid.New(),
		bookingID:  bookingID,
		serviceID:  serviceID,
		providerID: providerID,
		reviewerID: reviewerID,
		rating:     rating,
		comment:    comment,
		createdAt:  time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Review from persistence.
func Reconstruct(id, bookingID, serviceID, providerID, reviewerID uuid.UUID, rating int, comment string, createdAt time.Time) *Review {
	return &Review{
		id:         id,
		bookingID:  bookingID,
		serviceID:  serviceID,
		providerID: providerID,
		reviewerID: reviewerID,
		rating:     rating,
		comment:    comment,
		createdAt:  createdAt,
	}
}

// Getters.
func (r *Review) ID() uuid.UUID         { return r.id }
func (r *Review) BookingID() uuid.UUID  { return r.bookingID }
func (r *Review) ServiceID() uuid.UUID  { return r.serviceID }
func (r *Review) ProviderID() uuid.UUID { return r.providerID }
func (r *Review) ReviewerID() uuid.UUID { return r.reviewerID }
func (r *Review) Rating() int           { return r.rating }
func (r *Review) Comment() string       { return r.comment }
func (r *Review) CreatedAt() time.Time  { return r.createdAt }
