package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows participant and admin listings. Zero values match all.
type ListFilter struct {
	Status *BookingStatus
	Page   int
	Limit  int
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCustomerID retrieves bookings placed by a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter ListFilter) ([]*Booking, int64, error)

	// FindByProviderID retrieves bookings received by a provider with pagination.
	FindByProviderID(ctx context.Context, providerID uuid.UUID, filter ListFilter) ([]*Booking, int64, error)

	// FindOpenByParticipant returns every non-terminal booking the user takes part in.
	FindOpenByParticipant(ctx context.Context, userID uuid.UUID) ([]*Booking, error)

	// FindByStatusAndDate returns bookings in a status scheduled on a given day.
	FindByStatusAndDate(ctx context.Context, status BookingStatus, date time.Time) ([]*Booking, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[BookingStatus]int64, error)

	// SumAmountByStatus returns the summed total amount in cents for a status (admin).
	SumAmountByStatus(ctx context.Context, status BookingStatus) (int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update writes the booking only if the stored row still has expectedStatus
	// and the version preceding booking.Version(). A lost race returns a
	// conflict error; a vanished row returns not found.
	Update(ctx context.Context, booking *Booking, expectedStatus BookingStatus) error

	// Delete removes the booking only if it is still in expectedStatus at
	// expectedVersion. Conflict and not-found follow the same rules as Update.
	Delete(ctx context.Context, id uuid.UUID, expectedStatus BookingStatus, expectedVersion int64) error
}
