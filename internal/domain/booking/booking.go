package booking

import (
	"time"

	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
)

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id         uuid.UUID
	customerID uuid.UUID
	providerID uuid.UUID
	serviceID  uuid.UUID
	status     BookingStatus
	schedule   Schedule

	totalAmountCents int64
	currency         string
	notes            string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// Change is a requested mutation of a booking. Any combination of fields may
// be set; nil fields are untouched.
type Change struct {
	Status   *BookingStatus
	Schedule SchedulePatch
	Notes    *string
}

// IsEmpty reports whether the change requests nothing.
func (c Change) IsEmpty() bool {
	return c.Status == nil && c.Schedule.IsEmpty() && c.Notes == nil
}

// Outcome describes what ApplyChange did.
type Outcome struct {
	PreviousStatus  BookingStatus
	StatusChanged   bool
	ScheduleChanged bool
	// Override is set when an administrator changed a completed or cancelled booking.
	Override bool
}

// NewBooking creates a new Booking aggregate with status=PENDING.
func NewBooking(
	customerID uuid.UUID,
	providerID uuid.UUID,
	serviceID uuid.UUID,
	schedule Schedule,
	totalAmountCents int64,
	currency string,
	notes string,
	now time.Time,
) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if serviceID == uuid.Nil {
		return nil, domain.NewValidationError("service ID is required")
	}
	if customerID == providerID {
		return nil, domain.NewValidationError("you cannot book your own service")
	}
	if totalAmountCents < 0 {
		return nil, domain.NewValidationError("total amount cannot be negative")
	}
	if currency == "" {
		currency = domain.CurrencyKES
	}

	schedule = Schedule{}.merge(SchedulePatch{
		Date:      &schedule.Date,
		StartTime: schedule.StartTime,
		EndTime:   schedule.EndTime,
	})
	if err := schedule.validate(); err != nil {
		return nil, err
	}
	if err := schedule.checkNotPast(now); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:               uuid.New(),
		customerID:       customerID,
		providerID:       providerID,
		serviceID:        serviceID,
		status:           StatusPending,
		schedule:         schedule,
		totalAmountCents: totalAmountCents,
		currency:         currency,
		notes:            notes,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	customerID uuid.UUID,
	providerID uuid.UUID,
	serviceID uuid.UUID,
	status BookingStatus,
	schedule Schedule,
	totalAmountCents int64,
	currency string,
	notes string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		customerID:       customerID,
		providerID:       providerID,
		serviceID:        serviceID,
		status:           status,
		schedule:         schedule,
		totalAmountCents: totalAmountCents,
		currency:         currency,
		notes:            notes,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// CustomerID returns the student who booked the service.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// ProviderID returns the student offering the service.
func (b *Booking) ProviderID() uuid.UUID { return b.providerID }

// ServiceID returns the booked service listing.
func (b *Booking) ServiceID() uuid.UUID { return b.serviceID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Schedule returns the date and optional time window.
func (b *Booking) Schedule() Schedule { return b.schedule }

// TotalAmountCents returns the agreed price in cents.
func (b *Booking) TotalAmountCents() int64 { return b.totalAmountCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// Notes returns the free-text notes shared by both parties.
func (b *Booking) Notes() string { return b.notes }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Counterparty returns the other party of the booking from the actor's point
// of view. Admins and outsiders get uuid.Nil.
func (b *Booking) Counterparty(actorID uuid.UUID) uuid.UUID {
	switch actorID {
	case b.customerID:
		return b.providerID
	case b.providerID:
		return b.customerID
	}
	return uuid.Nil
}

// CanView reports whether the actor may read this booking.
func (b *Booking) CanView(actor Actor) bool {
	return !ResolveRoles(b, actor).IsEmpty()
}

// ApplyChange validates and applies a requested change. Checks run in a
// fixed order and the first failure wins; on failure the booking is left
// untouched.
func (b *Booking) ApplyChange(actor Actor, change Change, now time.Time) (Outcome, error) {
	outcome := Outcome{PreviousStatus: b.status}
	if change.IsEmpty() {
		return outcome, domain.NewValidationError("no changes requested")
	}
	roles := ResolveRoles(b, actor)

	if change.Status != nil {
		override, err := authorizeStatusChange(b.status, *change.Status, roles)
		if err != nil {
			return outcome, err
		}
		outcome.StatusChanged = true
		outcome.Override = override
	}

	merged := b.schedule
	if !change.Schedule.IsEmpty() {
		if !roles.IsParty() && !roles.Has(RoleAdmin) {
			return outcome, domain.NewForbiddenError("only the customer or the service provider can update this booking")
		}
		if b.status != StatusPending {
			if !(b.status.IsTerminal() && roles.Has(RoleAdmin)) {
				return outcome, domain.NewInvalidOperationError("can only update date/time for pending bookings")
			}
			outcome.Override = true
		}
		merged = b.schedule.merge(change.Schedule)
		if err := merged.validate(); err != nil {
			return outcome, err
		}
		if change.Schedule.Date != nil {
			if err := merged.checkNotPast(now); err != nil {
				return outcome, err
			}
		}
		outcome.ScheduleChanged = true
	}

	if change.Notes != nil && roles.IsEmpty() {
		return outcome, domain.NewForbiddenError("only the customer or the service provider can update this booking")
	}

	if change.Status != nil {
		b.status = *change.Status
	}
	b.schedule = merged
	if change.Notes != nil {
		b.notes = *change.Notes
	}
	b.updatedAt = now.UTC()
	return outcome, nil
}

// CheckDeletable enforces the deletion rule: only a party or an admin may
// delete, and only while the booking is still pending.
func (b *Booking) CheckDeletable(actor Actor) error {
	if ResolveRoles(b, actor).IsEmpty() {
		return domain.NewForbiddenError("only the customer or the service provider can delete this booking")
	}
	if b.status != StatusPending {
		return domain.NewInvalidOperationError("can only delete pending bookings")
	}
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
