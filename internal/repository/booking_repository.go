package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID       uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID       uuid.UUID `gorm:"type:uuid;index;not null"`
	ServiceID        uuid.UUID `gorm:"type:uuid;index;not null"`
	Status           string    `gorm:"not null;size:20;index"`
	BookingDate      time.Time `gorm:"type:date;not null;index"`
	StartTime        *string   `gorm:"size:5"`
	EndTime          *string   `gorm:"size:5"`
	TotalAmountCents int64     `gorm:"not null"`
	Currency         string    `gorm:"not null;size:3;default:'KES'"`
	Notes            string    `gorm:"size:1000"`
	Version          int64     `gorm:"not null;default:1"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model), nil
}

// FindByCustomerID retrieves bookings placed by a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&BookingModel{}).Where("customer_id = ?", customerID)
	return r.page(q, filter, "customer bookings")
}

// FindByProviderID retrieves bookings received by a provider with pagination.
func (r *GormBookingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&BookingModel{}).Where("provider_id = ?", providerID)
	return r.page(q, filter, "provider bookings")
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&BookingModel{}), filter, "bookings")
}

func (r *GormBookingRepository) page(q *gorm.DB, filter bookingDomain.ListFilter, what string) ([]*bookingDomain.Booking, int64, error) {
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", what, err)
	}

	var models []BookingModel
	offset := (filter.Page - 1) * filter.Limit
	if err := q.Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return toDomainBookings(models), total, nil
}

// FindOpenByParticipant returns every non-terminal booking the user takes part in.
func (r *GormBookingRepository) FindOpenByParticipant(ctx context.Context, userID uuid.UUID) ([]*bookingDomain.Booking, error) {
	open := make([]string, len(bookingDomain.OpenStatuses))
	for i, s := range bookingDomain.OpenStatuses {
		open[i] = string(s)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("(customer_id = ? OR provider_id = ?) AND status IN ?", userID, userID, open).
		Order("booking_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find open bookings for user: %w", err)
	}
	return toDomainBookings(models), nil
}

// FindByStatusAndDate returns bookings in a status scheduled on a given day.
func (r *GormBookingRepository) FindByStatusAndDate(ctx context.Context, status bookingDomain.BookingStatus, date time.Time) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND booking_date = ?", string(status), date.Format(bookingDomain.DateLayout)).
		Order("start_time ASC NULLS LAST").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings by date: %w", err)
	}
	return toDomainBookings(models), nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[bookingDomain.BookingStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[bookingDomain.BookingStatus]int64, len(results))
	for _, sc := range results {
		counts[bookingDomain.BookingStatus(sc.Status)] = sc.Count
	}
	return counts, nil
}

// SumAmountByStatus returns the summed total amount for a status (admin).
func (r *GormBookingRepository) SumAmountByStatus(ctx context.Context, status bookingDomain.BookingStatus) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("COALESCE(SUM(total_amount_cents), 0)").
		Where("status = ?", string(status)).
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum booking amounts: %w", err)
	}
	return sum, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update is a compare-and-set: the row is written only if it still has the
// status the change was validated against and the version preceding
// bk.Version().
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus) error {
	model := toBookingModel(bk)
	expectedVersion := bk.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ? AND version = ?", model.ID, string(expectedStatus), expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"booking_date": model.BookingDate,
			"start_time":   model.StartTime,
			"end_time":     model.EndTime,
			"notes":        model.Notes,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lostRace(ctx, model.ID, "booking was modified by another request, reload and try again")
	}
	return nil
}

// Delete physically removes the booking if it is still in expectedStatus at
// expectedVersion.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID, expectedStatus bookingDomain.BookingStatus, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND version = ?", id, string(expectedStatus), expectedVersion).
		Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.lostRace(ctx, id, "booking changed before it could be deleted, reload and try again")
	}
	return nil
}

// lostRace tells a vanished row apart from one that changed underneath us.
func (r *GormBookingRepository) lostRace(ctx context.Context, id uuid.UUID, conflictMsg string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if count == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return domain.NewConflictError(conflictMsg)
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	s := bk.Schedule()
	return &BookingModel{
		ID:               bk.ID(),
		CustomerID:       bk.CustomerID(),
		ProviderID:       bk.ProviderID(),
		ServiceID:        bk.ServiceID(),
		Status:           string(bk.Status()),
		BookingDate:      s.Date,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		TotalAmountCents: bk.TotalAmountCents(),
		Currency:         bk.Currency(),
		Notes:            bk.Notes(),
		Version:          bk.Version(),
		CreatedAt:        bk.CreatedAt(),
		UpdatedAt:        bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		m.ID,
		m.CustomerID,
		m.ProviderID,
		m.ServiceID,
		bookingDomain.BookingStatus(m.Status),
		bookingDomain.Schedule{
			Date:      bookingDomain.NormalizeDate(m.BookingDate),
			StartTime: m.StartTime,
			EndTime:   m.EndTime,
		},
		m.TotalAmountCents,
		m.Currency,
		m.Notes,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainBookings(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toDomainBooking(&models[i])
	}
	return bookings
}
