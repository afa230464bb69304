package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reviewDomain "github.com/campusmarket/service-booking/internal/domain/review"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// ReviewModel is the GORM model for the reviews table.
type ReviewModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ServiceID  uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID uuid.UUID `gorm:"type:uuid;index;not null"`
	ReviewerID uuid.UUID `gorm:"type:uuid;not null"`
	Rating     int       `gorm:"not null"`
	Comment    string    `gorm:"size:1000"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReviewModel) TableName() string { return "reviews" }

// GormReviewRepository implements ReviewRepository using GORM.
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository.
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// Save inserts a review. The unique index on booking_id turns a second review
// of the same booking into a conflict.
func (r *GormReviewRepository) Save(ctx context.Context, rv *reviewDomain.Review) error {
	m := toReviewModel(rv)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("this booking has already been reviewed")
		}
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

func (r *GormReviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*reviewDomain.Review, error) {
	var m ReviewModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Review for booking", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return toReviewDomain(&m), nil
}

func (r *GormReviewRepository) FindByServiceID(ctx context.Context, serviceID uuid.UUID, page, limit int) ([]*reviewDomain.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&ReviewModel{}).Where("service_id = ?", serviceID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	var models []ReviewModel
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find reviews: %w", err)
	}

	reviews := make([]*reviewDomain.Review, len(models))
	for i := range models {
		reviews[i] = toReviewDomain(&models[i])
	}
	return reviews, total, nil
}

func (r *GormReviewRepository) SummaryForService(ctx context.Context, serviceID uuid.UUID) (reviewDomain.Summary, error) {
	var row struct {
		Count   int64
		Average float64
	}
	if err := r.db.WithContext(ctx).Model(&ReviewModel{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("service_id = ?", serviceID).
		Scan(&row).Error; err != nil {
		return reviewDomain.Summary{}, fmt.Errorf("failed to summarise reviews: %w", err)
	}
	return reviewDomain.Summary{Count: row.Count, Average: row.Average}, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func toReviewModel(rv *reviewDomain.Review) ReviewModel {
	return ReviewModel{
		ID:         rv.ID(),
		BookingID:  rv.BookingID(),
		ServiceID:  rv.ServiceID(),
		ProviderID: rv.ProviderID(),
		ReviewerID: rv.ReviewerID(),
		Rating:     rv.Rating(),
		Comment:    rv.Comment(),
		CreatedAt:  rv.CreatedAt(),
	}
}

func toReviewDomain(m *ReviewModel) *reviewDomain.Review {
	return reviewDomain.Reconstruct(m.ID, m.BookingID, m.ServiceID, m.ProviderID, m.ReviewerID, m.Rating, m.Comment, m.CreatedAt)
}
