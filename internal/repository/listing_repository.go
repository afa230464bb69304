package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingModel is the GORM model for the service_listings table.
type ListingModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProviderID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Title       string    `gorm:"not null;size:120"`
	Category    string    `gorm:"not null;size:30;index"`
	Description string    `gorm:"size:2000"`
	PriceCents  int64     `gorm:"not null"`
	Currency    string    `gorm:"not null;size:3;default:'KES'"`
	Location    string    `gorm:"size:200"`
	Status      string    `gorm:"not null;size:20;index;default:'active'"`
	Version     int64     `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ListingModel) TableName() string { return "service_listings" }

// GormListingRepository implements ListingRepository using GORM.
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository.
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listingDomain.Listing, error) {
	var m ListingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Service", id.String())
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return toListingDomain(&m), nil
}

// Search returns active listings matching the filter, newest first.
func (r *GormListingRepository) Search(ctx context.Context, f listingDomain.SearchFilter) ([]*listingDomain.Listing, int64, error) {
	q := r.db.WithContext(ctx).Model(&ListingModel{}).Where("status = ?", string(listingDomain.StatusActive))
	if f.Category != nil {
		q = q.Where("category = ?", string(*f.Category))
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	return r.page(q, f.Page, f.Limit)
}

func (r *GormListingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*listingDomain.Listing, int64, error) {
	q := r.db.WithContext(ctx).Model(&ListingModel{}).Where("provider_id = ?", providerID)
	return r.page(q, page, limit)
}

func (r *GormListingRepository) page(q *gorm.DB, page, limit int) ([]*listingDomain.Listing, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	var models []ListingModel
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find listings: %w", err)
	}

	listings := make([]*listingDomain.Listing, len(models))
	for i := range models {
		listings[i] = toListingDomain(&models[i])
	}
	return listings, total, nil
}

func (r *GormListingRepository) Save(ctx context.Context, l *listingDomain.Listing) error {
	m := toListingModel(l)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// Update persists changes with optimistic locking on version.
func (r *GormListingRepository) Update(ctx context.Context, l *listingDomain.Listing) error {
	m := toListingModel(l)
	result := r.db.WithContext(ctx).
		Model(&ListingModel{}).
		Where("id = ? AND version = ?", m.ID, l.Version()-1).
		Updates(map[string]interface{}{
			"title":       m.Title,
			"category":    m.Category,
			"description": m.Description,
			"price_cents": m.PriceCents,
			"location":    m.Location,
			"status":      m.Status,
			"version":     m.Version,
			"updated_at":  m.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("listing was modified by another request, reload and try again")
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toListingModel(l *listingDomain.Listing) ListingModel {
	return ListingModel{
		ID:          l.ID(),
		ProviderID:  l.ProviderID(),
		Title:       l.Title(),
		Category:    string(l.Category()),
		Description: l.Description(),
		PriceCents:  l.PriceCents(),
		Currency:    l.Currency(),
		Location:    l.Location(),
		Status:      string(l.Status()),
		Version:     l.Version(),
		CreatedAt:   l.CreatedAt(),
		UpdatedAt:   l.UpdatedAt(),
	}
}

func toListingDomain(m *ListingModel) *listingDomain.Listing {
	return listingDomain.Reconstruct(
		m.ID, m.ProviderID,
		m.Title,
		listingDomain.Category(m.Category),
		m.Description,
		m.PriceCents,
		m.Currency, m.Location,
		listingDomain.ListingStatus(m.Status),
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
