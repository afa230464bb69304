package application

import (
	"context"
	"fmt"
	"time"

	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateListingRequest holds the data needed to offer a service.
type CreateListingRequest struct {
	Title       string `json:"title" binding:"required,max=120"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description" binding:"max=2000"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	Location    string `json:"location" binding:"max=200"`
}

// UpdateListingRequest is a partial edit of a listing.
type UpdateListingRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=120"`
	Category    *string `json:"category"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	PriceCents  *int64  `json:"price_cents" binding:"omitempty,gt=0"`
	Location    *string `json:"location" binding:"omitempty,max=200"`
}

// ListingDTO is the response representation of a service listing.
type ListingDTO struct {
	ID          uuid.UUID `json:"id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingService handles the service catalogue.
type ListingService struct {
	repo   listingDomain.ListingRepository
	logger *zap.Logger
}

// NewListingService creates a new ListingService.
func NewListingService(repo listingDomain.ListingRepository, logger *zap.Logger) *ListingService {
	return &ListingService{repo: repo, logger: logger}
}

// CreateListing publishes a new service offered by the provider.
func (s *ListingService) CreateListing(ctx context.Context, providerID uuid.UUID, req CreateListingRequest) (*ListingDTO, error) {
	category, err := listingDomain.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	l, err := listingDomain.NewListing(providerID, req.Title, category, req.Description, req.PriceCents, domain.CurrencyKES, req.Location)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}

	s.logger.Info("listing created",
		zap.String("listing_id", l.ID().String()),
		zap.String("provider_id", providerID.String()),
		zap.String("category", string(category)),
	)
	result := toListingDTO(l)
	return &result, nil
}

// GetListing retrieves a listing by ID.
func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toListingDTO(l)
	return &result, nil
}

// SearchListings browses active listings by category and free text.
func (s *ListingService) SearchListings(ctx context.Context, category, query string, page, limit int) (*domain.PaginatedResult[ListingDTO], error) {
	filter := listingDomain.SearchFilter{Query: query, Page: page, Limit: limit}
	if category != "" {
		c, err := listingDomain.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		filter.Category = &c
	}

	listings, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toListingDTOs(listings), total, page, limit)
	return &result, nil
}

// GetProviderListings lists every listing owned by the provider, archived included.
func (s *ListingService) GetProviderListings(ctx context.Context, providerID uuid.UUID, page, limit int) (*domain.PaginatedResult[ListingDTO], error) {
	listings, total, err := s.repo.FindByProviderID(ctx, providerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toListingDTOs(listings), total, page, limit)
	return &result, nil
}

// UpdateListing edits a listing. Only the owner may edit.
func (s *ListingService) UpdateListing(ctx context.Context, id, userID uuid.UUID, req UpdateListingRequest) (*ListingDTO, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(userID) {
		return nil, domain.NewForbiddenError("only the provider can update this service")
	}

	details := listingDomain.Details{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Location:    req.Location,
	}
	if req.Category != nil {
		c, err := listingDomain.ParseCategory(*req.Category)
		if err != nil {
			return nil, err
		}
		details.Category = &c
	}

	if err := l.Update(details); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	result := toListingDTO(l)
	return &result, nil
}

// ArchiveListing hides a listing from browsing. The owner or an admin may archive.
func (s *ListingService) ArchiveListing(ctx context.Context, id, userID uuid.UUID, isAdmin bool) error {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !l.IsOwnedBy(userID) && !isAdmin {
		return domain.NewForbiddenError("only the provider can remove this service")
	}
	if err := l.Archive(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return err
	}

	s.logger.Info("listing archived",
		zap.String("listing_id", id.String()),
		zap.String("actor_id", userID.String()),
		zap.Bool("admin", isAdmin && !l.IsOwnedBy(userID)),
	)
	return nil
}

func toListingDTO(l *listingDomain.Listing) ListingDTO {
	return ListingDTO{
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

func toListingDTOs(listings []*listingDomain.Listing) []ListingDTO {
	dtos := make([]ListingDTO, len(listings))
	for i, l := range listings {
		dtos[i] = toListingDTO(l)
	}
	return dtos
}
