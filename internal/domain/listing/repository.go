package listing

import (
	"context"

	"github.com/google/uuid"
)

// SearchFilter narrows a public browse. Zero values match everything.
type SearchFilter struct {
	Category *Category
	Query    string
	Page     int
	Limit    int
}

// ListingRepository defines persistence operations for service listings.
type ListingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	// Search returns active listings only.
	Search(ctx context.Context, filter SearchFilter) ([]*Listing, int64, error)
	FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*Listing, int64, error)
	Save(ctx context.Context, listing *Listing) error
	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, listing *Listing) error
}
