package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
)

// ListingStatus represents the lifecycle state of a service listing.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusArchived ListingStatus = "archived"
)

// Category groups listings for browsing.
type Category string

const (
	CategoryTutoring     Category = "tutoring"
	CategoryFoodDelivery Category = "food_delivery"
	CategoryLaundry      Category = "laundry"
	CategoryCleaning     Category = "cleaning"
	CategoryPrinting     Category = "printing"
	CategoryErrands      Category = "errands"
	CategoryOther        Category = "other"
)

// Categories lists every recognised category.
var Categories = []Category{
	CategoryTutoring,
	CategoryFoodDelivery,
	CategoryLaundry,
	CategoryCleaning,
	CategoryPrinting,
	CategoryErrands,
	CategoryOther,
}

// ParseCategory normalises a category name. Letter case is ignored.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", domain.NewValidationError(fmt.Sprintf("invalid category: %s", s))
}

const (
	maxTitleLen       = 120
	maxDescriptionLen = 2000
)

// Listing is the aggregate root for a service a student offers to others.
type Listing struct {
	id          uuid.UUID
	providerID  uuid.UUID
	title       string
	category    Category
	description string
	priceCents  int64
	currency    string
	location    string
	status      ListingStatus
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// Details carries the editable fields of a listing. For updates, nil fields
// are left unchanged.
type Details struct {
	Title       *string
	Category    *Category
	Description *string
	PriceCents  *int64
	Location    *string
}

// NewListing creates a new active listing with validated fields.
func NewListing(
	providerID uuid.UUID,
	title string,
	category Category,
	description string,
	priceCents int64,
	currency string,
	location string,
) (*Listing, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if currency == "" {
		currency = domain.CurrencyKES
	}
	l := &Listing{
		id:          uuid.New(),
		providerID:  providerID,
		title:       strings.TrimSpace(title),
		category:    category,
		description: strings.TrimSpace(description),
		priceCents:  priceCents,
		currency:    currency,
		location:    strings.TrimSpace(location),
		status:      StatusActive,
		version:     1,
	}
	if err := l.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	l.createdAt = now
	l.updatedAt = now
	return l, nil
}

// Reconstruct rebuilds a Listing from persistence data (no validation).
func Reconstruct(
	id, providerID uuid.UUID,
	title string,
	category Category,
	description string,
	priceCents int64,
	currency, location string,
	status ListingStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Listing {
	return &Listing{
		id:          id,
		providerID:  providerID,
		title:       title,
		category:    category,
		description: description,
		priceCents:  priceCents,
		currency:    currency,
		location:    location,
		status:      status,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (l *Listing) ID() uuid.UUID         { return l.id }
func (l *Listing) ProviderID() uuid.UUID { return l.providerID }
func (l *Listing) Title() string         { return l.title }
func (l *Listing) Category() Category    { return l.category }
func (l *Listing) Description() string   { return l.description }
func (l *Listing) PriceCents() int64     { return l.priceCents }
func (l *Listing) Currency() string      { return l.currency }
func (l *Listing) Location() string      { return l.location }
func (l *Listing) Status() ListingStatus { return l.status }
func (l *Listing) Version() int64        { return l.version }
func (l *Listing) CreatedAt() time.Time  { return l.createdAt }
func (l *Listing) UpdatedAt() time.Time  { return l.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the listing belongs to the given provider.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.providerID == userID
}

// IsActive returns true if the listing can still be booked.
func (l *Listing) IsActive() bool {
	return l.status == StatusActive
}

// Update applies a partial edit. Archived listings cannot be edited.
func (l *Listing) Update(d Details) error {
	if !l.IsActive() {
		return domain.NewInvalidOperationError("cannot update an archived listing")
	}
	next := *l
	if d.Title != nil {
		next.title = strings.TrimSpace(*d.Title)
	}
	if d.Category != nil {
		next.category = *d.Category
	}
	if d.Description != nil {
		next.description = strings.TrimSpace(*d.Description)
	}
	if d.PriceCents != nil {
		next.priceCents = *d.PriceCents
	}
	if d.Location != nil {
		next.location = strings.TrimSpace(*d.Location)
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.version++
	next.updatedAt = time.Now().UTC()
	*l = next
	return nil
}

// Archive hides the listing from browsing. Existing bookings are unaffected.
func (l *Listing) Archive() error {
	if !l.IsActive() {
		return domain.NewInvalidOperationError("listing is already archived")
	}
	l.status = StatusArchived
	l.version++
	l.updatedAt = time.Now().UTC()
	return nil
}

func (l *Listing) validate() error {
	if l.title == "" {
		return domain.NewValidationError("title is required")
	}
	if len(l.title) > maxTitleLen {
		return domain.NewValidationError(fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}
	if len(l.description) > maxDescriptionLen {
		return domain.NewValidationError(fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
	}
	if _, err := ParseCategory(string(l.category)); err != nil {
		return err
	}
	if l.priceCents <= 0 {
		return domain.NewValidationError("price must be greater than zero")
	}
	return nil
}
