// Package memory holds in-process repositories with the same conditional
// write semantics as the Postgres ones. They back unit and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	reviewDomain "github.com/campusmarket/service-booking/internal/domain/review"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
)

// BookingRepository is an in-memory BookingRepository.
type BookingRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*bookingDomain.Booking
}

// NewBookingRepository creates an empty repository.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{rows: map[uuid.UUID]*bookingDomain.Booking{}}
}

func (r *BookingRepository) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) FindByCustomerID(_ context.Context, customerID uuid.UUID, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	out, total := r.filter(f, func(b *bookingDomain.Booking) bool { return b.CustomerID() == customerID })
	return out, total, nil
}

func (r *BookingRepository) FindByProviderID(_ context.Context, providerID uuid.UUID, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	out, total := r.filter(f, func(b *bookingDomain.Booking) bool { return b.ProviderID() == providerID })
	return out, total, nil
}

func (r *BookingRepository) ListAll(_ context.Context, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	out, total := r.filter(f, func(*bookingDomain.Booking) bool { return true })
	return out, total, nil
}

func (r *BookingRepository) FindOpenByParticipant(_ context.Context, userID uuid.UUID) ([]*bookingDomain.Booking, error) {
	out, _ := r.filter(bookingDomain.ListFilter{}, func(b *bookingDomain.Booking) bool {
		return !b.Status().IsTerminal() && (b.CustomerID() == userID || b.ProviderID() == userID)
	})
	return out, nil
}

func (r *BookingRepository) FindByStatusAndDate(_ context.Context, status bookingDomain.BookingStatus, date time.Time) ([]*bookingDomain.Booking, error) {
	day := bookingDomain.NormalizeDate(date)
	out, _ := r.filter(bookingDomain.ListFilter{}, func(b *bookingDomain.Booking) bool {
		return b.Status() == status && b.Schedule().Date.Equal(day)
	})
	return out, nil
}

func (r *BookingRepository) CountByStatus(context.Context) (map[bookingDomain.BookingStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[bookingDomain.BookingStatus]int64{}
	for _, b := range r.rows {
		counts[b.Status()]++
	}
	return counts, nil
}

func (r *BookingRepository) SumAmountByStatus(_ context.Context, status bookingDomain.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, b := range r.rows {
		if b.Status() == status {
			sum += b.TotalAmountCents()
		}
	}
	return sum, nil
}

func (r *BookingRepository) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[b.ID()]; exists {
		return domain.NewConflictError("booking already exists")
	}
	r.rows[b.ID()] = cloneBooking(b)
	return nil
}

// Update mirrors the SQL compare-and-set on status and version.
func (r *BookingRepository) Update(_ context.Context, b *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if cur.Status() != expectedStatus || cur.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified by another request, reload and try again")
	}
	r.rows[b.ID()] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) Delete(_ context.Context, id uuid.UUID, expectedStatus bookingDomain.BookingStatus, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[id]
	if !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	if cur.Status() != expectedStatus || cur.Version() != expectedVersion {
		return domain.NewConflictError("booking changed before it could be deleted, reload and try again")
	}
	delete(r.rows, id)
	return nil
}

func (r *BookingRepository) filter(f bookingDomain.ListFilter, keep func(*bookingDomain.Booking) bool) ([]*bookingDomain.Booking, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*bookingDomain.Booking
	for _, b := range r.rows {
		if f.Status != nil && b.Status() != *f.Status {
			continue
		}
		if keep(b) {
			matched = append(matched, cloneBooking(b))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})
	return paginate(matched, f.Page, f.Limit), int64(len(matched))
}

func cloneBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	s := b.Schedule()
	return bookingDomain.ReconstructBooking(
		b.ID(), b.CustomerID(), b.ProviderID(), b.ServiceID(), b.Status(),
		bookingDomain.Schedule{Date: s.Date, StartTime: cloneString(s.StartTime), EndTime: cloneString(s.EndTime)},
		b.TotalAmountCents(), b.Currency(), b.Notes(), b.Version(), b.CreatedAt(), b.UpdatedAt(),
	)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ListingRepository is an in-memory ListingRepository.
type ListingRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*listingDomain.Listing
}

// NewListingRepository creates an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{rows: map[uuid.UUID]*listingDomain.Listing{}}
}

func (r *ListingRepository) FindByID(_ context.Context, id uuid.UUID) (*listingDomain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Service", id.String())
	}
	return cloneListing(l), nil
}

func (r *ListingRepository) Search(_ context.Context, f listingDomain.SearchFilter) ([]*listingDomain.Listing, int64, error) {
	term := strings.ToLower(strings.TrimSpace(f.Query))
	out, total := r.filter(f.Page, f.Limit, func(l *listingDomain.Listing) bool {
		if !l.IsActive() {
			return false
		}
		if f.Category != nil && l.Category() != *f.Category {
			return false
		}
		return term == "" ||
			strings.Contains(strings.ToLower(l.Title()), term) ||
			strings.Contains(strings.ToLower(l.Description()), term)
	})
	return out, total, nil
}

func (r *ListingRepository) FindByProviderID(_ context.Context, providerID uuid.UUID, page, limit int) ([]*listingDomain.Listing, int64, error) {
	out, total := r.filter(page, limit, func(l *listingDomain.Listing) bool { return l.ProviderID() == providerID })
	return out, total, nil
}

func (r *ListingRepository) Save(_ context.Context, l *listingDomain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[l.ID()] = cloneListing(l)
	return nil
}

func (r *ListingRepository) Update(_ context.Context, l *listingDomain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[l.ID()]
	if !ok || cur.Version() != l.Version()-1 {
		return domain.NewConflictError("listing was modified by another request, reload and try again")
	}
	r.rows[l.ID()] = cloneListing(l)
	return nil
}

func (r *ListingRepository) filter(page, limit int, keep func(*listingDomain.Listing) bool) ([]*listingDomain.Listing, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*listingDomain.Listing
	for _, l := range r.rows {
		if keep(l) {
			matched = append(matched, cloneListing(l))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})
	return paginate(matched, page, limit), int64(len(matched))
}

func cloneListing(l *listingDomain.Listing) *listingDomain.Listing {
	return listingDomain.Reconstruct(
		l.ID(), l.ProviderID(), l.Title(), l.Category(), l.Description(), l.PriceCents(),
		l.Currency(), l.Location(), l.Status(), l.Version(), l.CreatedAt(), l.UpdatedAt(),
	)
}

// ReviewRepository is an in-memory ReviewRepository.
type ReviewRepository struct {
	mu   sync.Mutex
	rows []*reviewDomain.Review
}

// NewReviewRepository creates an empty repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

func (r *ReviewRepository) Save(_ context.Context, rv *reviewDomain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.BookingID() == rv.BookingID() {
			return domain.NewConflictError("this booking has already been reviewed")
		}
	}
	r.rows = append(r.rows, rv)
	return nil
}

func (r *ReviewRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*reviewDomain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.rows {
		if rv.BookingID() == bookingID {
			return rv, nil
		}
	}
	return nil, domain.NewNotFoundError("Review for booking", bookingID.String())
}

func (r *ReviewRepository) FindByServiceID(_ context.Context, serviceID uuid.UUID, page, limit int) ([]*reviewDomain.Review, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*reviewDomain.Review
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ServiceID() == serviceID {
			matched = append(matched, r.rows[i])
		}
	}
	return paginate(matched, page, limit), int64(len(matched)), nil
}

func (r *ReviewRepository) SummaryForService(_ context.Context, serviceID uuid.UUID) (reviewDomain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s reviewDomain.Summary
	var sum int
	for _, rv := range r.rows {
		if rv.ServiceID() == serviceID {
			s.Count++
			sum += rv.Rating()
		}
	}
	if s.Count > 0 {
		s.Average = float64(sum) / float64(s.Count)
	}
	return s, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
