package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/internal/repository/memory"
	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type recordingDispatcher struct {
	mu      sync.Mutex
	sent    []notification.Notification
	ctxErrs []error
	err     error
	panic   bool
}

func (d *recordingDispatcher) Notify(ctx context.Context, n notification.Notification) error {
	if d.panic {
		panic("dispatcher exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	return d.err
}

func (d *recordingDispatcher) Sent() []notification.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Notification(nil), d.sent...)
}

func (d *recordingDispatcher) Recipients() []uuid.UUID {
	var ids []uuid.UUID
	for _, n := range d.Sent() {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	topics []string
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ce)
	return p.err
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

var errUnavailable = errors.New("downstream unavailable")

type bookingFixture struct {
	svc        *BookingService
	repo       *memory.BookingRepository
	listings   *memory.ListingRepository
	dispatcher *recordingDispatcher
	publisher  *recordingPublisher
}

func newBookingFixture(t *testing.T, logger *zap.Logger) *bookingFixture {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &bookingFixture{
		repo:       memory.NewBookingRepository(),
		listings:   memory.NewListingRepository(),
		dispatcher: &recordingDispatcher{},
		publisher:  &recordingPublisher{},
	}
	f.svc = NewBookingService(f.repo, f.listings, f.dispatcher, f.publisher, logger,
		WithClock(fixedClock), WithSideEffectTimeout(time.Second))
	return f
}

// seed stores a booking in the given status dated two days after testNow.
func (f *bookingFixture) seed(t *testing.T, customer, provider uuid.UUID, status bookingDomain.BookingStatus) *bookingDomain.Booking {
	t.Helper()
	start, end := "10:00", "11:00"
	bk := bookingDomain.ReconstructBooking(
		uuid.New(), customer, provider, uuid.New(), status,
		bookingDomain.Schedule{Date: bookingDomain.NormalizeDate(testNow.AddDate(0, 0, 2)), StartTime: &start, EndTime: &end},
		150000, "KES", "", 1, testNow.Add(-time.Hour), testNow.Add(-time.Hour),
	)
	require.NoError(t, f.repo.Save(context.Background(), bk))
	return bk
}

func (f *bookingFixture) seedListing(t *testing.T, provider uuid.UUID) *listingDomain.Listing {
	t.Helper()
	l, err := listingDomain.NewListing(provider, "Calculus tutoring", listingDomain.CategoryTutoring, "MAT 201 revision", 80000, "KES", "Library, 2nd floor")
	require.NoError(t, err)
	require.NoError(t, f.listings.Save(context.Background(), l))
	return l
}

func ptr[T any](v T) *T { return &v }
