//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/campusmarket/service-booking/internal/application"
	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	reviewDomain "github.com/campusmarket/service-booking/internal/domain/review"
	bookingEvents "github.com/campusmarket/service-booking/internal/events"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	stack := setupBookingStack(t, db, nil)
	ctx := context.Background()

	t.Run("conditional update lets one of two stale writers through", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		bk := seedBooking(t, stack, seedListing(t, stack, provider), customer, bookingDomain.StatusPending)

		first, err := stack.Bookings.FindByID(ctx, bk.ID())
		require.NoError(t, err)
		second, err := stack.Bookings.FindByID(ctx, bk.ID())
		require.NoError(t, err)

		confirmed, cancelled := bookingDomain.StatusConfirmed, bookingDomain.StatusCancelled
		_, err = first.ApplyChange(bookingDomain.Actor{ID: provider}, bookingDomain.Change{Status: &confirmed}, time.Now())
		require.NoError(t, err)
		_, err = second.ApplyChange(bookingDomain.Actor{ID: customer}, bookingDomain.Change{Status: &cancelled}, time.Now())
		require.NoError(t, err)

		first.IncrementVersion()
		second.IncrementVersion()
		require.NoError(t, stack.Bookings.Update(ctx, first, bookingDomain.StatusPending))
		err = stack.Bookings.Update(ctx, second, bookingDomain.StatusPending)
		assert.ErrorIs(t, err, domain.ErrConflict)

		model := waitForBookingStatus(t, db, bk.ID(), "CONFIRMED", time.Second)
		assert.Equal(t, int64(2), model.Version)
	})

	t.Run("delete loses to a concurrent confirmation", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		bk := seedBooking(t, stack, seedListing(t, stack, provider), customer, bookingDomain.StatusPending)

		confirmed := "CONFIRMED"
		_, err := stack.Service.UpdateBooking(ctx, bk.ID(), bookingDomain.Actor{ID: provider}, application.UpdateBookingRequest{Status: &confirmed})
		require.NoError(t, err)

		err = stack.Bookings.Delete(ctx, bk.ID(), bookingDomain.StatusPending, bk.Version())
		assert.ErrorIs(t, err, domain.ErrConflict)

		err = stack.Bookings.Delete(ctx, uuid.New(), bookingDomain.StatusPending, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete with a stale version is a conflict", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		bk := seedBooking(t, stack, seedListing(t, stack, provider), customer, bookingDomain.StatusPending)

		notes := "ring twice"
		_, err := stack.Service.UpdateBooking(ctx, bk.ID(), bookingDomain.Actor{ID: customer}, application.UpdateBookingRequest{Notes: &notes})
		require.NoError(t, err)

		err = stack.Bookings.Delete(ctx, bk.ID(), bookingDomain.StatusPending, bk.Version())
		assert.ErrorIs(t, err, domain.ErrConflict)
		require.NoError(t, stack.Bookings.Delete(ctx, bk.ID(), bookingDomain.StatusPending, bk.Version()+1))
	})

	t.Run("pending booking is physically deleted", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		bk := seedBooking(t, stack, seedListing(t, stack, provider), customer, bookingDomain.StatusPending)

		require.NoError(t, stack.Service.DeleteBooking(ctx, bk.ID(), bookingDomain.Actor{ID: customer}))

		var count int64
		require.NoError(t, db.Table("bookings").Where("id = ?", bk.ID()).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("queries", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		listing := seedListing(t, stack, provider)
		seedBooking(t, stack, listing, customer, bookingDomain.StatusConfirmed)
		seedBooking(t, stack, listing, customer, bookingDomain.StatusCompleted)

		open, err := stack.Bookings.FindOpenByParticipant(ctx, provider)
		require.NoError(t, err)
		assert.Len(t, open, 1)

		due, err := stack.Bookings.FindByStatusAndDate(ctx, bookingDomain.StatusConfirmed, time.Now().UTC().AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.NotEmpty(t, due)

		completed := bookingDomain.StatusCompleted
		mine, total, err := stack.Bookings.FindByCustomerID(ctx, customer, bookingDomain.ListFilter{Status: &completed, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, mine, 1)
		assert.Equal(t, "09:00", *mine[0].Schedule().StartTime)

		found, total, err := stack.Listings.Search(ctx, listingDomain.SearchFilter{Query: "FOLD", Page: 1, Limit: 50})
		require.NoError(t, err)
		assert.NotZero(t, total)
		assert.NotEmpty(t, found)
	})

	t.Run("one review per booking", func(t *testing.T) {
		customer, provider := uuid.New(), uuid.New()
		listing := seedListing(t, stack, provider)
		bk := seedBooking(t, stack, listing, customer, bookingDomain.StatusCompleted)

		rv, err := reviewDomain.NewReview(bk.ID(), listing.ID(), provider, customer, 5, "great")
		require.NoError(t, err)
		require.NoError(t, stack.Reviews.Save(ctx, rv))

		dup, err := reviewDomain.NewReview(bk.ID(), listing.ID(), provider, customer, 1, "changed my mind")
		require.NoError(t, err)
		assert.ErrorIs(t, stack.Reviews.Save(ctx, dup), domain.ErrConflict)

		summary, err := stack.Reviews.SummaryForService(ctx, listing.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.Count)
		assert.InDelta(t, 5.0, summary.Average, 0.001)
	})
}

// TestUserSuspended_CancelsOpenBookings verifies that a user.suspended event
// on user.events cancels the user's open bookings and announces each
// cancellation on booking.events.
func TestUserSuspended_CancelsOpenBookings(t *testing.T) {
	db := setupPostgres(t)
	brokers := setupKafka(t)
	stack := setupBookingStack(t, db, brokers)

	suspended, provider := uuid.New(), uuid.New()
	listing := seedListing(t, stack, provider)
	pending := seedBooking(t, stack, listing, suspended, bookingDomain.StatusPending)
	completed := seedBooking(t, stack, listing, suspended, bookingDomain.StatusCompleted)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	publishTestEvent(t, brokers, bookingEvents.TopicUserEvents, "service-identity", bookingEvents.UserSuspended,
		bookingEvents.UserSuspendedEvent{UserID: suspended, Reason: "policy violation", OccurredAt: time.Now().UTC()})

	model := waitForBookingStatus(t, db, pending.ID(), "CANCELLED", 15*time.Second)
	assert.Equal(t, int64(2), model.Version)
	waitForBookingStatus(t, db, completed.ID(), "COMPLETED", time.Second)

	ce := consumeOneEvent(t, brokers, bookingEvents.TopicBookingEvents,
		bookingEvents.BookingStatusChanged, pending.ID().String(), 15*time.Second)

	var changed bookingEvents.BookingChangedEvent
	require.NoError(t, ce.ParseData(&changed))
	assert.Equal(t, "PENDING", changed.PreviousStatus)
	assert.Equal(t, "CANCELLED", changed.Status)
	assert.Equal(t, uuid.Nil, changed.ActorID)
}
