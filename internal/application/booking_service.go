package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	"github.com/campusmarket/service-booking/internal/events"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)


// EventPublisher publishes CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CreateBookingRequest holds the data needed to book a service.
type CreateBookingRequest struct {
	ServiceID uuid.UUID `json:"service_id" binding:"required"`
	Date      string    `json:"date" binding:"required"`
	StartTime *string   `json:"start_time"`
	EndTime   *string   `json:"end_time"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

// UpdateBookingRequest is a partial update of a booking. Any combination of
// fields may be set.
type UpdateBookingRequest struct {
	Status    *string `json:"status"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
}

func (r UpdateBookingRequest) toChange() (bookingDomain.Change, error) {
	var change bookingDomain.Change
	if r.Status != nil {
		status, err := bookingDomain.ParseBookingStatus(*r.Status)
		if err != nil {
			return change, domain.NewValidationError(err.Error())
		}
		change.Status = &status
	}
	if r.Date != nil && strings.TrimSpace(*r.Date) != "" {
		date, err := bookingDomain.ParseDate(*r.Date)
		if err != nil {
			return change, err
		}
		change.Schedule.Date = &date
	}
	change.Schedule.StartTime = r.StartTime
	change.Schedule.EndTime = r.EndTime
	change.Notes = r.Notes
	return change, nil
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID               uuid.UUID `json:"id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	ProviderID       uuid.UUID `json:"provider_id"`
	ServiceID        uuid.UUID `json:"service_id"`
	Status           string    `json:"status"`
	Date             string    `json:"date"`
	StartTime        *string   `json:"start_time,omitempty"`
	EndTime          *string   `json:"end_time,omitempty"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Currency         string    `json:"currency"`
	Notes            string    `json:"notes,omitempty"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings         int64            `json:"total_bookings"`
	ByStatus              map[string]int64 `json:"by_status"`
	CompletedRevenueCents int64            `json:"completed_revenue_cents"`
	Currency              string           `json:"currency"`
}

// BookingOption configures a BookingService.
type BookingOption func(*BookingService)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

// WithSideEffectTimeout bounds each post-commit notification and publish.
func WithSideEffectTimeout(d time.Duration) BookingOption {
	return func(s *BookingService) { s.effects.timeout = d }
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	listings  listingDomain.ListingRepository
	notifier  notification.Dispatcher
	publisher EventPublisher
	logger    *zap.Logger

	now     func() time.Time
	effects *postCommit
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	listings listingDomain.ListingRepository,
	notifier notification.Dispatcher,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...BookingOption,
) *BookingService {
	s := &BookingService{
		repo:      repo,
		listings:  listings,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		effects:   newPostCommit(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking books an active listing for the customer.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	listing, err := s.listings.FindByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, domain.NewInvalidOperationError("this service is no longer available")
	}

	date, err := bookingDomain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		customerID,
		listing.ProviderID(),
		listing.ID(),
		bookingDomain.Schedule{Date: date, StartTime: req.StartTime, EndTime: req.EndTime},
		listing.PriceCents(),
		listing.Currency(),
		strings.TrimSpace(req.Notes),
		s.now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("customer_id", customerID.String()),
		zap.String("service_id", listing.ID().String()),
	)

	result := toBookingDTO(bk)
	title := listing.Title()
	s.afterCommit(ctx, "booking.created", func(ctx context.Context) {
		s.notify(ctx, notification.Notification{
			RecipientID: result.ProviderID,
			Type:        notification.TypeBookingCreated,
			BookingID:   result.ID,
			Title:       "New booking request",
			Message:     fmt.Sprintf("You have a new booking request for %s on %s", title, result.Date),
			Data:        map[string]string{"service_id": result.ServiceID.String()},
		})
		s.publishEvent(ctx, events.BookingCreated, result.ID, events.BookingCreatedEvent{
			BookingID:        result.ID,
			ServiceID:        result.ServiceID,
			CustomerID:       result.CustomerID,
			ProviderID:       result.ProviderID,
			Date:             result.Date,
			TotalAmountCents: result.TotalAmountCents,
			Currency:         result.Currency,
			OccurredAt:       s.now().UTC(),
		})
	})
	return &result, nil
}

// GetBooking retrieves a single booking visible to the actor.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.CanView(actor) {
		return nil, domain.NewForbiddenError("you do not have access to this booking")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings retrieves paginated bookings placed by a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID uuid.UUID, filter bookingDomain.ListFilter) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, customerID, filter)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, filter.Page, filter.Limit)
	return &result, nil
}

// GetProviderBookings retrieves paginated bookings received by a provider.
func (s *BookingService) GetProviderBookings(ctx context.Context, providerID uuid.UUID, filter bookingDomain.ListFilter) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByProviderID(ctx, providerID, filter)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, filter.Page, filter.Limit)
	return &result, nil
}

// UpdateBooking applies a status, schedule or notes change on behalf of the
// actor. The write only lands if nobody changed the booking since it was read;
// otherwise the caller gets a conflict and should re-fetch.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor, req UpdateBookingRequest) (*BookingDTO, error) {
	change, err := req.toChange()
	if err != nil {
		return nil, err
	}
	return s.applyChange(ctx, bookingID, actor, change)
}

func (s *BookingService) applyChange(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor, change bookingDomain.Change) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	expected := bk.Status()
	outcome, err := bk.ApplyChange(actor, change, s.now())
	if err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk, expected); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("booking_id", bk.ID().String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("from", string(outcome.PreviousStatus)),
		zap.String("to", string(bk.Status())),
	}
	if outcome.Override {
		s.logger.Warn("admin override on closed booking", fields...)
	} else {
		s.logger.Info("booking updated", fields...)
	}

	result := toBookingDTO(bk)
	recipients := recipientsFor(bk, actor)
	s.afterCommit(ctx, "booking.updated", func(ctx context.Context) {
		for _, n := range changeNotifications(result, outcome, recipients) {
			s.notify(ctx, n)
		}
		s.publishChange(ctx, result, actor, outcome)
	})
	return &result, nil
}

// DeleteBooking removes a pending booking on behalf of the actor.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) error {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := bk.CheckDeletable(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bk.ID(), bk.Status(), bk.Version()); err != nil {
		return err
	}

	s.logger.Info("booking deleted",
		zap.String("booking_id", bk.ID().String()),
		zap.String("actor_id", actor.ID.String()),
	)

	deleted := toBookingDTO(bk)
	recipients := recipientsFor(bk, actor)
	s.afterCommit(ctx, "booking.deleted", func(ctx context.Context) {
		for _, id := range recipients {
			s.notify(ctx, notification.Notification{
				RecipientID: id,
				Type:        notification.TypeBookingDeleted,
				BookingID:   deleted.ID,
				Title:       "Booking removed",
				Message:     fmt.Sprintf("The pending booking for %s was removed", deleted.Date),
			})
		}
		s.publishEvent(ctx, events.BookingDeleted, deleted.ID, events.BookingDeletedEvent{
			BookingID:  deleted.ID,
			CustomerID: deleted.CustomerID,
			ProviderID: deleted.ProviderID,
			ActorID:    actor.ID,
			OccurredAt: s.now().UTC(),
		})
	})
	return nil
}

// CancelBookingsForUser cancels every open booking the user takes part in.
// Bookings that change concurrently are skipped. It returns how many were
// cancelled.
func (s *BookingService) CancelBookingsForUser(ctx context.Context, userID uuid.UUID, reason string) (int, error) {
	open, err := s.repo.FindOpenByParticipant(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to find open bookings: %w", err)
	}

	system := bookingDomain.Actor{ID: uuid.Nil, IsAdmin: true}
	cancelled := bookingDomain.StatusCancelled
	count := 0
	for _, bk := range open {
		_, err := s.applyChange(ctx, bk.ID(), system, bookingDomain.Change{Status: &cancelled})
		switch {
		case err == nil:
			count++
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrInvalidOperation):
			s.logger.Warn("skipping booking during user cancellation",
				zap.String("booking_id", bk.ID().String()),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		default:
			return count, err
		}
	}

	s.logger.Info("cancelled bookings for user",
		zap.String("user_id", userID.String()),
		zap.String("reason", reason),
		zap.Int("count", count),
	)
	return count, nil
}

// --- Admin methods ---

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, filter bookingDomain.ListFilter) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	revenue, err := s.repo.SumAmountByStatus(ctx, bookingDomain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking revenue: %w", err)
	}

	stats := &BookingStatsDTO{
		ByStatus:              make(map[string]int64, len(bookingDomain.AllStatuses)),
		CompletedRevenueCents: revenue,
		Currency:              domain.CurrencyKES,
	}
	for _, st := range bookingDomain.AllStatuses {
		stats.ByStatus[string(st)] = counts[st]
		stats.TotalBookings += counts[st]
	}
	return stats, nil
}

// Wait blocks until every in-flight post-commit side effect has finished.
func (s *BookingService) Wait() {
	s.effects.wait()
}

// --- Helpers ---

// afterCommit runs fn in the background once the write is durable.
func (s *BookingService) afterCommit(ctx context.Context, name string, fn func(ctx context.Context)) {
	s.effects.run(ctx, name, fn)
}

func (s *BookingService) notify(ctx context.Context, n notification.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("failed to send notification",
			zap.String("recipient_id", n.RecipientID.String()),
			zap.String("type", n.Type),
			zap.String("booking_id", n.BookingID.String()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) publishChange(ctx context.Context, b BookingDTO, actor bookingDomain.Actor, outcome bookingDomain.Outcome) {
	var eventType string
	switch {
	case outcome.StatusChanged:
		eventType = events.BookingStatusChanged
	case outcome.ScheduleChanged:
		eventType = events.BookingRescheduled
	default:
		return
	}
	s.publishEvent(ctx, eventType, b.ID, events.BookingChangedEvent{
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		ProviderID:     b.ProviderID,
		ActorID:        actor.ID,
		PreviousStatus: string(outcome.PreviousStatus),
		Status:         b.Status,
		Date:           b.Date,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		AdminOverride:  outcome.Override,
		OccurredAt:     s.now().UTC(),
	})
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, subject uuid.UUID, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, eventType, subject, data)
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, eventType string, subject uuid.UUID, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.Source, eventType, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := publisher.PublishEvent(ctx, events.TopicBookingEvents, cloudEvent.WithSubject(subject.String())); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", events.TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// recipientsFor returns who should hear about an actor's change: the other
// party when a party acted, both parties otherwise.
func recipientsFor(bk *bookingDomain.Booking, actor bookingDomain.Actor) []uuid.UUID {
	if other := bk.Counterparty(actor.ID); other != uuid.Nil {
		return []uuid.UUID{other}
	}
	return []uuid.UUID{bk.CustomerID(), bk.ProviderID()}
}

func changeNotifications(b BookingDTO, outcome bookingDomain.Outcome, recipients []uuid.UUID) []notification.Notification {
	var n notification.Notification
	switch {
	case outcome.StatusChanged:
		status := strings.ToLower(strings.ReplaceAll(b.Status, "_", " "))
		n = notification.Notification{
			Type:    notification.TypeBookingStatusChanged,
			Title:   "Booking " + status,
			Message: fmt.Sprintf("Your booking for %s is now %s", b.Date, status),
			Data:    map[string]string{"previous_status": string(outcome.PreviousStatus), "status": b.Status},
		}
	case outcome.ScheduleChanged:
		n = notification.Notification{
			Type:    notification.TypeBookingRescheduled,
			Title:   "Booking rescheduled",
			Message: fmt.Sprintf("Your booking was moved to %s%s", b.Date, timeSuffix(b.StartTime, b.EndTime)),
		}
	default:
		n = notification.Notification{
			Type:    notification.TypeBookingUpdated,
			Title:   "Booking updated",
			Message: fmt.Sprintf("The notes on your booking for %s were updated", b.Date),
		}
	}

	out := make([]notification.Notification, len(recipients))
	for i, id := range recipients {
		out[i] = n
		out[i].RecipientID = id
		out[i].BookingID = b.ID
	}
	return out
}

func timeSuffix(start, end *string) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf(", %s-%s", *start, *end)
	case start != nil:
		return ", from " + *start
	}
	return ""
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	s := bk.Schedule()
	return BookingDTO{
		ID:               bk.ID(),
		CustomerID:       bk.CustomerID(),
		ProviderID:       bk.ProviderID(),
		ServiceID:        bk.ServiceID(),
		Status:           string(bk.Status()),
		Date:             s.Date.Format(bookingDomain.DateLayout),
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

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}
