package application

import (
	"context"
	"fmt"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	reviewDomain "github.com/campusmarket/service-booking/internal/domain/review"
	"github.com/campusmarket/service-booking/internal/events"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReviewRequest holds a customer's rating of a completed booking.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

// ReviewDTO is the response representation of a review.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"booking_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ServiceReviewsDTO is a page of reviews plus the service's rating summary.
type ServiceReviewsDTO struct {
	Reviews       domain.PaginatedResult[ReviewDTO] `json:"reviews"`
	AverageRating float64                           `json:"average_rating"`
	ReviewCount   int64                             `json:"review_count"`
}

// ReviewOption configures a ReviewService.
type ReviewOption func(*ReviewService)

// WithReviewSideEffectTimeout bounds the post-commit notification and publish.
func WithReviewSideEffectTimeout(d time.Duration) ReviewOption {
	return func(s *ReviewService) { s.effects.timeout = d }
}

// ReviewService handles reviews of completed bookings.
type ReviewService struct {
	repo      reviewDomain.ReviewRepository
	bookings  bookingDomain.BookingRepository
	notifier  notification.Dispatcher
	publisher EventPublisher
	logger    *zap.Logger
	effects   *postCommit
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	repo reviewDomain.ReviewRepository,
	bookings bookingDomain.BookingRepository,
	notifier notification.Dispatcher,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...ReviewOption,
) *ReviewService {
	s := &ReviewService{
		repo:      repo,
		bookings:  bookings,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		effects:   newPostCommit(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReview records the customer's review of a completed booking.
func (s *ReviewService) CreateReview(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor, req CreateReviewRequest) (*ReviewDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bookingDomain.ResolveRoles(bk, actor).Has(bookingDomain.RoleCustomer) {
		return nil, domain.NewForbiddenError("only the customer can review this booking")
	}
	if bk.Status() != bookingDomain.StatusCompleted {
		return nil, domain.NewInvalidOperationError("can only review completed bookings")
	}

	rv, err := reviewDomain.NewReview(bk.ID(), bk.ServiceID(), bk.ProviderID(), actor.ID, req.Rating, req.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rv); err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		zap.String("review_id", rv.ID().String()),
		zap.String("booking_id", bk.ID().String()),
		zap.Int("rating", rv.Rating()),
	)

	result := toReviewDTO(rv)
	s.effects.run(ctx, "review.created", func(ctx context.Context) {
		if err := s.notifier.Notify(ctx, notification.Notification{
			RecipientID: result.ProviderID,
			Type:        notification.TypeReviewReceived,
			BookingID:   result.BookingID,
			Title:       "New review",
			Message:     fmt.Sprintf("You received a %d-star review", result.Rating),
			Data:        map[string]string{"service_id": result.ServiceID.String()},
			CreatedAt:   result.CreatedAt,
		}); err != nil {
			s.logger.Error("failed to send review notification", zap.String("review_id", result.ID.String()), zap.Error(err))
		}
		publishEvent(ctx, s.publisher, s.logger, events.ReviewCreated, result.BookingID, events.ReviewCreatedEvent{
			ReviewID:   result.ID,
			BookingID:  result.BookingID,
			ServiceID:  result.ServiceID,
			ProviderID: result.ProviderID,
			Rating:     result.Rating,
			OccurredAt: result.CreatedAt,
		})
	})
	return &result, nil
}

// Wait blocks until every in-flight post-commit side effect has finished.
func (s *ReviewService) Wait() {
	s.effects.wait()
}

// GetServiceReviews lists a service's reviews, newest first, with its average rating.
func (s *ReviewService) GetServiceReviews(ctx context.Context, serviceID uuid.UUID, page, limit int) (*ServiceReviewsDTO, error) {
	reviews, total, err := s.repo.FindByServiceID(ctx, serviceID, page, limit)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.SummaryForService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReviewDTO, len(reviews))
	for i, rv := range reviews {
		dtos[i] = toReviewDTO(rv)
	}
	return &ServiceReviewsDTO{
		Reviews:       domain.NewPaginatedResult(dtos, total, page, limit),
		AverageRating: summary.Average,
		ReviewCount:   summary.Count,
	}, nil
}

func toReviewDTO(rv *reviewDomain.Review) ReviewDTO {
	return ReviewDTO{
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
