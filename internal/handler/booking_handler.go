package handler

import (
	"github.com/campusmarket/service-booking/internal/application"
	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/campusmarket/service-booking/pkg/middleware"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
	reviews *application.ReviewService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, reviews *application.ReviewService) *BookingHandler {
	return &BookingHandler{service: service, reviews: reviews}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", h.UpdateBooking)
		bookings.DELETE("/:id", h.DeleteBooking)
		bookings.POST("/:id/reviews", h.CreateReview)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings?as=customer|provider.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	status, ok := parseStatusFilter(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	filter := bookingDomain.ListFilter{Status: status, Page: page, Limit: limit}

	var result *domain.PaginatedResult[application.BookingDTO]
	var err error
	switch c.DefaultQuery("as", "customer") {
	case "customer":
		result, err = h.service.GetCustomerBookings(c.Request.Context(), actor.ID, filter)
	case "provider":
		result, err = h.service.GetProviderBookings(c.Request.Context(), actor.ID, filter)
	default:
		response.BadRequest(c, "as must be customer or provider")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateBooking handles PATCH /api/v1/bookings/:id. The body may change the
// status, the schedule or the notes.
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateBooking(c.Request.Context(), bookingID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteBooking handles DELETE /api/v1/bookings/:id.
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), bookingID, actor); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CreateReview handles POST /api/v1/bookings/:id/reviews.
func (h *BookingHandler) CreateReview(c *gin.Context) {
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.reviews.CreateReview(c.Request.Context(), bookingID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
