package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/service-booking/internal/application"
	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/middleware"
	"github.com/campusmarket/service-booking/pkg/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service *application.BookingService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	status, ok := parseStatusFilter(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(),
		bookingDomain.ListFilter{Status: status, Page: page, Limit: limit})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
