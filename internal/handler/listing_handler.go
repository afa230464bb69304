package handler

import (
	"github.com/campusmarket/service-booking/internal/application"
	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/middleware"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
)

// ListingHandler handles HTTP requests for the service catalogue.
type ListingHandler struct {
	service *application.ListingService
	reviews *application.ReviewService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(service *application.ListingService, reviews *application.ReviewService) *ListingHandler {
	return &ListingHandler{service: service, reviews: reviews}
}

// RegisterRoutes registers catalogue routes. Browsing is public; changes
// need a token.
func (h *ListingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	services := r.Group("/api/v1/services")
	{
		services.GET("", h.SearchListings)
		services.GET("/mine", authMW, h.MyListings)
		services.GET("/:id", h.GetListing)
		services.GET("/:id/reviews", h.ListReviews)
		services.POST("", authMW, h.CreateListing)
		services.PUT("/:id", authMW, h.UpdateListing)
		services.DELETE("/:id", authMW, h.ArchiveListing)
	}
}

// SearchListings handles GET /api/v1/services?category=&q=.
func (h *ListingHandler) SearchListings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.SearchListings(c.Request.Context(), c.Query("category"), c.Query("q"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// MyListings handles GET /api/v1/services/mine.
func (h *ListingHandler) MyListings(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	result, err := h.service.GetProviderListings(c.Request.Context(), actor.ID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetListing handles GET /api/v1/services/:id.
func (h *ListingHandler) GetListing(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}
	result, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListReviews handles GET /api/v1/services/:id/reviews.
func (h *ListingHandler) ListReviews(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	result, err := h.reviews.GetServiceReviews(c.Request.Context(), id, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CreateListing handles POST /api/v1/services.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateListing(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateListing handles PUT /api/v1/services/:id.
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req application.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateListing(c.Request.Context(), id, actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ArchiveListing handles DELETE /api/v1/services/:id.
func (h *ListingHandler) ArchiveListing(c *gin.Context) {
	id, ok := parseID(c, "service")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.service.ArchiveListing(c.Request.Context(), id, actor.ID, actor.IsAdmin); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
