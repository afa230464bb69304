// Package handler exposes the booking service over HTTP with gin.
package handler

import (
	"strconv"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	"github.com/campusmarket/service-booking/pkg/middleware"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the booking actor from the verified token. It writes a 401
// and returns false when the context carries no identity.
func actorFrom(c *gin.Context) (bookingDomain.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return bookingDomain.Actor{}, false
	}
	return bookingDomain.Actor{ID: userID, IsAdmin: middleware.IsAdmin(c)}, true
}

// parseID reads the :id path parameter. It writes a 400 and returns false on
// a malformed ID.
func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseStatusFilter reads the optional ?status= query parameter.
func parseStatusFilter(c *gin.Context) (*bookingDomain.BookingStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status, err := bookingDomain.ParseBookingStatus(raw)
	if err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	return &status, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
