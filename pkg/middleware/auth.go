package middleware

import (
	"errors"
	"strings"

	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "user_role"
)

// AuthMiddleware verifies the bearer token and stores the caller's identity
// on the context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token has expired"
			}
			response.Unauthorized(c, msg)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetUserRole returns the authenticated user's platform role.
func GetUserRole(c *gin.Context) (auth.Role, bool) {
	v, ok := c.Get(ctxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(auth.Role)
	return role, ok
}

// IsAdmin reports whether the verified token carries the admin role.
func IsAdmin(c *gin.Context) bool {
	role, ok := GetUserRole(c)
	return ok && role == auth.RoleAdmin
}
