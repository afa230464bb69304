package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(m *auth.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), RequestIDMiddleware(), LoggerMiddleware(zap.NewNop()), SecurityHeadersMiddleware())

	authed := r.Group("/", AuthMiddleware(m))
	authed.GET("/me", func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "admin": IsAdmin(c)})
	})
	authed.GET("/admin", RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	r := newRouter(m)
	userID := uuid.New()
	token, err := m.GenerateAccessToken(userID, auth.RoleStudent)
	require.NoError(t, err)

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), `"admin":false`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)
}

func TestRequireRole(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	r := newRouter(m)

	student, _ := m.GenerateAccessToken(uuid.New(), auth.RoleStudent)
	admin, _ := m.GenerateAccessToken(uuid.New(), auth.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", student).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", admin).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newRouter(auth.NewJWTManager("secret", time.Minute, time.Hour))
	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
