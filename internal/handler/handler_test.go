package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusmarket/service-booking/internal/application"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/internal/repository/memory"
	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	response.UseJSONFieldNames()
}

type discardPublisher struct{}

func (discardPublisher) PublishEvent(context.Context, string, kafka.CloudEvent) error { return nil }

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	jwt      *auth.JWTManager
	bookings *application.BookingService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	bookingRepo := memory.NewBookingRepository()
	listingRepo := memory.NewListingRepository()
	dispatcher := notification.NewLogDispatcher(logger)
	now := func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	bookingSvc := application.NewBookingService(bookingRepo, listingRepo, dispatcher, discardPublisher{}, logger, application.WithClock(now))
	listingSvc := application.NewListingService(listingRepo, logger)
	reviewSvc := application.NewReviewService(memory.NewReviewRepository(), bookingRepo, dispatcher, discardPublisher{}, logger)
	t.Cleanup(bookingSvc.Wait)
	t.Cleanup(reviewSvc.Wait)

	jwtManager := auth.NewJWTManager("handler-test-secret", time.Hour, time.Hour)
	router := gin.New()
	api := router.Group("")
	NewBookingHandler(bookingSvc, reviewSvc).RegisterRoutes(api, jwtManager)
	NewListingHandler(listingSvc, reviewSvc).RegisterRoutes(api, jwtManager)
	NewAdminBookingHandler(bookingSvc).RegisterRoutes(api, jwtManager)

	return &testServer{t: t, router: router, jwt: jwtManager, bookings: bookingSvc}
}

func (s *testServer) token(userID uuid.UUID, role auth.Role) string {
	s.t.Helper()
	tok, err := s.jwt.GenerateAccessToken(userID, role)
	require.NoError(s.t, err)
	return tok
}

type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Error      *response.ErrorBody `json:"error"`
	Pagination *response.Pagination
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	providerID, customerID, outsiderID := uuid.New(), uuid.New(), uuid.New()
	provider := s.token(providerID, auth.RoleStudent)
	customer := s.token(customerID, auth.RoleStudent)
	outsider := s.token(outsiderID, auth.RoleStudent)
	admin := s.token(uuid.New(), auth.RoleAdmin)

	code, env := s.do(http.MethodPost, "/api/v1/services", provider, map[string]interface{}{
		"title": "Room cleaning", "category": "cleaning", "price_cents": 60000,
	})
	require.Equal(t, http.StatusCreated, code)
	listing := decode[application.ListingDTO](t, env)

	code, env = s.do(http.MethodPost, "/api/v1/bookings", customer, map[string]interface{}{
		"service_id": listing.ID, "date": "2026-03-12", "start_time": "10:00", "end_time": "12:00",
	})
	require.Equal(t, http.StatusCreated, code)
	booking := decode[application.BookingDTO](t, env)
	assert.Equal(t, "PENDING", booking.Status)
	assert.Equal(t, int64(60000), booking.TotalAmountCents)
	path := "/api/v1/bookings/" + booking.ID.String()

	code, _ = s.do(http.MethodGet, path, outsider, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPatch, path, customer, map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
	assert.Equal(t, "only the service provider can perform this action", env.Error.Message)

	code, env = s.do(http.MethodPatch, path, provider, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "booking is already PENDING", env.Error.Message)

	code, env = s.do(http.MethodPatch, path, provider, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CONFIRMED", decode[application.BookingDTO](t, env).Status)

	code, env = s.do(http.MethodPatch, path, customer, map[string]string{"date": "2026-03-13"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "INVALID_OPERATION", env.Error.Code)

	code, _ = s.do(http.MethodDelete, path, customer, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(http.MethodGet, "/api/v1/bookings?as=provider&status=confirmed", provider, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Pagination.Total)

	code, env = s.do(http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, booking.ID, decode[application.BookingDTO](t, env).ID)

	code, env = s.do(http.MethodGet, "/api/v1/admin/stats/bookings", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), decode[application.BookingStatsDTO](t, env).ByStatus["CONFIRMED"])
}

func TestReviewFlow(t *testing.T) {
	s := newTestServer(t)
	providerID, customerID := uuid.New(), uuid.New()
	provider := s.token(providerID, auth.RoleStudent)
	customer := s.token(customerID, auth.RoleStudent)

	_, env := s.do(http.MethodPost, "/api/v1/services", provider, map[string]interface{}{
		"title": "Printing", "category": "printing", "price_cents": 500,
	})
	listing := decode[application.ListingDTO](t, env)
	_, env = s.do(http.MethodPost, "/api/v1/bookings", customer, map[string]interface{}{
		"service_id": listing.ID, "date": "2026-03-10",
	})
	booking := decode[application.BookingDTO](t, env)
	reviews := "/api/v1/bookings/" + booking.ID.String() + "/reviews"

	code, _ := s.do(http.MethodPost, reviews, customer, map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "booking not completed yet")

	code, _ = s.do(http.MethodPatch, "/api/v1/bookings/"+booking.ID.String(), provider, map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodPost, reviews, customer, map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Fields, "rating")

	code, _ = s.do(http.MethodPost, reviews, customer, map[string]interface{}{"rating": 5, "comment": "Fast"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(http.MethodPost, reviews, customer, map[string]interface{}{"rating": 4})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodGet, "/api/v1/services/"+listing.ID.String()+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[application.ServiceReviewsDTO](t, env)
	assert.Equal(t, int64(1), summary.ReviewCount)
	assert.InDelta(t, 5.0, summary.AverageRating, 0.001)
}

func TestListingRoutes(t *testing.T) {
	s := newTestServer(t)
	ownerID := uuid.New()
	owner := s.token(ownerID, auth.RoleStudent)
	other := s.token(uuid.New(), auth.RoleStudent)

	_, env := s.do(http.MethodPost, "/api/v1/services", owner, map[string]interface{}{
		"title": "Groceries run", "category": "errands", "price_cents": 20000,
	})
	listing := decode[application.ListingDTO](t, env)
	path := "/api/v1/services/" + listing.ID.String()

	code, env := s.do(http.MethodGet, "/api/v1/services?category=errands&q=grocer", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Pagination.Total)

	code, _ = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/services/mine", owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Pagination.Total)

	code, _ = s.do(http.MethodPut, path, other, map[string]interface{}{"price_cents": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPut, path, owner, map[string]interface{}{"price_cents": 25000})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = s.do(http.MethodGet, "/api/v1/services?category=errands", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), env.Pagination.Total)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	student := s.token(uuid.New(), auth.RoleStudent)

	code, env := s.do(http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	code, _ = s.do(http.MethodGet, "/api/v1/bookings/not-a-uuid", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/v1/bookings?as=landlord", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/v1/bookings?status=lost", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/v1/bookings", student, map[string]string{"notes": "hi"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "service_id")
	assert.Contains(t, env.Error.Fields, "date")

	code, env = s.do(http.MethodPatch, "/api/v1/bookings/"+uuid.NewString(), student, map[string]string{})
	assert.Equal(t, http.StatusNotFound, code, "lookup happens before the empty-change check: %+v", env.Error)

	code, _ = s.do(http.MethodGet, "/api/v1/admin/bookings", student, nil)
	assert.Equal(t, http.StatusForbidden, code)
}
