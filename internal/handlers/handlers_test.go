package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var registerOnce sync.Once

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*playground.Validate)
		require.True(t, ok)
		require.NoError(t, validator.RegisterBindings(engine))
	})
	return gin.New()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// asUser stands in for AuthMiddleware
func asUser(userID string, roles ...string) gin.HandlerFunc {
	return asOperator(userID, "", roles...)
}

func asOperator(userID, operator string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{UserID: userID, Roles: roles, Operator: operator})
		c.Next()
	}
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var commuterRoles = []string{jwt.RoleCommuter}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type MockBookingOrchestrator struct {
	mock.Mock
}

func (m *MockBookingOrchestrator) BookSeats(ctx context.Context, tripID, commuterID string, req *models.BookSeatsRequest, idempotencyKey string) (*models.BookingResult, error) {
	args := m.Called(ctx, tripID, commuterID, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingResult), args.Error(1)
}

func (m *MockBookingOrchestrator) CancelBooking(ctx context.Context, tripID string, seatNumbers []int) (*models.CancellationResult, error) {
	args := m.Called(ctx, tripID, seatNumbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationResult), args.Error(1)
}

func (m *MockBookingOrchestrator) CancelBookingByID(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.CancellationResult, error) {
	args := m.Called(ctx, bookingID, actorID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationResult), args.Error(1)
}

func (m *MockBookingOrchestrator) GetBooking(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, actorID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingOrchestrator) ListCommuterBookings(ctx context.Context, commuterID string, limit, offset int) ([]*models.Booking, error) {
	args := m.Called(ctx, commuterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

type MockTicketRenderer struct {
	mock.Mock
}

func (m *MockTicketRenderer) GenerateETicket(ctx context.Context, bookingID, actorID string, isAdmin bool) ([]byte, string, error) {
	args := m.Called(ctx, bookingID, actorID, isAdmin)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type MockTripAdmin struct {
	mock.Mock
}

func (m *MockTripAdmin) GetTrip(ctx context.Context, tripID string) (*models.ScheduledTrip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduledTrip), args.Error(1)
}

func (m *MockTripAdmin) CreateTrip(ctx context.Context, req *models.CreateScheduledTripRequest) (*models.ScheduledTrip, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduledTrip), args.Error(1)
}

func (m *MockTripAdmin) UpdateTrip(ctx context.Context, tripID string, req *models.UpdateScheduledTripRequest) (*models.ScheduledTrip, error) {
	args := m.Called(ctx, tripID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduledTrip), args.Error(1)
}

func (m *MockTripAdmin) ListOperatorTrips(ctx context.Context, operatorName, sort string) ([]*models.ScheduledTrip, error) {
	args := m.Called(ctx, operatorName, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScheduledTrip), args.Error(1)
}

type MockTripSearcher struct {
	mock.Mock
}

func (m *MockTripSearcher) SearchTrips(ctx context.Context, origin, destination, date string) (*models.SearchResponse, error) {
	args := m.Called(ctx, origin, destination, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResponse), args.Error(1)
}

type MockPermitAdmin struct {
	mock.Mock
}

func (m *MockPermitAdmin) CreatePermit(ctx context.Context, req *models.CreateBusPermitRequest) (*models.BusPermit, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BusPermit), args.Error(1)
}

func (m *MockPermitAdmin) ListPermits(ctx context.Context) ([]*models.BusPermit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BusPermit), args.Error(1)
}
