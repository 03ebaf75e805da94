package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func bookingRouter(t *testing.T, orchestrator *MockBookingOrchestrator, tickets *MockTicketRenderer, user gin.HandlerFunc) *gin.Engine {
	router := setupTestRouter(t)
	h := NewBookingOrchestratorHandler(orchestrator, tickets, quietLogger())

	router.POST("/trips/:id/bookings", user, h.BookSeats)
	router.GET("/bookings", user, h.ListBookings)
	router.GET("/bookings/:id", user, h.GetBooking)
	router.GET("/bookings/:id/ticket", user, h.DownloadTicket)
	router.POST("/bookings/:id/cancel", user, h.CancelBooking)
	router.POST("/operator/trips/:id/cancellations", user, h.CancelSeats)
	return router
}

func bookBody(seats ...int) map[string]any {
	return map[string]any{
		"seat_numbers": seats,
		"payment": map[string]any{
			"payment_method": "card",
			"card_token":     "tok_visa",
			"payer_phone":    "0771234567",
		},
	}
}

func TestBookSeats_Created(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

	result := &models.BookingResult{
		Booking:       &models.Booking{ID: "booking-1", TripID: "trip-1", SeatNumbers: models.IntArray{5, 6}},
		SeatNumbers:   []int{5, 6},
		TotalFare:     3000,
		TransactionID: "txn-1",
	}
	orchestrator.On("BookSeats", mock.Anything, "trip-1", "commuter-1",
		mock.MatchedBy(func(req *models.BookSeatsRequest) bool {
			return assert.ObjectsAreEqual([]int{6, 5}, req.SeatNumbers) && req.Payment.Method == "card"
		}), "key-123").Return(result, nil)

	req := jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(6, 5))
	req.Header.Set(IdempotencyKeyHeader, " key-123 ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"transaction_id":"txn-1"`)
	orchestrator.AssertExpectations(t)
}

func TestBookSeats_ReplayReturnsOK(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

	orchestrator.On("BookSeats", mock.Anything, "trip-1", "commuter-1", mock.Anything, "key-123").
		Return(&models.BookingResult{Booking: &models.Booking{ID: "booking-1"}, Replayed: true}, nil)

	req := jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(5))
	req.Header.Set(IdempotencyKeyHeader, "key-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"replayed":true`)
}

func TestBookSeats_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"Duplicate seats", bookBody(5, 5)},
		{"Non-positive seat", bookBody(0)},
		{"No seats", map[string]any{"payment": map[string]any{"payment_method": "card"}}},
		{"Bad phone", map[string]any{
			"seat_numbers": []int{1},
			"payment":      map[string]any{"payment_method": "card", "payer_phone": "12345"},
		}},
		{"Missing payment method", map[string]any{"seat_numbers": []int{1}, "payment": map[string]any{}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orchestrator := new(MockBookingOrchestrator)
			router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", tc.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
			orchestrator.AssertNotCalled(t, "BookSeats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBookSeats_IdempotencyKeyTooLong(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

	req := jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(5))
	req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", maxIdempotencyKeyLength+1))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookSeats_Unauthenticated(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(5)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookSeats_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		seats  []int
	}{
		{"Trip not found", services.ErrTripNotFound, http.StatusNotFound, "TRIP_NOT_FOUND", nil},
		{"Seats unavailable", &services.SeatUnavailableError{Seats: []int{7, 41}}, http.StatusConflict, "SEAT_UNAVAILABLE", []int{7, 41}},
		{"Conflict", fmt.Errorf("%w: after 3 attempts", services.ErrConflict), http.StatusConflict, "CONFLICT", nil},
		{"Payment declined", &services.PaymentFailedError{Gateway: "sandbox", Reason: "card declined"}, http.StatusPaymentRequired, "PAYMENT_FAILED", nil},
		{"Store down", fmt.Errorf("%w: load trip: dial tcp", services.ErrStoreUnavailable), http.StatusServiceUnavailable, "STORE_UNAVAILABLE", nil},
		{"In progress", services.ErrBookingInProgress, http.StatusConflict, "BOOKING_IN_PROGRESS", nil},
		{"Key reused", services.ErrIdempotencyReuse, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", nil},
		{"Not bookable", services.ErrTripNotBookable, http.StatusConflict, "TRIP_NOT_BOOKABLE", nil},
		{"Validation", models.NewValidationError("seat 60 does not exist"), http.StatusBadRequest, "VALIDATION_ERROR", nil},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orchestrator := new(MockBookingOrchestrator)
			router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))
			orchestrator.On("BookSeats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(7, 41)))

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.seats, body.Seats)
		})
	}
}

func TestStoreUnavailable_HidesDetails(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))
	orchestrator.On("BookSeats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: load trip: dial tcp 10.0.0.5:5432", services.ErrStoreUnavailable))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/trips/trip-1/bookings", bookBody(1)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestListBookings(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

	orchestrator.On("ListCommuterBookings", mock.Anything, "commuter-1", 20, 0).
		Return([]*models.Booking{{ID: "booking-1"}, {ID: "booking-2"}}, nil)
	orchestrator.On("ListCommuterBookings", mock.Anything, "commuter-1", 5, 10).
		Return([]*models.Booking{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings?limit=5&offset=10", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	orchestrator.AssertExpectations(t)
}

func TestGetBooking_PassesAdminFlag(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("admin-1", jwt.RoleAdmin))

	orchestrator.On("GetBooking", mock.Anything, "booking-1", "admin-1", true).
		Return(&models.Booking{ID: "booking-1", CommuterID: "commuter-1"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/booking-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	orchestrator.AssertExpectations(t)
}

func TestGetBooking_Forbidden(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-2", commuterRoles...))

	orchestrator.On("GetBooking", mock.Anything, "booking-1", "commuter-2", false).Return(nil, services.ErrForbidden)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/booking-1", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadTicket(t *testing.T) {
	tickets := new(MockTicketRenderer)
	router := bookingRouter(t, new(MockBookingOrchestrator), tickets, asUser("commuter-1", commuterRoles...))

	tickets.On("GenerateETicket", mock.Anything, "booking-1", "commuter-1", false).
		Return([]byte("%PDF-1.3 test"), "eticket-ABCD1234.pdf", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/booking-1/ticket", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "eticket-ABCD1234.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestCancelBooking(t *testing.T) {
	orchestrator := new(MockBookingOrchestrator)
	router := bookingRouter(t, orchestrator, nil, asUser("commuter-1", commuterRoles...))

	orchestrator.On("CancelBookingByID", mock.Anything, "booking-1", "commuter-1", false).
		Return(&models.CancellationResult{SeatNumbers: []int{5, 6}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bookings/booking-1/cancel", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"seat_numbers":[5,6]`)
}

func TestCancelSeats(t *testing.T) {
	t.Run("Released", func(t *testing.T) {
		orchestrator := new(MockBookingOrchestrator)
		router := bookingRouter(t, orchestrator, nil, asUser("op-1", jwt.RoleOperator))
		orchestrator.On("CancelBooking", mock.Anything, "trip-1", []int{5, 9}).
			Return(&models.CancellationResult{SeatNumbers: []int{5, 9}}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/operator/trips/trip-1/cancellations", map[string]any{"seat_numbers": []int{5, 9}}))

		assert.Equal(t, http.StatusOK, w.Code)
		orchestrator.AssertExpectations(t)
	})

	t.Run("Seat not reserved lists every offender", func(t *testing.T) {
		orchestrator := new(MockBookingOrchestrator)
		router := bookingRouter(t, orchestrator, nil, asUser("op-1", jwt.RoleOperator))
		orchestrator.On("CancelBooking", mock.Anything, "trip-1", []int{5, 9}).
			Return(nil, &services.SeatNotReservedError{Seats: []int{9}})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/operator/trips/trip-1/cancellations", map[string]any{"seat_numbers": []int{5, 9}}))

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "SEAT_NOT_RESERVED", body.Code)
		assert.Equal(t, []int{9}, body.Seats)
	})
}
