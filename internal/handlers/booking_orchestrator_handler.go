package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// IdempotencyKeyHeader lets clients retry POST /bookings safely
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// BookingOrchestrator is implemented by services.BookingOrchestratorService
type BookingOrchestrator interface {
	BookSeats(ctx context.Context, tripID, commuterID string, req *models.BookSeatsRequest, idempotencyKey string) (*models.BookingResult, error)
	CancelBooking(ctx context.Context, tripID string, seatNumbers []int) (*models.CancellationResult, error)
	CancelBookingByID(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.CancellationResult, error)
	GetBooking(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.Booking, error)
	ListCommuterBookings(ctx context.Context, commuterID string, limit, offset int) ([]*models.Booking, error)
}

// TicketRenderer is implemented by services.TicketService
type TicketRenderer interface {
	GenerateETicket(ctx context.Context, bookingID, actorID string, isAdmin bool) ([]byte, string, error)
}

// BookingOrchestratorHandler handles booking and cancellation endpoints
type BookingOrchestratorHandler struct {
	orchestrator BookingOrchestrator
	tickets      TicketRenderer
	logger       *logrus.Logger
}

// NewBookingOrchestratorHandler creates a new BookingOrchestratorHandler
func NewBookingOrchestratorHandler(
	orchestrator BookingOrchestrator,
	tickets TicketRenderer,
	logger *logrus.Logger,
) *BookingOrchestratorHandler {
	return &BookingOrchestratorHandler{
		orchestrator: orchestrator,
		tickets:      tickets,
		logger:       logger,
	}
}

// ============================================================================
// BOOK SEATS - POST /api/v1/trips/:id/bookings
// ============================================================================

// BookSeats reserves seats on a trip and charges the commuter
// @Summary Book seats on a trip
// @Description Charges the fare and commits the seats. Retrying with the same Idempotency-Key returns the original booking.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param Idempotency-Key header string false "Client generated retry key"
// @Param id path string true "Trip ID"
// @Param request body models.BookSeatsRequest true "Seats and payment"
// @Success 201 {object} models.BookingResult
// @Success 200 {object} models.BookingResult "Replayed booking"
// @Failure 402 {object} ErrorResponse "Payment failed"
// @Failure 404 {object} ErrorResponse "Trip not found"
// @Failure 409 {object} ErrorResponse "Seats unavailable or conflict"
// @Failure 503 {object} ErrorResponse "Trip store unavailable"
// @Router /api/v1/trips/{id}/bookings [post]
func (h *BookingOrchestratorHandler) BookSeats(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		writeError(c, ErrorResponse{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "user not authenticated"})
		return
	}

	idempotencyKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		respondError(c, h.logger, models.NewValidationError(
			fmt.Sprintf("%s must be at most %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLength)))
		return
	}

	var req models.BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.orchestrator.BookSeats(c.Request.Context(), c.Param("id"), userCtx.UserID, &req, idempotencyKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// ============================================================================
// COMMUTER BOOKINGS
// ============================================================================

// ListBookings handles GET /api/v1/bookings?limit=&offset=
func (h *BookingOrchestratorHandler) ListBookings(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	bookings, err := h.orchestrator.ListCommuterBookings(c.Request.Context(), userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingOrchestratorHandler) GetBooking(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	booking, err := h.orchestrator.GetBooking(c.Request.Context(), c.Param("id"), userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DownloadTicket handles GET /api/v1/bookings/:id/ticket
// @Summary Download the e-ticket PDF
// @Tags Bookings
// @Produce application/pdf
// @Param id path string true "Booking ID"
// @Success 200 {file} file
// @Router /api/v1/bookings/{id}/ticket [get]
func (h *BookingOrchestratorHandler) DownloadTicket(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	pdf, filename, err := h.tickets.GenerateETicket(c.Request.Context(), c.Param("id"), userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingOrchestratorHandler) CancelBooking(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	result, err := h.orchestrator.CancelBookingByID(c.Request.Context(), c.Param("id"), userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ============================================================================
// OPERATOR CANCELLATIONS - POST /api/v1/operator/trips/:id/cancellations
// ============================================================================

// CancelSeats releases raw seat numbers on a trip. Every seat must be
// reserved or nothing is released.
func (h *BookingOrchestratorHandler) CancelSeats(c *gin.Context) {
	var req models.CancelSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tripID := c.Param("id")
	result, err := h.orchestrator.CancelBooking(c.Request.Context(), tripID, req.SeatNumbers)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	h.logger.WithFields(logrus.Fields{
		"trip_id":  tripID,
		"seats":    result.SeatNumbers,
		"actor_id": userCtx.UserID,
	}).Info("Seats cancelled by operator")

	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, models.NewValidationError(key + " must be a non-negative integer")
	}
	return v, nil
}
