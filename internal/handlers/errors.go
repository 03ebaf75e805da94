package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Seats   []int  `json:"seats,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first sentinel matched by errors.Is wins.
var errorMappings = []errorMapping{
	{services.ErrTripNotFound, http.StatusNotFound, "TRIP_NOT_FOUND"},
	{services.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{services.ErrPermitNotFound, http.StatusNotFound, "PERMIT_NOT_FOUND"},
	{services.ErrSeatUnavailable, http.StatusConflict, "SEAT_UNAVAILABLE"},
	{services.ErrSeatNotReserved, http.StatusConflict, "SEAT_NOT_RESERVED"},
	{services.ErrConflict, http.StatusConflict, "CONFLICT"},
	{services.ErrTripNotBookable, http.StatusConflict, "TRIP_NOT_BOOKABLE"},
	{services.ErrBookingInProgress, http.StatusConflict, "BOOKING_IN_PROGRESS"},
	{services.ErrDuplicatePermit, http.StatusConflict, "DUPLICATE_PERMIT"},
	{services.ErrIdempotencyReuse, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED"},
	{services.ErrPermitExpired, http.StatusBadRequest, "PERMIT_EXPIRED"},
	{services.ErrPaymentFailed, http.StatusPaymentRequired, "PAYMENT_FAILED"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
}

// respondError maps a service error onto its HTTP status and aborts the request
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		writeError(c, ErrorResponse{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: validation.Error()})
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := ErrorResponse{
			Status:  m.status,
			Code:    m.code,
			Message: err.Error(),
			Seats:   services.SeatsFromError(err),
		}
		if m.status == http.StatusServiceUnavailable {
			// Store details stay in the logs
			logger.WithError(err).WithField("path", c.FullPath()).Error("Trip store unavailable")
			body.Message = services.ErrStoreUnavailable.Error()
			c.Header("Retry-After", "1")
		}
		writeError(c, body)
		return
	}

	logger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
	writeError(c, ErrorResponse{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "Something went wrong. Please try again later.",
	})
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	writeError(c, ErrorResponse{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request: " + err.Error(),
	})
}

func writeError(c *gin.Context, body ErrorResponse) {
	c.AbortWithStatusJSON(body.Status, body)
}
