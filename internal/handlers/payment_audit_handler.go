package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// PaymentAuditReader is implemented by database.PaymentAuditRepository
type PaymentAuditReader interface {
	ListByTransaction(ctx context.Context, transactionID string) ([]*models.PaymentAudit, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*models.PaymentAudit, error)
}

// PaymentAuditHandler lets admins follow up charges, in particular
// void_failed entries that need a manual refund
type PaymentAuditHandler struct {
	audits PaymentAuditReader
	logger *logrus.Logger
}

func NewPaymentAuditHandler(audits PaymentAuditReader, logger *logrus.Logger) *PaymentAuditHandler {
	return &PaymentAuditHandler{audits: audits, logger: logger}
}

// ListByBooking handles GET /api/v1/admin/bookings/:id/payments
func (h *PaymentAuditHandler) ListByBooking(c *gin.Context) {
	audits, err := h.audits.ListByBooking(c.Request.Context(), c.Param("id"))
	h.respond(c, audits, err)
}

// ListByTransaction handles GET /api/v1/admin/payments/:transaction_id
func (h *PaymentAuditHandler) ListByTransaction(c *gin.Context) {
	audits, err := h.audits.ListByTransaction(c.Request.Context(), c.Param("transaction_id"))
	h.respond(c, audits, err)
}

func (h *PaymentAuditHandler) respond(c *gin.Context, audits []*models.PaymentAudit, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": audits,
		"count":  len(audits),
	})
}
