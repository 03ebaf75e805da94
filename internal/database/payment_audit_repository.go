package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const paymentAuditColumns = `id, event_type, trip_id, commuter_id, booking_id, transaction_id,
	gateway, amount, currency, error_message, processing_time_ms, created_at`

// PaymentAuditRepository stores the append-only payment trail
type PaymentAuditRepository struct {
	db DB
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return errors.New("audit entry cannot be nil")
	}
	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `INSERT INTO payment_audits (` + paymentAuditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.EventType, audit.TripID, audit.CommuterID, audit.BookingID, audit.TransactionID,
		audit.Gateway, audit.Amount, audit.Currency, audit.ErrorMessage, audit.ProcessingTimeMs, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log payment audit: %w", translateError(err))
	}
	return nil
}

// ListByTransaction returns every event for a gateway transaction, oldest first
func (r *PaymentAuditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*models.PaymentAudit, error) {
	query := `SELECT ` + paymentAuditColumns + `
		FROM payment_audits
		WHERE transaction_id = $1
		ORDER BY created_at ASC`

	audits := []*models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, transactionID); err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}

// ListByBooking returns the trail recorded under a booking (invoice) id
func (r *PaymentAuditRepository) ListByBooking(ctx context.Context, bookingID string) ([]*models.PaymentAudit, error) {
	query := `SELECT ` + paymentAuditColumns + `
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	audits := []*models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}
