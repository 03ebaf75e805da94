package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const bookingColumns = `
	id, trip_id, commuter_id, seat_numbers, fare, total_amount, currency,
	transaction_id, payment_gateway, status, idempotency_key,
	contact_email, contact_phone, created_at, updated_at, cancelled_at`

// BookingRepository reads the bookings ledger. Ledger writes happen inside
// ScheduledTripRepository.CompareAndStore.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// upsertBooking inserts a new ledger row or updates the mutable fields of an
// existing one
func upsertBooking(ctx context.Context, tx *sqlx.Tx, booking *models.Booking, now time.Time) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (` + bookingColumns + `) VALUES (
			:id, :trip_id, :commuter_id, :seat_numbers, :fare, :total_amount, :currency,
			:transaction_id, :payment_gateway, :status, :idempotency_key,
			:contact_email, :contact_phone, :created_at, :updated_at, :cancelled_at
		)
		ON CONFLICT (id) DO UPDATE SET
			seat_numbers = EXCLUDED.seat_numbers,
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at
	`

	if _, err := tx.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("failed to write booking %s: %w", booking.ID, translateError(err))
	}
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	if err := r.db.GetContext(ctx, booking, query, bookingID); err != nil {
		return nil, translateError(err)
	}
	return booking, nil
}

// GetByIdempotencyKey finds the booking a commuter created with a given key
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, commuterID, key string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE commuter_id = $1 AND idempotency_key = $2`

	if err := r.db.GetContext(ctx, booking, query, commuterID, key); err != nil {
		return nil, translateError(err)
	}
	return booking, nil
}

// ListByCommuter returns a commuter's bookings, newest first
func (r *BookingRepository) ListByCommuter(ctx context.Context, commuterID string, limit, offset int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE commuter_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, commuterID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListActiveByTrip returns the confirmed bookings on a trip, oldest first
func (r *BookingRepository) ListActiveByTrip(ctx context.Context, tripID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE trip_id = $1 AND status = 'confirmed'
		ORDER BY created_at ASC`

	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to list trip bookings: %w", err)
	}
	return bookings, nil
}
