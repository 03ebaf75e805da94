package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const scheduledTripColumns = `
	id, permit_number, bus_number, route_number, origin, destination, operator_name,
	trip_date, departure_time, arrival_time, destination_time, total_seats,
	reserved_seats, available_seats, fare, status, version, created_at, updated_at`

// ScheduledTripRepository handles database operations for scheduled_trips table.
// Every write after creation goes through CompareAndStore.
type ScheduledTripRepository struct {
	db DB
}

// NewScheduledTripRepository creates a new ScheduledTripRepository
func NewScheduledTripRepository(db DB) *ScheduledTripRepository {
	return &ScheduledTripRepository{db: db}
}

// Create inserts a new trip at version 1
func (r *ScheduledTripRepository) Create(ctx context.Context, trip *models.ScheduledTrip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if err := trip.CheckInventory(); err != nil {
		return err
	}

	now := time.Now()
	trip.Version = 1
	trip.CreatedAt = now
	trip.UpdatedAt = now

	query := `
		INSERT INTO scheduled_trips (
			id, permit_number, bus_number, route_number, origin, destination, operator_name,
			trip_date, departure_time, arrival_time, destination_time, total_seats,
			reserved_seats, available_seats, fare, status, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		trip.ID, trip.PermitNumber, trip.BusNumber, trip.RouteNumber, trip.Origin, trip.Destination, trip.OperatorName,
		trip.TripDate, trip.DepartureTime, trip.ArrivalTime, trip.DestinationTime, trip.TotalSeats,
		trip.ReservedSeats, trip.AvailableSeats, trip.Fare, trip.Status, trip.Version, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled trip: %w", translateError(err))
	}
	return nil
}

// Load reads the current snapshot of a trip including its version
func (r *ScheduledTripRepository) Load(ctx context.Context, tripID string) (*models.ScheduledTrip, error) {
	trip := &models.ScheduledTrip{}
	query := `SELECT ` + scheduledTripColumns + ` FROM scheduled_trips WHERE id = $1`

	if err := r.db.GetContext(ctx, trip, query, tripID); err != nil {
		return nil, translateError(err)
	}
	return trip, nil
}

// CompareAndStore writes next only if the stored version still equals
// expectedVersion, bumping the version by one. Ledger rows are upserted in
// the same transaction so a booking never exists without its seats.
// Returns ErrVersionMismatch when another writer got there first.
func (r *ScheduledTripRepository) CompareAndStore(ctx context.Context, expectedVersion int64, next *models.ScheduledTrip, ledger ...*models.Booking) error {
	if err := next.CheckInventory(); err != nil {
		return fmt.Errorf("refusing to store trip: %w", err)
	}

	now := time.Now()
	err := RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE scheduled_trips
			SET reserved_seats = $3,
				available_seats = $4,
				departure_time = $5,
				arrival_time = $6,
				destination_time = $7,
				fare = $8,
				status = $9,
				version = version + 1,
				updated_at = $10
			WHERE id = $1 AND version = $2
		`,
			next.ID, expectedVersion,
			next.ReservedSeats, next.AvailableSeats,
			next.DepartureTime, next.ArrivalTime, next.DestinationTime,
			next.Fare, next.Status, now,
		)
		if err != nil {
			return translateError(err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrVersionMismatch
		}

		for _, booking := range ledger {
			if err := upsertBooking(ctx, tx, booking, now); err != nil {
				return err
			}
		}
		return nil
	})
	if IsRetryable(err) {
		// A deadlock or serialization failure lost the race like a stale version
		return fmt.Errorf("%w: %v", ErrVersionMismatch, err)
	}
	if err != nil {
		return err
	}

	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	return nil
}

// Search finds scheduled trips between two places on a date, ordered by departure
func (r *ScheduledTripRepository) Search(ctx context.Context, q models.SearchQuery) ([]*models.ScheduledTrip, error) {
	query := `SELECT ` + scheduledTripColumns + `
		FROM scheduled_trips
		WHERE LOWER(origin) = LOWER($1)
		  AND LOWER(destination) = LOWER($2)
		  AND trip_date = $3
		  AND status = 'scheduled'
		ORDER BY departure_time ASC`

	trips := []*models.ScheduledTrip{}
	if err := r.db.SelectContext(ctx, &trips, query, q.Origin, q.Destination, q.Date); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	return trips, nil
}

// ListByOperator returns an operator's trips ordered by date
func (r *ScheduledTripRepository) ListByOperator(ctx context.Context, operatorName string, descending bool) ([]*models.ScheduledTrip, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	query := `SELECT ` + scheduledTripColumns + `
		FROM scheduled_trips
		WHERE operator_name = $1
		ORDER BY trip_date ` + order + `, departure_time ` + order

	trips := []*models.ScheduledTrip{}
	if err := r.db.SelectContext(ctx, &trips, query, operatorName); err != nil {
		return nil, fmt.Errorf("failed to list operator trips: %w", err)
	}
	return trips, nil
}

// ListDepartureCandidates returns scheduled trips dated on or before the given day.
// Callers decide per trip whether the departure time has actually passed.
func (r *ScheduledTripRepository) ListDepartureCandidates(ctx context.Context, through time.Time) ([]*models.ScheduledTrip, error) {
	query := `SELECT ` + scheduledTripColumns + `
		FROM scheduled_trips
		WHERE status = 'scheduled' AND trip_date <= $1
		ORDER BY trip_date, departure_time`

	trips := []*models.ScheduledTrip{}
	if err := r.db.SelectContext(ctx, &trips, query, through); err != nil {
		return nil, fmt.Errorf("failed to list departure candidates: %w", err)
	}
	return trips, nil
}

// ListUpcoming returns trips that still carry live inventory in a date window
func (r *ScheduledTripRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]*models.ScheduledTrip, error) {
	query := `SELECT ` + scheduledTripColumns + `
		FROM scheduled_trips
		WHERE trip_date BETWEEN $1 AND $2
		  AND status IN ('scheduled', 'in_progress')
		ORDER BY trip_date, departure_time`

	trips := []*models.ScheduledTrip{}
	if err := r.db.SelectContext(ctx, &trips, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list upcoming trips: %w", err)
	}
	return trips, nil
}
