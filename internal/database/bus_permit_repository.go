package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// BusPermitRepository handles database operations for bus_permits table
type BusPermitRepository struct {
	db DB
}

// NewBusPermitRepository creates a new BusPermitRepository
func NewBusPermitRepository(db DB) *BusPermitRepository {
	return &BusPermitRepository{db: db}
}

// Create registers a permit. A reused permit number yields ErrDuplicate.
func (r *BusPermitRepository) Create(ctx context.Context, permit *models.BusPermit) error {
	if permit.ID == "" {
		permit.ID = uuid.New().String()
	}
	now := time.Now()
	permit.CreatedAt = now
	permit.UpdatedAt = now

	query := `
		INSERT INTO bus_permits (
			id, permit_number, bus_number, route_number, origin, destination,
			service_type, operator_name, address, expiry_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		permit.ID, permit.PermitNumber, permit.BusNumber, permit.RouteNumber, permit.Origin, permit.Destination,
		permit.ServiceType, permit.OperatorName, permit.Address, permit.ExpiryDate, permit.CreatedAt, permit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bus permit: %w", translateError(err))
	}
	return nil
}

// GetByPermitNumber retrieves a permit by its number
func (r *BusPermitRepository) GetByPermitNumber(ctx context.Context, permitNumber string) (*models.BusPermit, error) {
	permit := &models.BusPermit{}
	query := `
		SELECT id, permit_number, bus_number, route_number, origin, destination,
			   service_type, operator_name, address, expiry_date, created_at, updated_at
		FROM bus_permits
		WHERE permit_number = $1
	`

	if err := r.db.GetContext(ctx, permit, query, permitNumber); err != nil {
		return nil, translateError(err)
	}
	return permit, nil
}

// List returns all permits ordered by permit number
func (r *BusPermitRepository) List(ctx context.Context) ([]*models.BusPermit, error) {
	query := `
		SELECT id, permit_number, bus_number, route_number, origin, destination,
			   service_type, operator_name, address, expiry_date, created_at, updated_at
		FROM bus_permits
		ORDER BY permit_number
	`

	permits := []*models.BusPermit{}
	if err := r.db.SelectContext(ctx, &permits, query); err != nil {
		return nil, fmt.Errorf("failed to list bus permits: %w", err)
	}
	return permits, nil
}
