package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// PermitStore persists bus permits
type PermitStore interface {
	Create(ctx context.Context, permit *models.BusPermit) error
	GetByPermitNumber(ctx context.Context, permitNumber string) (*models.BusPermit, error)
	List(ctx context.Context) ([]*models.BusPermit, error)
}

// TripAdminStore is the trip store plus the queries administration needs
type TripAdminStore interface {
	TripStore
	Create(ctx context.Context, trip *models.ScheduledTrip) error
	ListByOperator(ctx context.Context, operatorName string, descending bool) ([]*models.ScheduledTrip, error)
	ListDepartureCandidates(ctx context.Context, through time.Time) ([]*models.ScheduledTrip, error)
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*models.ScheduledTrip, error)
}

// InventoryMismatch describes a trip whose inventory disagrees with its
// confirmed bookings
type InventoryMismatch struct {
	TripID string `json:"trip_id"`
	// Seats held by a confirmed booking but not reserved on the trip
	Unreserved []int `json:"unreserved"`
	// Seats held by more than one confirmed booking
	DoubleBooked []int `json:"double_booked"`
}

// TripService handles permits, trip scheduling and trip maintenance jobs
type TripService struct {
	permits   PermitStore
	trips     TripAdminStore
	bookings  BookingLedger
	publisher InventoryPublisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	attempts  int
	now       func() time.Time
}

// NewTripService creates a new TripService
func NewTripService(
	permits PermitStore,
	trips TripAdminStore,
	bookings BookingLedger,
	publisher InventoryPublisher,
	maxAttempts int,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *TripService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TripService{
		permits:   permits,
		trips:     trips,
		bookings:  bookings,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		attempts:  maxAttempts,
		now:       time.Now,
	}
}

// ============================================================================
// PERMITS
// ============================================================================

// CreatePermit registers a bus permit
func (s *TripService) CreatePermit(ctx context.Context, req *models.CreateBusPermitRequest) (*models.BusPermit, error) {
	expiry, err := req.Validate()
	if err != nil {
		return nil, err
	}

	permit := &models.BusPermit{
		PermitNumber: strings.TrimSpace(req.PermitNumber),
		BusNumber:    strings.TrimSpace(req.BusNumber),
		RouteNumber:  strings.TrimSpace(req.RouteNumber),
		Origin:       strings.TrimSpace(req.Origin),
		Destination:  strings.TrimSpace(req.Destination),
		ServiceType:  models.ServiceType(req.ServiceType),
		OperatorName: strings.TrimSpace(req.OperatorName),
		Address:      req.Address,
		ExpiryDate:   expiry,
	}

	if err := s.permits.Create(ctx, permit); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicatePermit
		}
		return nil, storeUnavailable("create permit", err)
	}

	s.logger.WithFields(logrus.Fields{
		"permit_id":     permit.ID,
		"permit_number": permit.PermitNumber,
		"operator":      permit.OperatorName,
	}).Info("Bus permit registered")
	return permit, nil
}

// ListPermits returns all permits
func (s *TripService) ListPermits(ctx context.Context) ([]*models.BusPermit, error) {
	permits, err := s.permits.List(ctx)
	if err != nil {
		return nil, storeUnavailable("list permits", err)
	}
	return permits, nil
}

// ============================================================================
// TRIPS
// ============================================================================

// CreateTrip schedules a trip against a permit. Route endpoints come from
// the permit; available seats are the complement of the initial reserved
// seats.
func (s *TripService) CreateTrip(ctx context.Context, req *models.CreateScheduledTripRequest) (*models.ScheduledTrip, error) {
	tripDate, err := req.Validate()
	if err != nil {
		return nil, err
	}

	permit, err := s.permits.GetByPermitNumber(ctx, req.PermitNumber)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPermitNotFound
		}
		return nil, storeUnavailable("load permit", err)
	}
	if !permit.IsValidOn(tripDate) {
		return nil, ErrPermitExpired
	}

	reserved, available, err := models.NewScheduledTripInventory(req.TotalSeats, req.ReservedSeats)
	if err != nil {
		return nil, err
	}

	trip := &models.ScheduledTrip{
		PermitNumber:    permit.PermitNumber,
		BusNumber:       firstNonEmpty(req.BusNumber, permit.BusNumber),
		RouteNumber:     firstNonEmpty(req.RouteNumber, permit.RouteNumber),
		Origin:          permit.Origin,
		Destination:     permit.Destination,
		OperatorName:    firstNonEmpty(req.OperatorName, permit.OperatorName),
		TripDate:        tripDate,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		DestinationTime: req.DestinationTime,
		TotalSeats:      req.TotalSeats,
		ReservedSeats:   reserved,
		AvailableSeats:  available,
		Fare:            req.Fare,
		Status:          models.ScheduledTripStatusScheduled,
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, storeUnavailable("create trip", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":       trip.ID,
		"permit_number": trip.PermitNumber,
		"trip_date":     req.TripDate,
		"total_seats":   trip.TotalSeats,
		"reserved":      trip.ReservedSeats.Len(),
	}).Info("Trip scheduled")

	s.publish(ctx, trip)
	return trip, nil
}

// GetTrip returns the current snapshot of a trip
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*models.ScheduledTrip, error) {
	trip, err := s.trips.Load(ctx, tripID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, storeUnavailable("load trip", err)
	}
	return trip, nil
}

// UpdateTrip changes schedule fields of a trip. Seat inventory and total
// seats cannot be changed here.
func (s *TripService) UpdateTrip(ctx context.Context, tripID string, req *models.UpdateScheduledTripRequest) (*models.ScheduledTrip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		trip, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}

		next := trip.Clone()
		req.Apply(next)

		err = s.trips.CompareAndStore(ctx, trip.Version, next)
		if errors.Is(err, database.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, storeUnavailable("update trip", err)
		}

		s.logger.WithFields(logrus.Fields{
			"trip_id": tripID,
			"version": next.Version,
			"status":  next.Status,
		}).Info("Trip updated")

		s.publish(ctx, next)
		return next, nil
	}

	return nil, ErrConflict
}

// ListOperatorTrips lists an operator's trips by date. sort is "asc" or "desc".
func (s *TripService) ListOperatorTrips(ctx context.Context, operatorName, sort string) ([]*models.ScheduledTrip, error) {
	if strings.TrimSpace(operatorName) == "" {
		return nil, models.NewValidationError("operator is required")
	}

	var descending bool
	switch strings.ToLower(sort) {
	case "", "asc":
	case "desc":
		descending = true
	default:
		return nil, models.NewValidationError("sort must be asc or desc")
	}

	trips, err := s.trips.ListByOperator(ctx, operatorName, descending)
	if err != nil {
		return nil, storeUnavailable("list operator trips", err)
	}
	return trips, nil
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// MarkDeparted moves scheduled trips whose departure has passed to
// in_progress, which closes them for booking. Returns how many changed.
func (s *TripService) MarkDeparted(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.trips.ListDepartureCandidates(ctx, now)
	if err != nil {
		return 0, storeUnavailable("list departure candidates", err)
	}

	marked := 0
	for _, candidate := range candidates {
		if !candidate.IsPastDeparture(now) {
			continue
		}

		trip := candidate
		for attempt := 1; attempt <= s.attempts; attempt++ {
			if attempt > 1 {
				if trip, err = s.trips.Load(ctx, candidate.ID); err != nil {
					break
				}
			}
			if trip.Status != models.ScheduledTripStatusScheduled {
				err = nil
				break
			}

			next := trip.Clone()
			next.Status = models.ScheduledTripStatusInProgress
			err = s.trips.CompareAndStore(ctx, trip.Version, next)
			if errors.Is(err, database.ErrVersionMismatch) {
				continue
			}
			if err == nil {
				marked++
				s.publish(ctx, next)
			}
			break
		}

		if err != nil {
			s.logger.WithError(err).WithField("trip_id", candidate.ID).Warn("Failed to mark trip departed")
		}
	}

	return marked, nil
}

// Reconcile compares the inventory of upcoming trips with their confirmed
// bookings. Reserved seats without a booking are allowed (initial
// reservations and raw seat cancellations); a booked seat that is not
// reserved, or a seat held by two bookings, is a mismatch.
func (s *TripService) Reconcile(ctx context.Context, aheadDays int) ([]InventoryMismatch, error) {
	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, aheadDays)

	trips, err := s.trips.ListUpcoming(ctx, from, to)
	if err != nil {
		return nil, storeUnavailable("list upcoming trips", err)
	}

	mismatches := []InventoryMismatch{}
	for _, trip := range trips {
		bookings, err := s.bookings.ListActiveByTrip(ctx, trip.ID)
		if err != nil {
			return nil, storeUnavailable(fmt.Sprintf("list bookings for trip %s", trip.ID), err)
		}

		held := models.NewSeatSet()
		doubled := models.NewSeatSet()
		for _, b := range bookings {
			for _, seat := range b.SeatNumbers {
				if held.Contains(seat) {
					doubled.Add(seat)
				}
				held.Add(seat)
			}
		}

		unreserved := trip.ReservedSeats.Missing(held.Sorted())
		if len(unreserved) == 0 && doubled.Len() == 0 {
			continue
		}

		m := InventoryMismatch{TripID: trip.ID, Unreserved: unreserved, DoubleBooked: doubled.Sorted()}
		mismatches = append(mismatches, m)
		s.logger.WithFields(logrus.Fields{
			"trip_id":       trip.ID,
			"unreserved":    m.Unreserved,
			"double_booked": m.DoubleBooked,
		}).Error("Trip inventory does not match its bookings")
	}

	s.metrics.SetInventoryMismatches(len(mismatches))
	return mismatches, nil
}

func (s *TripService) publish(ctx context.Context, trip *models.ScheduledTrip) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.InventoryChanged(ctx, trip); err != nil {
		s.logger.WithError(err).WithField("trip_id", trip.ID).Warn("Failed to publish trip change")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
