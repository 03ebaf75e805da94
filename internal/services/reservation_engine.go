package services

import (
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// Reserve moves seats from available to reserved and returns the new
// snapshot. The input trip is never modified. Every requested seat that is
// not currently available is reported in a *SeatUnavailableError.
func Reserve(trip *models.ScheduledTrip, seats []int) (*models.ScheduledTrip, error) {
	normalized, err := models.NormalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	if missing := trip.AvailableSeats.Missing(normalized); len(missing) > 0 {
		return nil, &SeatUnavailableError{Seats: missing}
	}

	next := trip.Clone()
	next.AvailableSeats.Remove(normalized...)
	next.ReservedSeats.Add(normalized...)
	return next, nil
}

// Release moves seats from reserved back to available and returns the new
// snapshot. Every requested seat that is not currently reserved is reported
// in a *SeatNotReservedError.
func Release(trip *models.ScheduledTrip, seats []int) (*models.ScheduledTrip, error) {
	normalized, err := models.NormalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	if missing := trip.ReservedSeats.Missing(normalized); len(missing) > 0 {
		return nil, &SeatNotReservedError{Seats: missing}
	}

	next := trip.Clone()
	next.ReservedSeats.Remove(normalized...)
	next.AvailableSeats.Add(normalized...)
	return next, nil
}

// FareFor returns the amount due for seats at the trip's per-seat fare,
// rounded to cents
func FareFor(trip *models.ScheduledTrip, seatCount int) float64 {
	return models.SeatsTotal(trip.Fare, seatCount)
}
