package models

import (
	"fmt"
	"time"
)

// ScheduledTripStatus represents the status of a scheduled trip
type ScheduledTripStatus string

const (
	ScheduledTripStatusScheduled  ScheduledTripStatus = "scheduled"
	ScheduledTripStatusInProgress ScheduledTripStatus = "in_progress"
	ScheduledTripStatusCompleted  ScheduledTripStatus = "completed"
	ScheduledTripStatusCancelled  ScheduledTripStatus = "cancelled"
)

// IsValid checks the status against the known values
func (s ScheduledTripStatus) IsValid() bool {
	switch s {
	case ScheduledTripStatusScheduled, ScheduledTripStatusInProgress,
		ScheduledTripStatusCompleted, ScheduledTripStatusCancelled:
		return true
	}
	return false
}

// ScheduledTrip is one dated run of a bus together with its seat inventory.
// TotalSeats is fixed at creation; ReservedSeats and AvailableSeats always
// partition [1..TotalSeats]. Version increases by one on every committed write.
type ScheduledTrip struct {
	ID              string              `json:"id" db:"id"`
	PermitNumber    string              `json:"permit_number" db:"permit_number"`
	BusNumber       string              `json:"bus_number" db:"bus_number"`
	RouteNumber     string              `json:"route_number" db:"route_number"`
	Origin          string              `json:"origin" db:"origin"`
	Destination     string              `json:"destination" db:"destination"`
	OperatorName    string              `json:"operator_name" db:"operator_name"`
	TripDate        time.Time           `json:"trip_date" db:"trip_date"`
	DepartureTime   string              `json:"departure_time" db:"departure_time"`
	ArrivalTime     string              `json:"arrival_time" db:"arrival_time"`
	DestinationTime string              `json:"destination_time" db:"destination_time"`
	TotalSeats      int                 `json:"total_seats" db:"total_seats"`
	ReservedSeats   SeatSet             `json:"reserved_seats" db:"reserved_seats"`
	AvailableSeats  SeatSet             `json:"available_seats" db:"available_seats"`
	Fare            float64             `json:"fare" db:"fare"`
	Status          ScheduledTripStatus `json:"status" db:"status"`
	Version         int64               `json:"version" db:"version"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// NewScheduledTripInventory returns the reserved/available pair for a new
// trip: available is the complement of reserved within [1..total].
func NewScheduledTripInventory(total int, reserved []int) (SeatSet, SeatSet, error) {
	if total <= 0 {
		return nil, nil, NewValidationError("total_seats must be positive")
	}

	reservedSet := NewSeatSet()
	if len(reserved) > 0 {
		seats, err := NormalizeSeats(reserved)
		if err != nil {
			return nil, nil, err
		}
		var outOfRange []int
		for _, seat := range seats {
			if seat > total {
				outOfRange = append(outOfRange, seat)
			}
		}
		if len(outOfRange) > 0 {
			return nil, nil, NewValidationError(fmt.Sprintf("reserved seats exceed total_seats %d: %v", total, outOfRange))
		}
		reservedSet.Add(seats...)
	}

	available := FullRange(total)
	available.Remove(reservedSet.Sorted()...)
	return reservedSet, available, nil
}

// CheckInventory verifies that reserved and available are disjoint and
// together cover exactly [1..TotalSeats]
func (s *ScheduledTrip) CheckInventory() error {
	if s.TotalSeats <= 0 {
		return fmt.Errorf("trip %s: total_seats must be positive, got %d", s.ID, s.TotalSeats)
	}

	for seat := range s.ReservedSeats {
		if s.AvailableSeats.Contains(seat) {
			return fmt.Errorf("trip %s: seat %d is both reserved and available", s.ID, seat)
		}
		if seat < 1 || seat > s.TotalSeats {
			return fmt.Errorf("trip %s: reserved seat %d outside 1..%d", s.ID, seat, s.TotalSeats)
		}
	}
	for seat := range s.AvailableSeats {
		if seat < 1 || seat > s.TotalSeats {
			return fmt.Errorf("trip %s: available seat %d outside 1..%d", s.ID, seat, s.TotalSeats)
		}
	}

	if covered := s.ReservedSeats.Len() + s.AvailableSeats.Len(); covered != s.TotalSeats {
		return fmt.Errorf("trip %s: %d seats accounted for, expected %d", s.ID, covered, s.TotalSeats)
	}

	return nil
}

// Clone returns a deep copy; the seat sets are not shared
func (s *ScheduledTrip) Clone() *ScheduledTrip {
	out := *s
	out.ReservedSeats = s.ReservedSeats.Clone()
	out.AvailableSeats = s.AvailableSeats.Clone()
	return &out
}

// DepartureAt combines trip date and departure time.
// The second return value is false when the time cannot be parsed.
func (s *ScheduledTrip) DepartureAt() (time.Time, bool) {
	departureTime, err := time.Parse("15:04:05", s.DepartureTime)
	if err != nil {
		// Try without seconds
		departureTime, err = time.Parse("15:04", s.DepartureTime)
		if err != nil {
			return time.Time{}, false
		}
	}

	return time.Date(
		s.TripDate.Year(),
		s.TripDate.Month(),
		s.TripDate.Day(),
		departureTime.Hour(),
		departureTime.Minute(),
		departureTime.Second(),
		0,
		s.TripDate.Location(),
	), true
}

// IsPastDeparture checks if the trip departure time has passed
func (s *ScheduledTrip) IsPastDeparture(now time.Time) bool {
	departure, ok := s.DepartureAt()
	if !ok {
		return false
	}
	return now.After(departure)
}

// IsBookable checks if the trip can accept new bookings
func (s *ScheduledTrip) IsBookable(now time.Time) bool {
	return s.Status == ScheduledTripStatusScheduled && !s.IsPastDeparture(now)
}

// CreateScheduledTripRequest is the admin request to schedule a trip from a permit
type CreateScheduledTripRequest struct {
	PermitNumber    string  `json:"permit_number" binding:"required"`
	BusNumber       string  `json:"bus_number"`
	RouteNumber     string  `json:"route_number"`
	OperatorName    string  `json:"operator_name"`
	TripDate        string  `json:"trip_date" binding:"required"`
	DepartureTime   string  `json:"departure_time" binding:"required,clocktime"`
	ArrivalTime     string  `json:"arrival_time" binding:"required,clocktime"`
	DestinationTime string  `json:"destination_time" binding:"required,clocktime"`
	TotalSeats      int     `json:"total_seats" binding:"required,gt=0"`
	ReservedSeats   []int   `json:"reserved_seats"`
	Fare            float64 `json:"fare" binding:"gte=0"`
}

// Validate validates the create scheduled trip request
func (r *CreateScheduledTripRequest) Validate() (time.Time, error) {
	date, err := time.Parse("2006-01-02", r.TripDate)
	if err != nil {
		return time.Time{}, NewValidationError("trip_date must be in YYYY-MM-DD format")
	}
	if r.TotalSeats <= 0 {
		return time.Time{}, NewValidationError("total_seats must be positive")
	}
	if r.Fare < 0 {
		return time.Time{}, NewValidationError("fare must not be negative")
	}
	return date, nil
}

// UpdateScheduledTripRequest updates schedule fields only. TotalSeats and
// ReservedSeats are accepted so a request carrying them can be rejected
// explicitly rather than silently ignored.
type UpdateScheduledTripRequest struct {
	DepartureTime   *string  `json:"departure_time,omitempty" binding:"omitempty,clocktime"`
	ArrivalTime     *string  `json:"arrival_time,omitempty" binding:"omitempty,clocktime"`
	DestinationTime *string  `json:"destination_time,omitempty" binding:"omitempty,clocktime"`
	Fare            *float64 `json:"fare,omitempty" binding:"omitempty,gte=0"`
	Status          *string  `json:"status,omitempty"`
	TotalSeats      *int     `json:"total_seats,omitempty"`
	ReservedSeats   []int    `json:"reserved_seats,omitempty"`
}

// Validate validates the update request
func (r *UpdateScheduledTripRequest) Validate() error {
	if r.TotalSeats != nil {
		return NewValidationError("total_seats is fixed at trip creation")
	}
	if r.ReservedSeats != nil {
		return NewValidationError("reserved_seats can only change through bookings and cancellations")
	}
	if r.Fare != nil && *r.Fare < 0 {
		return NewValidationError("fare must not be negative")
	}
	if r.Status != nil && !ScheduledTripStatus(*r.Status).IsValid() {
		return NewValidationError(fmt.Sprintf("invalid status: %s", *r.Status))
	}
	return nil
}

// Apply copies the provided schedule fields onto trip
func (r *UpdateScheduledTripRequest) Apply(trip *ScheduledTrip) {
	if r.DepartureTime != nil {
		trip.DepartureTime = *r.DepartureTime
	}
	if r.ArrivalTime != nil {
		trip.ArrivalTime = *r.ArrivalTime
	}
	if r.DestinationTime != nil {
		trip.DestinationTime = *r.DestinationTime
	}
	if r.Fare != nil {
		trip.Fare = *r.Fare
	}
	if r.Status != nil {
		trip.Status = ScheduledTripStatus(*r.Status)
	}
}
