package models

import (
	"strings"
	"time"
)

// SearchQuery identifies trips between two places on one date
type SearchQuery struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Date        time.Time `json:"date"`
}

// ParseSearchQuery validates raw search parameters
func ParseSearchQuery(origin, destination, date string) (SearchQuery, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)

	if origin == "" {
		return SearchQuery{}, NewValidationError("origin is required")
	}
	if destination == "" {
		return SearchQuery{}, NewValidationError("destination is required")
	}
	if strings.EqualFold(origin, destination) {
		return SearchQuery{}, NewValidationError("origin and destination must be different")
	}

	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return SearchQuery{}, NewValidationError("date must be in YYYY-MM-DD format")
	}

	return SearchQuery{Origin: origin, Destination: destination, Date: parsed}, nil
}

// CacheKey returns a normalized key fragment for the query
func (q SearchQuery) CacheKey() string {
	return strings.ToLower(q.Origin) + "|" + strings.ToLower(q.Destination) + "|" + q.Date.Format("2006-01-02")
}

// TripSummary is a search result row
type TripSummary struct {
	ID              string    `json:"id"`
	RouteNumber     string    `json:"route_number"`
	BusNumber       string    `json:"bus_number"`
	OperatorName    string    `json:"operator_name"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	TripDate        time.Time `json:"trip_date"`
	DepartureTime   string    `json:"departure_time"`
	ArrivalTime     string    `json:"arrival_time"`
	DestinationTime string    `json:"destination_time"`
	Fare            float64   `json:"fare"`
	TotalSeats      int       `json:"total_seats"`
	AvailableSeats  []int     `json:"available_seats"`
	AvailableCount  int       `json:"available_count"`
}

// NewTripSummary builds a search result from a trip snapshot
func NewTripSummary(trip *ScheduledTrip) TripSummary {
	available := trip.AvailableSeats.Sorted()
	return TripSummary{
		ID:              trip.ID,
		RouteNumber:     trip.RouteNumber,
		BusNumber:       trip.BusNumber,
		OperatorName:    trip.OperatorName,
		Origin:          trip.Origin,
		Destination:     trip.Destination,
		TripDate:        trip.TripDate,
		DepartureTime:   trip.DepartureTime,
		ArrivalTime:     trip.ArrivalTime,
		DestinationTime: trip.DestinationTime,
		Fare:            trip.Fare,
		TotalSeats:      trip.TotalSeats,
		AvailableSeats:  available,
		AvailableCount:  len(available),
	}
}

// SearchResponse is the response body for trip search
type SearchResponse struct {
	Status  string        `json:"status"`
	Query   SearchQuery   `json:"query"`
	Results []TripSummary `json:"results"`
}
