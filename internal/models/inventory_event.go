package models

import "time"

// InventoryEvent announces a committed change to a trip's seat inventory
type InventoryEvent struct {
	TripID         string    `json:"trip_id"`
	Version        int64     `json:"version"`
	Status         string    `json:"status"`
	ReservedSeats  []int     `json:"reserved_seats"`
	AvailableSeats []int     `json:"available_seats"`
	At             time.Time `json:"at"`
}

// NewInventoryEvent snapshots a trip's seats
func NewInventoryEvent(trip *ScheduledTrip) InventoryEvent {
	return InventoryEvent{
		TripID:         trip.ID,
		Version:        trip.Version,
		Status:         string(trip.Status),
		ReservedSeats:  trip.ReservedSeats.Sorted(),
		AvailableSeats: trip.AvailableSeats.Sorted(),
		At:             trip.UpdatedAt,
	}
}
