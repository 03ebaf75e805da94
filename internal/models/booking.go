package models

import (
	"math"
	"time"
)

// BookingStatus represents the lifecycle of a ledger entry
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the ledger record of one successful reservation. It is written
// in the same transaction as the trip inventory it affects.
type Booking struct {
	ID             string        `json:"id" db:"id"`
	TripID         string        `json:"trip_id" db:"trip_id"`
	CommuterID     string        `json:"commuter_id" db:"commuter_id"`
	SeatNumbers    IntArray      `json:"seat_numbers" db:"seat_numbers"`
	Fare           float64       `json:"fare" db:"fare"`
	TotalAmount    float64       `json:"total_amount" db:"total_amount"`
	Currency       string        `json:"currency" db:"currency"`
	TransactionID  string        `json:"transaction_id" db:"transaction_id"`
	PaymentGateway string        `json:"payment_gateway" db:"payment_gateway"`
	Status         BookingStatus `json:"status" db:"status"`
	IdempotencyKey *string       `json:"-" db:"idempotency_key"`
	ContactEmail   *string       `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone   *string       `json:"contact_phone,omitempty" db:"contact_phone"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsActive reports whether the booking still holds seats
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed
}

// SeatsTotal is the price of seatCount seats at fare, rounded to cents
func SeatsTotal(fare float64, seatCount int) float64 {
	return math.Round(float64(seatCount)*fare*100) / 100
}

// ReleaseSeats removes seats from the booking. A booking left without seats
// becomes cancelled. It reports whether anything changed.
func (b *Booking) ReleaseSeats(seats SeatSet, at time.Time) bool {
	if !b.IsActive() {
		return false
	}

	kept := make(IntArray, 0, len(b.SeatNumbers))
	for _, seat := range b.SeatNumbers {
		if !seats.Contains(seat) {
			kept = append(kept, seat)
		}
	}
	if len(kept) == len(b.SeatNumbers) {
		return false
	}

	b.SeatNumbers = kept
	b.TotalAmount = SeatsTotal(b.Fare, len(kept))
	b.UpdatedAt = at
	if len(kept) == 0 {
		b.Status = BookingStatusCancelled
		b.CancelledAt = &at
	}
	return true
}

// PaymentDetails carries what the payment gateway needs to charge a commuter
type PaymentDetails struct {
	Method     string `json:"payment_method" binding:"required"`
	CardToken  string `json:"card_token,omitempty"`
	PayerName  string `json:"payer_name,omitempty"`
	PayerEmail string `json:"payer_email,omitempty" binding:"omitempty,email"`
	PayerPhone string `json:"payer_phone,omitempty" binding:"omitempty,lkphone"`
}

// BookSeatsRequest is the commuter request body for booking seats on a trip
type BookSeatsRequest struct {
	SeatNumbers []int          `json:"seat_numbers" binding:"required,seatnumbers"`
	Payment     PaymentDetails `json:"payment" binding:"required"`
}

// CancelSeatsRequest releases raw seat numbers on a trip (operator path)
type CancelSeatsRequest struct {
	SeatNumbers []int `json:"seat_numbers" binding:"required,seatnumbers"`
}

// BookingResult is returned by a successful booking
type BookingResult struct {
	Booking       *Booking       `json:"booking"`
	Trip          *ScheduledTrip `json:"trip"`
	SeatNumbers   []int          `json:"seat_numbers"`
	TotalFare     float64        `json:"total_fare"`
	TransactionID string         `json:"transaction_id"`
	Replayed      bool           `json:"replayed"`
}

// CancellationResult is returned by a successful cancellation
type CancellationResult struct {
	Trip        *ScheduledTrip `json:"trip"`
	Booking     *Booking       `json:"booking,omitempty"`
	SeatNumbers []int          `json:"seat_numbers"`
}
