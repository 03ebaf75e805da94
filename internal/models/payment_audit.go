package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventCharged          PaymentEventType = "payment_charged"
	PaymentEventDeclined         PaymentEventType = "payment_declined"
	PaymentEventVoided           PaymentEventType = "payment_voided"
	PaymentEventVoidFailed       PaymentEventType = "void_failed"
	PaymentEventBookingConfirmed PaymentEventType = "booking_confirmed"
)

// PaymentAudit is an append-only record of one payment event. BookingID is
// the invoice id sent to the gateway; a booking row with that id exists
// only once the booking commits.
type PaymentAudit struct {
	ID               string           `json:"id" db:"id"`
	EventType        PaymentEventType `json:"event_type" db:"event_type"`
	TripID           string           `json:"trip_id" db:"trip_id"`
	CommuterID       string           `json:"commuter_id" db:"commuter_id"`
	BookingID        *string          `json:"booking_id,omitempty" db:"booking_id"`
	TransactionID    *string          `json:"transaction_id,omitempty" db:"transaction_id"`
	Gateway          string           `json:"gateway" db:"gateway"`
	Amount           *float64         `json:"amount,omitempty" db:"amount"`
	Currency         *string          `json:"currency,omitempty" db:"currency"`
	ErrorMessage     *string          `json:"error_message,omitempty" db:"error_message"`
	ProcessingTimeMs *int             `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, tripID, commuterID, gateway string) *PaymentAudit {
	return &PaymentAudit{
		ID:         uuid.New().String(),
		EventType:  eventType,
		TripID:     tripID,
		CommuterID: commuterID,
		Gateway:    gateway,
		CreatedAt:  time.Now(),
	}
}

// SetBooking sets the booking (invoice) id
func (pa *PaymentAudit) SetBooking(bookingID string) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetTransaction sets the gateway transaction id
func (pa *PaymentAudit) SetTransaction(transactionID string) *PaymentAudit {
	pa.TransactionID = &transactionID
	return pa
}

// SetAmount sets the charged amount
func (pa *PaymentAudit) SetAmount(amount float64, currency string) *PaymentAudit {
	pa.Amount = &amount
	pa.Currency = &currency
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}

// SetProcessingTime records how long the gateway call took
func (pa *PaymentAudit) SetProcessingTime(seconds float64) *PaymentAudit {
	ms := int(seconds * 1000)
	pa.ProcessingTimeMs = &ms
	return pa
}
