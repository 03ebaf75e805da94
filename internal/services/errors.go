package services

import (
	"errors"
	"fmt"
)

var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrSeatUnavailable   = errors.New("seats unavailable")
	ErrSeatNotReserved   = errors.New("seats not reserved")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrConflict          = errors.New("trip is under heavy contention, please retry")
	ErrStoreUnavailable  = errors.New("trip store unavailable")
	ErrTripNotBookable   = errors.New("trip is not open for booking")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingInProgress = errors.New("a booking with this idempotency key is already in progress")
	ErrIdempotencyReuse  = errors.New("idempotency key was already used for a different booking")
	ErrForbidden         = errors.New("not allowed to act on this booking")
	ErrPermitNotFound    = errors.New("bus permit not found")
	ErrPermitExpired     = errors.New("bus permit expired before the trip date")
	ErrDuplicatePermit   = errors.New("bus permit number already registered")
)

// SeatUnavailableError lists every requested seat that was not available
type SeatUnavailableError struct {
	Seats []int
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.Seats)
}

// Is lets errors.Is(err, ErrSeatUnavailable) match
func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}

// SeatNotReservedError lists every seat in a release request that was not reserved
type SeatNotReservedError struct {
	Seats []int
}

func (e *SeatNotReservedError) Error() string {
	return fmt.Sprintf("seats not reserved: %v", e.Seats)
}

// Is lets errors.Is(err, ErrSeatNotReserved) match
func (e *SeatNotReservedError) Is(target error) bool {
	return target == ErrSeatNotReserved
}

// PaymentFailedError carries the gateway's reason for a declined or timed out charge
type PaymentFailedError struct {
	Gateway string
	Reason  string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed (%s): %s", e.Gateway, e.Reason)
}

// Is lets errors.Is(err, ErrPaymentFailed) match
func (e *PaymentFailedError) Is(target error) bool {
	return target == ErrPaymentFailed
}

// SeatsFromError extracts the seat list carried by a seat error, if any
func SeatsFromError(err error) []int {
	var unavailable *SeatUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Seats
	}
	var notReserved *SeatNotReservedError
	if errors.As(err, &notReserved) {
		return notReserved.Seats
	}
	return nil
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
