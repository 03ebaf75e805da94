package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
)

// TripStore loads trip snapshots and writes them back conditionally
type TripStore interface {
	Load(ctx context.Context, tripID string) (*models.ScheduledTrip, error)
	CompareAndStore(ctx context.Context, expectedVersion int64, next *models.ScheduledTrip, ledger ...*models.Booking) error
}

// BookingLedger reads committed bookings
type BookingLedger interface {
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	GetByIdempotencyKey(ctx context.Context, commuterID, key string) (*models.Booking, error)
	ListByCommuter(ctx context.Context, commuterID string, limit, offset int) ([]*models.Booking, error)
	ListActiveByTrip(ctx context.Context, tripID string) ([]*models.Booking, error)
}

// IdempotencyGuard stops two in-flight requests sharing a key
type IdempotencyGuard interface {
	Acquire(ctx context.Context, commuterID, key string) (bool, error)
	Release(ctx context.Context, commuterID, key string) error
}

// InventoryPublisher is told about every committed inventory change
type InventoryPublisher interface {
	InventoryChanged(ctx context.Context, trip *models.ScheduledTrip) error
}

// PaymentAuditor keeps a durable trail of every charge and void
type PaymentAuditor interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// NotificationQueue accepts notifications without blocking
type NotificationQueue interface {
	Dispatch(n *BookingNotification) bool
}

// BookingOrchestratorConfig holds configuration for the orchestrator
type BookingOrchestratorConfig struct {
	MaxCommitAttempts int           // compare-and-store attempts before Conflict
	PaymentTimeout    time.Duration // bound on a single Charge call
	Currency          string
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() BookingOrchestratorConfig {
	return BookingOrchestratorConfig{
		MaxCommitAttempts: 3,
		PaymentTimeout:    15 * time.Second,
		Currency:          "LKR",
	}
}

const (
	noChargeGateway     = "none"
	afterCommitTimeout  = 5 * time.Second
	defaultHistoryLimit = 20
)

// BookingOrchestratorService sequences seat reservation, payment and the
// conditional commit for bookings and cancellations
type BookingOrchestratorService struct {
	trips     TripStore
	bookings  BookingLedger
	payments  PaymentGateway
	notifier  NotificationQueue
	publisher InventoryPublisher
	guard     IdempotencyGuard
	auditor   PaymentAuditor
	config    BookingOrchestratorConfig
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	trips TripStore,
	bookings BookingLedger,
	payments PaymentGateway,
	config BookingOrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	if config.MaxCommitAttempts < 1 {
		config.MaxCommitAttempts = 1
	}
	return &BookingOrchestratorService{
		trips:    trips,
		bookings: bookings,
		payments: payments,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNotifier sets the queue that receives post-commit notifications
func (s *BookingOrchestratorService) WithNotifier(n NotificationQueue) *BookingOrchestratorService {
	s.notifier = n
	return s
}

// WithPublisher sets the inventory change publisher
func (s *BookingOrchestratorService) WithPublisher(p InventoryPublisher) *BookingOrchestratorService {
	s.publisher = p
	return s
}

// WithIdempotencyGuard sets the in-flight idempotency lock
func (s *BookingOrchestratorService) WithIdempotencyGuard(g IdempotencyGuard) *BookingOrchestratorService {
	s.guard = g
	return s
}

// WithPaymentAudit records every gateway outcome to a
// durable trail.
func (s *BookingOrchestratorService) WithPaymentAudit(a PaymentAuditor) *BookingOrchestratorService {
	s.auditor = a
	return s
}

// WithMetrics sets the metrics sink
func (s *BookingOrchestratorService) WithMetrics(m *metrics.Metrics) *BookingOrchestratorService {
	s.metrics = m
	return s
}

// ============================================================================
// BOOK SEATS
// ============================================================================

// BookSeats reserves seats on a trip for a commuter and charges for them.
// The charge happens once, only after the seats are known to be free; if
// the commit then fails the charge is voided.
func (s *BookingOrchestratorService) BookSeats(
	ctx context.Context,
	tripID, commuterID string,
	req *models.BookSeatsRequest,
	idempotencyKey string,
) (*models.BookingResult, error) {
	seats, err := models.NormalizeSeats(req.SeatNumbers)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if res, err := s.findReplay(ctx, tripID, commuterID, seats, idempotencyKey); res != nil || err != nil {
			return res, err
		}

		if s.guard != nil {
			acquired, err := s.guard.Acquire(ctx, commuterID, idempotencyKey)
			if err != nil {
				// The ledger's unique key still prevents a double booking
				s.logger.WithError(err).Warn("Idempotency guard unavailable, relying on ledger constraint")
			} else if !acquired {
				s.metrics.ObserveBooking("in_progress", 0)
				return nil, ErrBookingInProgress
			} else {
				defer func() {
					if err := s.guard.Release(context.WithoutCancel(ctx), commuterID, idempotencyKey); err != nil {
						s.logger.WithError(err).Warn("Failed to release idempotency guard")
					}
				}()

				// A request holding the guard may have finished in between
				if res, err := s.findReplay(ctx, tripID, commuterID, seats, idempotencyKey); res != nil || err != nil {
					return res, err
				}
			}
		}
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		s.metrics.ObserveBooking(outcomeOf(err), 0)
		return nil, err
	}
	if !trip.IsBookable(s.now()) {
		s.metrics.ObserveBooking("not_bookable", 0)
		return nil, ErrTripNotBookable
	}

	// Seats must be free before anyone is charged
	if _, err := Reserve(trip, seats); err != nil {
		s.metrics.ObserveBooking(outcomeOf(err), 0)
		return nil, err
	}

	amount := FareFor(trip, len(seats))
	bookingID := uuid.New().String()

	charge, err := s.charge(ctx, bookingID, commuterID, trip, seats, amount, req.Payment)
	if err != nil {
		s.metrics.ObserveBooking("payment_failed", 0)
		return nil, err
	}

	// Past this point the commuter has paid; finish the commit even if the
	// caller goes away
	commitCtx := context.WithoutCancel(ctx)

	booking := &models.Booking{
		ID:             bookingID,
		TripID:         trip.ID,
		CommuterID:     commuterID,
		SeatNumbers:    models.IntArray(seats),
		Fare:           trip.Fare,
		TotalAmount:    amount,
		Currency:       s.config.Currency,
		TransactionID:  charge.TransactionID,
		PaymentGateway: charge.Gateway,
		Status:         models.BookingStatusConfirmed,
		ContactEmail:   optionalString(req.Payment.PayerEmail),
		ContactPhone:   optionalString(contactPhone(req.Payment.PayerPhone)),
	}
	if idempotencyKey != "" {
		booking.IdempotencyKey = &idempotencyKey
	}

	var committed *models.ScheduledTrip
	attempt := 1
	for ; attempt <= s.config.MaxCommitAttempts; attempt++ {
		if attempt > 1 {
			if trip, err = s.loadTrip(commitCtx, tripID); err != nil {
				s.voidCharge(commitCtx, booking, err)
				s.metrics.ObserveBooking(outcomeOf(err), attempt)
				return nil, err
			}
			if !trip.IsBookable(s.now()) {
				s.voidCharge(commitCtx, booking, ErrTripNotBookable)
				s.metrics.ObserveBooking("not_bookable", attempt)
				return nil, ErrTripNotBookable
			}
			if FareFor(trip, len(seats)) != amount {
				// Charged at the old fare; let the commuter retry at the new one
				s.voidCharge(commitCtx, booking, ErrConflict)
				s.metrics.ObserveBooking("conflict", attempt)
				return nil, fmt.Errorf("%w: fare changed during booking", ErrConflict)
			}
		}

		next, err := Reserve(trip, seats)
		if err != nil {
			s.voidCharge(commitCtx, booking, err)
			s.metrics.ObserveBooking(outcomeOf(err), attempt)
			return nil, err
		}

		err = s.trips.CompareAndStore(commitCtx, trip.Version, next, booking)
		if err == nil {
			committed = next
			break
		}

		switch {
		case errors.Is(err, database.ErrVersionMismatch):
			s.logger.WithFields(logrus.Fields{
				"trip_id": tripID,
				"attempt": attempt,
				"version": trip.Version,
			}).Debug("Trip changed concurrently, retrying booking commit")
			continue
		case errors.Is(err, database.ErrDuplicate) && idempotencyKey != "":
			// Same key committed by a concurrent request
			s.voidCharge(commitCtx, booking, err)
			if res, rerr := s.findReplay(commitCtx, tripID, commuterID, seats, idempotencyKey); res != nil || rerr != nil {
				return res, rerr
			}
			return nil, storeUnavailable("commit booking", err)
		default:
			s.voidCharge(commitCtx, booking, err)
			s.logger.WithError(err).WithFields(logrus.Fields{
				"trip_id":        tripID,
				"transaction_id": charge.TransactionID,
			}).Error("Booking commit failed after payment")
			s.metrics.ObserveBooking("store_unavailable", attempt)
			return nil, storeUnavailable("commit booking", err)
		}
	}

	if committed == nil {
		s.voidCharge(commitCtx, booking, ErrConflict)
		s.metrics.ObserveBooking("conflict", s.config.MaxCommitAttempts)
		s.logger.WithFields(logrus.Fields{
			"trip_id":  tripID,
			"attempts": s.config.MaxCommitAttempts,
		}).Warn("Booking commit attempts exhausted")
		return nil, ErrConflict
	}

	s.metrics.ObserveBooking("confirmed", attempt)
	if charge.Gateway != noChargeGateway {
		s.recordPayment(commitCtx, models.NewPaymentAudit(models.PaymentEventBookingConfirmed, booking.TripID, commuterID, charge.Gateway).
			SetBooking(booking.ID).
			SetTransaction(charge.TransactionID).
			SetAmount(amount, s.config.Currency))
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"trip_id":        tripID,
		"commuter_id":    commuterID,
		"seats":          seats,
		"amount":         amount,
		"transaction_id": charge.TransactionID,
		"attempts":       attempt,
	}).Info("Seats booked")

	s.afterCommit(commitCtx, committed, &BookingNotification{
		Kind:    NotificationBookingConfirmed,
		Booking: booking,
		Trip:    committed,
		Seats:   seats,
	})

	return &models.BookingResult{
		Booking:       booking,
		Trip:          committed,
		SeatNumbers:   seats,
		TotalFare:     amount,
		TransactionID: charge.TransactionID,
	}, nil
}

// findReplay returns the earlier result for an idempotency key, or nil when
// the key has not been used
func (s *BookingOrchestratorService) findReplay(
	ctx context.Context,
	tripID, commuterID string,
	seats []int,
	key string,
) (*models.BookingResult, error) {
	existing, err := s.bookings.GetByIdempotencyKey(ctx, commuterID, key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, storeUnavailable("check idempotency key", err)
	}

	// Seats released since the original booking may be missing from it, but
	// it can never hold a seat the request did not ask for
	requested := models.NewSeatSet(seats...)
	if existing.TripID != tripID || len(requested.Missing(existing.SeatNumbers)) > 0 {
		return nil, ErrIdempotencyReuse
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBooking("replayed", 0)
	return &models.BookingResult{
		Booking:       existing,
		Trip:          trip,
		SeatNumbers:   []int(existing.SeatNumbers),
		TotalFare:     existing.TotalAmount,
		TransactionID: existing.TransactionID,
		Replayed:      true,
	}, nil
}

func (s *BookingOrchestratorService) charge(
	ctx context.Context,
	bookingID, commuterID string,
	trip *models.ScheduledTrip,
	seats []int,
	amount float64,
	payment models.PaymentDetails,
) (*ChargeResult, error) {
	if amount == 0 {
		return &ChargeResult{TransactionID: "NOCHARGE-" + bookingID, Gateway: noChargeGateway}, nil
	}

	payCtx, cancel := context.WithTimeout(ctx, s.config.PaymentTimeout)
	defer cancel()

	start := s.now()
	res, err := s.payments.Charge(payCtx, &ChargeRequest{
		InvoiceID:   bookingID,
		Amount:      amount,
		Currency:    s.config.Currency,
		Description: fmt.Sprintf("%s to %s %s %s, seats %s", trip.Origin, trip.Destination, trip.TripDate.Format("2006-01-02"), trip.DepartureTime, formatSeats(seats)),
		Payment:     payment,
	})
	elapsed := s.now().Sub(start).Seconds()

	if err != nil {
		s.metrics.ObservePayment(s.payments.Name(), "failed", elapsed)

		var pErr *PaymentFailedError
		switch {
		case errors.As(err, &pErr):
		case errors.Is(err, context.DeadlineExceeded):
			pErr = &PaymentFailedError{Gateway: s.payments.Name(), Reason: "payment timed out"}
		case errors.Is(err, context.Canceled):
			pErr = &PaymentFailedError{Gateway: s.payments.Name(), Reason: "payment cancelled"}
		default:
			pErr = &PaymentFailedError{Gateway: s.payments.Name(), Reason: err.Error()}
		}

		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"trip_id":    trip.ID,
			"amount":     amount,
			"reason":     pErr.Reason,
		}).Warn("Payment failed")
		s.recordPayment(ctx, models.NewPaymentAudit(models.PaymentEventDeclined, trip.ID, commuterID, s.payments.Name()).
			SetBooking(bookingID).
			SetAmount(amount, s.config.Currency).
			SetError(pErr.Reason).
			SetProcessingTime(elapsed))
		return nil, pErr
	}

	s.metrics.ObservePayment(s.payments.Name(), "success", elapsed)
	if res.Gateway == "" {
		res.Gateway = s.payments.Name()
	}
	s.recordPayment(ctx, models.NewPaymentAudit(models.PaymentEventCharged, trip.ID, commuterID, res.Gateway).
		SetBooking(bookingID).
		SetTransaction(res.TransactionID).
		SetAmount(amount, s.config.Currency).
		SetProcessingTime(elapsed))
	return res, nil
}

// voidCharge reverses the charge of a booking that will not be committed.
// Failures are logged and audited with the transaction id for manual follow-up.
func (s *BookingOrchestratorService) voidCharge(ctx context.Context, booking *models.Booking, cause error) {
	if booking.PaymentGateway == noChargeGateway {
		return
	}

	voidCtx, cancel := context.WithTimeout(ctx, s.config.PaymentTimeout)
	defer cancel()

	fields := logrus.Fields{
		"booking_id":     booking.ID,
		"transaction_id": booking.TransactionID,
		"gateway":        booking.PaymentGateway,
		"cause":          cause.Error(),
	}
	audit := models.NewPaymentAudit(models.PaymentEventVoided, booking.TripID, booking.CommuterID, booking.PaymentGateway).
		SetBooking(booking.ID).
		SetTransaction(booking.TransactionID).
		SetAmount(booking.TotalAmount, booking.Currency)

	if err := s.payments.Void(voidCtx, booking.TransactionID); err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Failed to void charge, manual refund required")
		audit.EventType = models.PaymentEventVoidFailed
		audit.SetError(cause.Error() + "; void: " + err.Error())
		s.recordPayment(ctx, audit)
		return
	}
	s.logger.WithFields(fields).Info("Charge voided")
	s.recordPayment(ctx, audit.SetError(cause.Error()))
}

// recordPayment writes an audit entry; a failed write never changes the outcome
func (s *BookingOrchestratorService) recordPayment(ctx context.Context, audit *models.PaymentAudit) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(context.WithoutCancel(ctx), audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":   audit.EventType,
			"trip_id": audit.TripID,
		}).Warn("Failed to record payment audit")
	}
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking releases raw seat numbers on a trip. Ledger bookings that
// hold any of the seats lose them in the same commit; no refund is issued.
func (s *BookingOrchestratorService) CancelBooking(ctx context.Context, tripID string, seatNumbers []int) (*models.CancellationResult, error) {
	seats, err := models.NormalizeSeats(seatNumbers)
	if err != nil {
		return nil, err
	}
	released := models.NewSeatSet(seats...)

	for attempt := 1; attempt <= s.config.MaxCommitAttempts; attempt++ {
		trip, err := s.loadTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}

		next, err := Release(trip, seats)
		if err != nil {
			return nil, err
		}

		active, err := s.bookings.ListActiveByTrip(ctx, tripID)
		if err != nil {
			return nil, storeUnavailable("list trip bookings", err)
		}

		now := s.now()
		var changed []*models.Booking
		var notifications []*BookingNotification
		for _, b := range active {
			var lost []int
			for _, seat := range b.SeatNumbers {
				if released.Contains(seat) {
					lost = append(lost, seat)
				}
			}
			if b.ReleaseSeats(released, now) {
				changed = append(changed, b)
				notifications = append(notifications, &BookingNotification{
					Kind:    NotificationBookingCancelled,
					Booking: b,
					Seats:   lost,
				})
			}
		}

		err = s.trips.CompareAndStore(ctx, trip.Version, next, changed...)
		if errors.Is(err, database.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, storeUnavailable("commit cancellation", err)
		}

		s.metrics.ObserveBooking("cancelled", attempt)
		s.logger.WithFields(logrus.Fields{
			"trip_id":           tripID,
			"seats":             seats,
			"bookings_affected": len(changed),
			"attempts":          attempt,
		}).Info("Seats released")

		for _, n := range notifications {
			n.Trip = next
		}
		s.afterCommit(context.WithoutCancel(ctx), next, notifications...)

		return &models.CancellationResult{Trip: next, SeatNumbers: seats}, nil
	}

	s.metrics.ObserveBooking("conflict", s.config.MaxCommitAttempts)
	return nil, ErrConflict
}

// CancelBookingByID cancels a whole booking. Only its owner or an admin may
// do so. Cancelling an already cancelled booking returns it unchanged.
func (s *BookingOrchestratorService) CancelBookingByID(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.CancellationResult, error) {
	booking, err := s.GetBooking(ctx, bookingID, actorID, isAdmin)
	if err != nil {
		return nil, err
	}
	tripID := booking.TripID

	for attempt := 1; attempt <= s.config.MaxCommitAttempts; attempt++ {
		// Snapshot the trip before reading the booking. Every ledger write
		// bumps the trip version, so a booking changed after this load makes
		// the compare-and-store below fail instead of releasing stale seats.
		trip, err := s.loadTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}

		booking, err = s.GetBooking(ctx, bookingID, actorID, isAdmin)
		if err != nil {
			return nil, err
		}

		if !booking.IsActive() {
			return &models.CancellationResult{Trip: trip, Booking: booking, SeatNumbers: []int{}}, nil
		}

		seats := []int(booking.SeatNumbers)
		next, err := Release(trip, seats)
		if err != nil {
			// The ledger says these seats are held; the inventory disagrees
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": bookingID,
				"trip_id":    trip.ID,
			}).Error("Booking and trip inventory out of sync")
			return nil, err
		}

		booking.ReleaseSeats(models.NewSeatSet(seats...), s.now())

		err = s.trips.CompareAndStore(ctx, trip.Version, next, booking)
		if errors.Is(err, database.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, storeUnavailable("commit cancellation", err)
		}

		s.metrics.ObserveBooking("cancelled", attempt)
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"trip_id":    trip.ID,
			"seats":      seats,
			"actor_id":   actorID,
		}).Info("Booking cancelled")

		s.afterCommit(context.WithoutCancel(ctx), next, &BookingNotification{
			Kind:    NotificationBookingCancelled,
			Booking: booking,
			Trip:    next,
			Seats:   seats,
		})

		return &models.CancellationResult{Trip: next, Booking: booking, SeatNumbers: seats}, nil
	}

	s.metrics.ObserveBooking("conflict", s.config.MaxCommitAttempts)
	return nil, ErrConflict
}

// ============================================================================
// READS
// ============================================================================

// GetBooking returns a booking visible to the actor
func (s *BookingOrchestratorService) GetBooking(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, storeUnavailable("load booking", err)
	}
	if !isAdmin && booking.CommuterID != actorID {
		return nil, ErrForbidden
	}
	return booking, nil
}

// ListCommuterBookings returns a page of the commuter's bookings, newest first
func (s *BookingOrchestratorService) ListCommuterBookings(ctx context.Context, commuterID string, limit, offset int) ([]*models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	bookings, err := s.bookings.ListByCommuter(ctx, commuterID, limit, offset)
	if err != nil {
		return nil, storeUnavailable("list bookings", err)
	}
	return bookings, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *BookingOrchestratorService) loadTrip(ctx context.Context, tripID string) (*models.ScheduledTrip, error) {
	trip, err := s.trips.Load(ctx, tripID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		s.logger.WithError(err).WithField("trip_id", tripID).Error("Failed to load trip")
		return nil, storeUnavailable("load trip", err)
	}
	return trip, nil
}

// afterCommit runs the side effects of a committed write. None of them can
// change the outcome of the operation.
func (s *BookingOrchestratorService) afterCommit(ctx context.Context, trip *models.ScheduledTrip, notifications ...*BookingNotification) {
	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, afterCommitTimeout)
		if err := s.publisher.InventoryChanged(pubCtx, trip); err != nil {
			s.logger.WithError(err).WithField("trip_id", trip.ID).Warn("Failed to publish inventory change")
		}
		cancel()
	}

	if s.notifier != nil {
		for _, n := range notifications {
			s.notifier.Dispatch(n)
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrTripNotFound):
		return "trip_not_found"
	case errors.Is(err, ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// contactPhone stores a mobile number in its local 10 digit form so the SMS
// channel and ledger lookups agree. Unparseable input is kept verbatim.
func contactPhone(phone string) string {
	if normalized, err := validator.NormalizePhone(phone); err == nil {
		return normalized
	}
	return phone
}
