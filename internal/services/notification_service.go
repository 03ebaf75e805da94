package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// NotificationKind says what happened to a booking
type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking_confirmed"
	NotificationBookingCancelled NotificationKind = "booking_cancelled"
)

// BookingNotification is handed to notifiers after a commit
type BookingNotification struct {
	Kind    NotificationKind
	Booking *models.Booking
	Trip    *models.ScheduledTrip
	Seats   []int
}

// Notifier delivers one notification
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n *BookingNotification) error
}

// NotificationDispatcher delivers notifications on a fixed pool of workers.
// Dispatch never blocks the caller; when the queue is full the notification
// is dropped and counted.
type NotificationDispatcher struct {
	notifier Notifier
	queue    chan *BookingNotification
	timeout  time.Duration
	logger   *logrus.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotificationDispatcher starts workers goroutines consuming a queue of queueSize
func NewNotificationDispatcher(
	notifier Notifier,
	workers, queueSize int,
	timeout time.Duration,
	logger *logrus.Logger,
	m *metrics.Metrics,
) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &NotificationDispatcher{
		notifier: notifier,
		queue:    make(chan *BookingNotification, queueSize),
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch enqueues n and reports whether it was accepted
func (d *NotificationDispatcher) Dispatch(n *BookingNotification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.ObserveNotification("dropped")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.metrics.ObserveNotification("dropped")
		d.logger.WithFields(logrus.Fields{
			"kind":       n.Kind,
			"booking_id": n.Booking.ID,
		}).Warn("Notification queue full, dropping notification")
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end
func (d *NotificationDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *NotificationDispatcher) deliver(n *BookingNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	fields := logrus.Fields{
		"kind":       n.Kind,
		"booking_id": n.Booking.ID,
		"trip_id":    n.Trip.ID,
		"notifier":   d.notifier.Name(),
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("notifier panicked: %v", r)
			}
		}()
		return d.notifier.Notify(ctx, n)
	}()

	if err != nil {
		d.metrics.ObserveNotification("failed")
		d.logger.WithFields(fields).WithError(err).Warn("Booking notification failed")
		return
	}
	d.metrics.ObserveNotification("sent")
	d.logger.WithFields(fields).Debug("Booking notification sent")
}

// NotificationMessage renders the text sent to the commuter
func NotificationMessage(n *BookingNotification) string {
	trip := n.Trip
	when := fmt.Sprintf("%s %s", trip.TripDate.Format("2006-01-02"), trip.DepartureTime)
	seats := formatSeats(n.Seats)

	switch n.Kind {
	case NotificationBookingCancelled:
		return fmt.Sprintf("SmartTransit: seat(s) %s on %s to %s, %s have been cancelled. Booking %s.",
			seats, trip.Origin, trip.Destination, when, shortID(n.Booking.ID))
	default:
		return fmt.Sprintf("SmartTransit: booking %s confirmed. %s to %s, %s, seat(s) %s. Total %s %.2f. Bus %s.",
			shortID(n.Booking.ID), trip.Origin, trip.Destination, when, seats,
			n.Booking.Currency, n.Booking.TotalAmount, trip.BusNumber)
	}
}

func formatSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	l.logger.WithFields(logrus.Fields{
		"kind":        n.Kind,
		"booking_id":  n.Booking.ID,
		"commuter_id": n.Booking.CommuterID,
		"seats":       n.Seats,
	}).Info(NotificationMessage(n))
	return nil
}

// SMSSender is satisfied by sms.DialogGateway
type SMSSender interface {
	SendMessage(ctx context.Context, phone, message string) (int64, error)
}

// SMSNotifier texts the booking's contact phone
type SMSNotifier struct {
	sender SMSSender
}

func NewSMSNotifier(sender SMSSender) *SMSNotifier {
	return &SMSNotifier{sender: sender}
}

func (s *SMSNotifier) Name() string { return "sms" }

func (s *SMSNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	if n.Booking.ContactPhone == nil || *n.Booking.ContactPhone == "" {
		return nil
	}
	_, err := s.sender.SendMessage(ctx, *n.Booking.ContactPhone, NotificationMessage(n))
	return err
}

// SendMailFunc matches smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier emails the booking's contact address over SMTP
type EmailNotifier struct {
	cfg      config.EmailConfig
	sendMail SendMailFunc
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *EmailNotifier) Name() string { return "email" }

// Notify sends the email. net/smtp has no context support, so the send runs
// in its own goroutine and ctx only bounds how long we wait for it.
func (e *EmailNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	if n.Booking.ContactEmail == nil || *n.Booking.ContactEmail == "" {
		return nil
	}
	to := *n.Booking.ContactEmail

	subject := "Booking Confirmation"
	if n.Kind == NotificationBookingCancelled {
		subject = "Booking Cancellation"
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		e.cfg.From, to, subject, NotificationMessage(n))

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.sendMail(addr, auth, e.cfg.From, []string{to}, []byte(msg))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiNotifier fans a notification out to every notifier
type MultiNotifier []Notifier

func (m MultiNotifier) Name() string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name()
	}
	return strings.Join(names, "+")
}

func (m MultiNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
