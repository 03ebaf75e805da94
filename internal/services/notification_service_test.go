package services

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier implements Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockSMSSender implements SMSSender
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendMessage(ctx context.Context, phone, message string) (int64, error) {
	args := m.Called(ctx, phone, message)
	return args.Get(0).(int64), args.Error(1)
}

// blockingNotifier holds every send until release is closed
type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []string
}

func (b *blockingNotifier) Name() string { return "blocking" }

func (b *blockingNotifier) Notify(ctx context.Context, n *BookingNotification) error {
	<-b.release
	b.mu.Lock()
	b.seen = append(b.seen, n.Booking.ID)
	b.mu.Unlock()
	return nil
}

func testNotification(id string) *BookingNotification {
	phone := "0771234567"
	email := "nimal@example.com"
	trip := testTrip(40, 500, 5, 6)
	return &BookingNotification{
		Kind: NotificationBookingConfirmed,
		Booking: &models.Booking{
			ID:           id,
			TripID:       trip.ID,
			CommuterID:   "commuter-1",
			SeatNumbers:  models.IntArray{5, 6},
			TotalAmount:  1000,
			Currency:     "LKR",
			ContactPhone: &phone,
			ContactEmail: &email,
		},
		Trip:  trip,
		Seats: []int{5, 6},
	}
}

func TestNotificationDispatcher_Delivers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Times(3)

	d := NewNotificationDispatcher(notifier, 2, 10, time.Second, quietLogger(), m)
	for _, id := range []string{"b-1", "b-2", "b-3"} {
		assert.True(t, d.Dispatch(testNotification(id)))
	}

	require.NoError(t, d.Close(context.Background()))
	notifier.AssertExpectations(t)
	assert.False(t, d.Dispatch(testNotification("b-4")), "closed dispatcher rejects work")
}

func TestNotificationDispatcher_DropsWhenFull(t *testing.T) {
	n := &blockingNotifier{release: make(chan struct{})}
	d := NewNotificationDispatcher(n, 1, 1, time.Second, quietLogger(), nil)

	// worker takes the first, queue holds the second
	require.True(t, d.Dispatch(testNotification("b-1")))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Dispatch(testNotification("b-2")))

	start := time.Now()
	assert.False(t, d.Dispatch(testNotification("b-3")))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "dispatch must not block")

	close(n.release)
	require.NoError(t, d.Close(context.Background()))
	assert.ElementsMatch(t, []string{"b-1", "b-2"}, n.seen)
}

func TestNotificationDispatcher_FailuresAreContained(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *BookingNotification) bool {
		return n.Booking.ID == "b-err"
	})).Return(errors.New("smtp down"))
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *BookingNotification) bool {
		return n.Booking.ID == "b-panic"
	})).Run(func(args mock.Arguments) { panic("boom") }).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	d := NewNotificationDispatcher(notifier, 1, 10, time.Second, quietLogger(), nil)
	d.Dispatch(testNotification("b-err"))
	d.Dispatch(testNotification("b-panic"))
	d.Dispatch(testNotification("b-ok"))

	require.NoError(t, d.Close(context.Background()))
	notifier.AssertNumberOfCalls(t, "Notify", 3)
}

func TestNotificationDispatcher_CloseHonoursDeadline(t *testing.T) {
	n := &blockingNotifier{release: make(chan struct{})}
	defer close(n.release)
	d := NewNotificationDispatcher(n, 1, 1, time.Second, quietLogger(), nil)
	d.Dispatch(testNotification("b-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestNotificationMessage(t *testing.T) {
	n := testNotification("4f1c2a9b-0000-0000-0000-000000000000")

	msg := NotificationMessage(n)
	assert.Contains(t, msg, "booking 4F1C2A9B confirmed")
	assert.Contains(t, msg, "Colombo to Kandy")
	assert.Contains(t, msg, "seat(s) 5, 6")
	assert.Contains(t, msg, "LKR 1000.00")

	n.Kind = NotificationBookingCancelled
	n.Seats = []int{6}
	assert.Contains(t, NotificationMessage(n), "seat(s) 6 on Colombo to Kandy")
}

func TestSMSNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("Texts the contact phone", func(t *testing.T) {
		sender := new(MockSMSSender)
		sender.On("SendMessage", ctx, "0771234567", mock.AnythingOfType("string")).Return(int64(1), nil)

		require.NoError(t, NewSMSNotifier(sender).Notify(ctx, testNotification("b-1")))
		sender.AssertExpectations(t)
	})

	t.Run("Skips bookings without a phone", func(t *testing.T) {
		sender := new(MockSMSSender)
		n := testNotification("b-1")
		n.Booking.ContactPhone = nil

		require.NoError(t, NewSMSNotifier(sender).Notify(ctx, n))
		sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEmailNotifier(t *testing.T) {
	cfg := config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "tickets@smarttransit.lk"}

	t.Run("Sends through smtp", func(t *testing.T) {
		e := NewEmailNotifier(cfg)
		var gotAddr string
		var gotTo []string
		var gotMsg string
		e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			return nil
		}

		require.NoError(t, e.Notify(context.Background(), testNotification("b-1")))
		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, []string{"nimal@example.com"}, gotTo)
		assert.True(t, strings.Contains(gotMsg, "Subject: Booking Confirmation"))
	})

	t.Run("Gives up at the deadline", func(t *testing.T) {
		e := NewEmailNotifier(cfg)
		e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, e.Notify(ctx, testNotification("b-1")), context.DeadlineExceeded)
	})
}

func TestMultiNotifier(t *testing.T) {
	ok := new(MockNotifier)
	ok.On("Notify", mock.Anything, mock.Anything).Return(nil)
	failing := new(MockNotifier)
	failing.On("Notify", mock.Anything, mock.Anything).Return(errors.New("unreachable"))

	err := MultiNotifier{failing, ok}.Notify(context.Background(), testNotification("b-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	ok.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, "mock+mock", MultiNotifier{ok, failing}.Name())
}
