package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	BookingsTotal         *prometheus.CounterVec
	BookingCommitAttempts prometheus.Histogram
	PaymentDuration       *prometheus.HistogramVec
	NotificationsTotal    *prometheus.CounterVec
	SearchCacheTotal      *prometheus.CounterVec
	InventoryMismatches   prometheus.Gauge
}

// New registers the collectors with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Booking attempts by outcome",
			},
			[]string{"outcome"},
		),
		BookingCommitAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "booking_commit_attempts",
				Help:    "Compare-and-store attempts needed per booking or cancellation",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
		),
		PaymentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_duration_seconds",
				Help:    "Payment gateway charge latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"gateway", "result"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Booking notifications by delivery status",
			},
			[]string{"status"},
		),
		SearchCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_cache_total",
				Help: "Trip search cache lookups",
			},
			[]string{"result"},
		),
		InventoryMismatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inventory_mismatches",
				Help: "Upcoming trips whose reserved seats disagree with the bookings ledger",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.BookingCommitAttempts,
		m.PaymentDuration,
		m.NotificationsTotal,
		m.SearchCacheTotal,
		m.InventoryMismatches,
	)

	return m
}

func (m *Metrics) ObserveBooking(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.BookingCommitAttempts.Observe(float64(attempts))
	}
}

func (m *Metrics) ObservePayment(gateway, result string, seconds float64) {
	if m == nil {
		return
	}
	m.PaymentDuration.WithLabelValues(gateway, result).Observe(seconds)
}

func (m *Metrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSearchCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetInventoryMismatches(n int) {
	if m == nil {
		return
	}
	m.InventoryMismatches.Set(float64(n))
}
