package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// BookingReader returns a booking visible to an actor
type BookingReader interface {
	GetBooking(ctx context.Context, bookingID, actorID string, isAdmin bool) (*models.Booking, error)
}

// TicketService renders booking e-tickets as PDF
type TicketService struct {
	bookings BookingReader
	trips    TripStore
	logger   *logrus.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(bookings BookingReader, trips TripStore, logger *logrus.Logger) *TicketService {
	return &TicketService{bookings: bookings, trips: trips, logger: logger}
}

// GenerateETicket returns the PDF bytes and a file name for a confirmed booking
func (s *TicketService) GenerateETicket(ctx context.Context, bookingID, actorID string, isAdmin bool) ([]byte, string, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID, actorID, isAdmin)
	if err != nil {
		return nil, "", err
	}
	if !booking.IsActive() {
		return nil, "", models.NewValidationError("booking is cancelled, no ticket available")
	}

	trip, err := s.trips.Load(ctx, booking.TripID)
	if err != nil {
		return nil, "", storeUnavailable("load trip for ticket", err)
	}

	data, err := buildETicketPDF(booking, trip)
	if err != nil {
		return nil, "", fmt.Errorf("render e-ticket: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"trip_id":    trip.ID,
		"bytes":      len(data),
	}).Debug("E-ticket generated")

	return data, fmt.Sprintf("eticket-%s.pdf", shortID(booking.ID)), nil
}

func buildETicketPDF(b *models.Booking, trip *models.ScheduledTrip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SmartTransit E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking        : %s", shortID(b.ID)),
		fmt.Sprintf("Route          : %s -> %s (route %s)", trip.Origin, trip.Destination, dash(trip.RouteNumber)),
		fmt.Sprintf("Date           : %s", trip.TripDate.Format("2006-01-02")),
		fmt.Sprintf("Departure      : %s", trip.DepartureTime),
		fmt.Sprintf("Arrival        : %s", dash(trip.DestinationTime)),
		fmt.Sprintf("Bus            : %s (%s)", dash(trip.BusNumber), dash(trip.OperatorName)),
		fmt.Sprintf("Seats          : %s", formatSeats([]int(b.SeatNumbers))),
		fmt.Sprintf("Fare per seat  : %s %.2f", b.Currency, b.Fare),
		fmt.Sprintf("Total paid     : %s %.2f", b.Currency, b.TotalAmount),
		fmt.Sprintf("Transaction    : %s", b.TransactionID),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please show this ticket to the conductor when boarding. Arrive at the bus halt 15 minutes before departure.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
