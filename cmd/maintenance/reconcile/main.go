package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

// reconcile checks upcoming trips against their confirmed bookings and
// optionally clears reservation data from a development database.
func main() {
	var (
		dbURLFlag  string
		days       int
		clearData  bool
		markDepart bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&days, "days", 7, "Number of days ahead to reconcile")
	flag.BoolVar(&markDepart, "mark-departed", false, "Also move departed trips to in_progress")
	flag.BoolVar(&clearData, "clear-data", false, "Truncate bookings, trips and payment audits instead of reconciling (development only)")
	flag.Parse()

	// .env in the working directory keeps secrets off the command line
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if clearData {
		if err := clearReservations(ctx, db); err != nil {
			logger.WithError(err).Fatal("Failed to clear reservation data")
		}
		logger.Info("Reservation data cleared")
		return
	}

	trips := database.NewScheduledTripRepository(db)
	tripService := services.NewTripService(
		database.NewBusPermitRepository(db),
		trips,
		database.NewBookingRepository(db),
		nil,
		3,
		logger,
		nil,
	)

	if markDepart {
		marked, err := tripService.MarkDeparted(ctx)
		if err != nil {
			logger.WithError(err).Fatal("Failed to mark departed trips")
		}
		logger.WithField("count", marked).Info("Departed trips marked")
	}

	mismatches, err := tripService.Reconcile(ctx, days)
	if err != nil {
		logger.WithError(err).Fatal("Reconciliation failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mismatches); err != nil {
		logger.WithError(err).Fatal("Failed to write report")
	}
	if len(mismatches) > 0 {
		cancel()
		db.Close()
		os.Exit(1)
	}
}

func clearReservations(ctx context.Context, db *database.PostgresDB) error {
	const truncateSQL = `
TRUNCATE TABLE
    payment_audits,
    bookings,
    scheduled_trips
RESTART IDENTITY CASCADE;`

	if _, err := db.ExecContext(ctx, truncateSQL); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	for _, t := range []string{"payment_audits", "bookings", "scheduled_trips"} {
		var count int
		if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
			return fmt.Errorf("count %s: %w", t, err)
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
	return nil
}
