package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrip(total int, fare float64, reserved ...int) *models.ScheduledTrip {
	res, avail, err := models.NewScheduledTripInventory(total, reserved)
	if err != nil {
		panic(err)
	}
	return &models.ScheduledTrip{
		ID:              "trip-1",
		PermitNumber:    "NTC-1001",
		RouteNumber:     "01",
		BusNumber:       "NB-4521",
		Origin:          "Colombo",
		Destination:     "Kandy",
		OperatorName:    "Lanka Express",
		TripDate:        time.Now().AddDate(0, 0, 7),
		DepartureTime:   "08:30",
		ArrivalTime:     "08:15",
		DestinationTime: "11:45",
		TotalSeats:      total,
		ReservedSeats:   res,
		AvailableSeats:  avail,
		Fare:            fare,
		Status:          models.ScheduledTripStatusScheduled,
		Version:         1,
	}
}

func TestReserve(t *testing.T) {
	t.Run("Moves seats to reserved", func(t *testing.T) {
		trip := testTrip(40, 500)

		next, err := Reserve(trip, []int{6, 5})
		require.NoError(t, err)
		assert.True(t, next.ReservedSeats.Contains(5))
		assert.True(t, next.ReservedSeats.Contains(6))
		assert.False(t, next.AvailableSeats.Contains(5))
		assert.Equal(t, 38, next.AvailableSeats.Len())
		require.NoError(t, next.CheckInventory())

		// input snapshot untouched
		assert.Equal(t, 0, trip.ReservedSeats.Len())
		assert.Equal(t, 40, trip.AvailableSeats.Len())
	})

	t.Run("Lists every conflicting seat", func(t *testing.T) {
		trip := testTrip(10, 500, 3, 4)

		_, err := Reserve(trip, []int{4, 5, 3, 12})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSeatUnavailable))
		assert.Equal(t, []int{3, 4, 12}, SeatsFromError(err))
	})

	t.Run("Rejects malformed requests", func(t *testing.T) {
		trip := testTrip(10, 500)

		for _, seats := range [][]int{nil, {}, {0}, {2, 2}} {
			_, err := Reserve(trip, seats)
			var vErr *models.ValidationError
			assert.ErrorAs(t, err, &vErr, "seats %v", seats)
		}
	})

	t.Run("Rejection is stable across retries", func(t *testing.T) {
		trip := testTrip(10, 500, 7)

		for i := 0; i < 5; i++ {
			_, err := Reserve(trip, []int{7})
			require.Error(t, err)
			assert.Equal(t, []int{7}, SeatsFromError(err))
		}
		assert.True(t, trip.ReservedSeats.Contains(7))
	})
}

func TestRelease(t *testing.T) {
	t.Run("Moves seats back to available", func(t *testing.T) {
		trip := testTrip(10, 500, 5, 6)

		next, err := Release(trip, []int{5})
		require.NoError(t, err)
		assert.Equal(t, []int{6}, next.ReservedSeats.Sorted())
		assert.True(t, next.AvailableSeats.Contains(5))
		require.NoError(t, next.CheckInventory())
	})

	t.Run("Lists every seat that is not reserved", func(t *testing.T) {
		trip := testTrip(10, 500, 5, 6)

		next, err := Release(trip, []int{5, 9})
		require.Error(t, err)
		assert.Nil(t, next)
		assert.True(t, errors.Is(err, ErrSeatNotReserved))
		assert.Equal(t, []int{9}, SeatsFromError(err))
		assert.Equal(t, []int{5, 6}, trip.ReservedSeats.Sorted())
	})
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	trip := testTrip(20, 500, 1, 2)

	reserved, err := Reserve(trip, []int{10, 11, 12})
	require.NoError(t, err)
	released, err := Release(reserved, []int{12, 10, 11})
	require.NoError(t, err)

	assert.True(t, trip.ReservedSeats.Equal(released.ReservedSeats))
	assert.True(t, trip.AvailableSeats.Equal(released.AvailableSeats))
}

func TestReserveRelease_PreservesInventory(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	trip := testTrip(30, 500)

	for i := 0; i < 500; i++ {
		count := rng.Intn(4) + 1
		seats := rng.Perm(32)[:count]
		for j := range seats {
			seats[j]++
		}

		var next *models.ScheduledTrip
		var err error
		if rng.Intn(2) == 0 {
			next, err = Reserve(trip, seats)
		} else {
			next, err = Release(trip, seats)
		}

		if err != nil {
			assert.NotEmpty(t, SeatsFromError(err), "rejection must name seats: %v", err)
			continue
		}
		require.NoError(t, next.CheckInventory(), "after step %d with seats %v", i, seats)
		trip = next
	}
}

func TestFareFor(t *testing.T) {
	assert.Equal(t, 1000.0, FareFor(testTrip(40, 500), 2))
	assert.Equal(t, 250.5, FareFor(testTrip(40, 250.5), 1))
	assert.Equal(t, 0.0, FareFor(testTrip(40, 0), 3))
	assert.Equal(t, 301.5, FareFor(testTrip(40, 100.5), 3))
}
