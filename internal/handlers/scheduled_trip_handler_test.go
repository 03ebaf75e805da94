package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleTrip(version int64, reserved ...int) *models.ScheduledTrip {
	res, avail, err := models.NewScheduledTripInventory(40, reserved)
	if err != nil {
		panic(err)
	}
	return &models.ScheduledTrip{
		ID:             "trip-1",
		PermitNumber:   "NTC-1001",
		OperatorName:   "Lanka Express",
		Origin:         "Colombo",
		Destination:    "Kandy",
		TripDate:       time.Now().AddDate(0, 0, 7),
		DepartureTime:  "08:30",
		TotalSeats:     40,
		ReservedSeats:  res,
		AvailableSeats: avail,
		Fare:           1500,
		Status:         models.ScheduledTripStatusScheduled,
		Version:        version,
	}
}

// chanFeed hands out one pre-made channel per subscription
type chanFeed struct {
	events       chan models.InventoryEvent
	unsubscribed chan struct{}
}

func newChanFeed() *chanFeed {
	return &chanFeed{
		events:       make(chan models.InventoryEvent, 4),
		unsubscribed: make(chan struct{}),
	}
}

func (f *chanFeed) Subscribe(string) (<-chan models.InventoryEvent, func()) {
	return f.events, func() { close(f.unsubscribed) }
}

func tripRouter(t *testing.T, trips *MockTripAdmin, feed InventoryFeed, user gin.HandlerFunc) *gin.Engine {
	router := setupTestRouter(t)
	h := NewScheduledTripHandler(trips, feed, quietLogger())
	if user == nil {
		user = func(c *gin.Context) { c.Next() }
	}

	router.GET("/trips/:id", h.GetTrip)
	router.GET("/trips/:id/seats/stream", h.StreamSeats)
	router.GET("/operator/trips", user, h.ListOperatorTrips)
	router.POST("/admin/trips", user, h.CreateTrip)
	router.PUT("/admin/trips/:id", user, h.UpdateTrip)
	return router
}

func TestGetTrip(t *testing.T) {
	trips := new(MockTripAdmin)
	router := tripRouter(t, trips, newChanFeed(), nil)

	trips.On("GetTrip", mock.Anything, "trip-1").Return(sampleTrip(3, 1, 2), nil)
	trips.On("GetTrip", mock.Anything, "missing").Return(nil, services.ErrTripNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trips/trip-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reserved_seats":[1,2]`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trips/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamSeats(t *testing.T) {
	trips := new(MockTripAdmin)
	feed := newChanFeed()
	trips.On("GetTrip", mock.Anything, "trip-1").Return(sampleTrip(3), nil)

	server := httptest.NewServer(tripRouter(t, trips, feed, nil))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/trips/trip-1/seats/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	first := readEvent(t, reader)
	assert.Equal(t, int64(3), first.Version)
	assert.Empty(t, first.ReservedSeats)

	// A stale event is skipped; the next newer one is delivered
	feed.events <- models.NewInventoryEvent(sampleTrip(2, 9))
	feed.events <- models.NewInventoryEvent(sampleTrip(4, 7))

	next := readEvent(t, reader)
	assert.Equal(t, int64(4), next.Version)
	assert.Equal(t, []int{7}, next.ReservedSeats)

	cancel()
	select {
	case <-feed.unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not unsubscribe after the client left")
	}
}

// readEvent returns the next "inventory" event, skipping pings
func readEvent(t *testing.T, reader *bufio.Reader) models.InventoryEvent {
	t.Helper()
	event := ""
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "inventory":
			var ev models.InventoryEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev))
			return ev
		}
	}
}

func TestStreamSeats_UnknownTrip(t *testing.T) {
	trips := new(MockTripAdmin)
	feed := newChanFeed()
	trips.On("GetTrip", mock.Anything, "missing").Return(nil, services.ErrTripNotFound)

	w := httptest.NewRecorder()
	tripRouter(t, trips, feed, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trips/missing/seats/stream", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	_, open := <-feed.unsubscribed
	assert.False(t, open)
}

func TestListOperatorTrips(t *testing.T) {
	t.Run("Operator sees own trips", func(t *testing.T) {
		trips := new(MockTripAdmin)
		trips.On("ListOperatorTrips", mock.Anything, "Lanka Express", "desc").Return([]*models.ScheduledTrip{sampleTrip(1)}, nil)
		router := tripRouter(t, trips, newChanFeed(), asOperator("op-1", "Lanka Express", jwt.RoleOperator))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operator/trips?sort=desc", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
		trips.AssertExpectations(t)
	})

	t.Run("Operator cannot read another operator", func(t *testing.T) {
		trips := new(MockTripAdmin)
		router := tripRouter(t, trips, newChanFeed(), asOperator("op-1", "Lanka Express", jwt.RoleOperator))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operator/trips?operator=Other+Lines", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		trips.AssertNotCalled(t, "ListOperatorTrips", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Admin names the operator", func(t *testing.T) {
		trips := new(MockTripAdmin)
		trips.On("ListOperatorTrips", mock.Anything, "Other Lines", "asc").Return([]*models.ScheduledTrip{}, nil)
		router := tripRouter(t, trips, newChanFeed(), asUser("admin-1", jwt.RoleAdmin))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operator/trips?operator=Other+Lines", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operator/trips", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateTrip(t *testing.T) {
	valid := map[string]any{
		"permit_number":    "NTC-1001",
		"trip_date":        time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		"departure_time":   "08:30",
		"arrival_time":     "08:15",
		"destination_time": "11:45",
		"total_seats":      40,
		"fare":             1500,
	}

	t.Run("Created", func(t *testing.T) {
		trips := new(MockTripAdmin)
		trips.On("CreateTrip", mock.Anything, mock.MatchedBy(func(req *models.CreateScheduledTripRequest) bool {
			return req.PermitNumber == "NTC-1001" && req.TotalSeats == 40
		})).Return(sampleTrip(1), nil)
		router := tripRouter(t, trips, newChanFeed(), asUser("admin-1", jwt.RoleAdmin))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/trips", valid))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Bad clock time", func(t *testing.T) {
		body := map[string]any{}
		for k, v := range valid {
			body[k] = v
		}
		body["departure_time"] = "25:00"

		trips := new(MockTripAdmin)
		router := tripRouter(t, trips, newChanFeed(), asUser("admin-1", jwt.RoleAdmin))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/trips", body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Permit expired", func(t *testing.T) {
		trips := new(MockTripAdmin)
		trips.On("CreateTrip", mock.Anything, mock.Anything).Return(nil, services.ErrPermitExpired)
		router := tripRouter(t, trips, newChanFeed(), asUser("admin-1", jwt.RoleAdmin))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/trips", valid))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "PERMIT_EXPIRED", decodeError(t, w).Code)
	})
}

func TestUpdateTrip(t *testing.T) {
	trips := new(MockTripAdmin)
	trips.On("UpdateTrip", mock.Anything, "trip-1", mock.MatchedBy(func(req *models.UpdateScheduledTripRequest) bool {
		return req.Fare != nil && *req.Fare == 1750
	})).Return(sampleTrip(2), nil)
	router := tripRouter(t, trips, newChanFeed(), asUser("admin-1", jwt.RoleAdmin))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/admin/trips/trip-1", map[string]any{"fare": 1750}))

	assert.Equal(t, http.StatusOK, w.Code)
	trips.AssertExpectations(t)
}
