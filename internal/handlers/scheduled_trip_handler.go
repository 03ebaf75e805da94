package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

// TripAdmin is implemented by services.TripService
type TripAdmin interface {
	GetTrip(ctx context.Context, tripID string) (*models.ScheduledTrip, error)
	CreateTrip(ctx context.Context, req *models.CreateScheduledTripRequest) (*models.ScheduledTrip, error)
	UpdateTrip(ctx context.Context, tripID string, req *models.UpdateScheduledTripRequest) (*models.ScheduledTrip, error)
	ListOperatorTrips(ctx context.Context, operatorName, sort string) ([]*models.ScheduledTrip, error)
}

// InventoryFeed is implemented by services.InventoryHub
type InventoryFeed interface {
	Subscribe(tripID string) (<-chan models.InventoryEvent, func())
}

// ScheduledTripHandler serves trip snapshots, live seat updates and trip administration
type ScheduledTripHandler struct {
	trips     TripAdmin
	feed      InventoryFeed
	heartbeat time.Duration
	logger    *logrus.Logger
}

// NewScheduledTripHandler creates a new ScheduledTripHandler
func NewScheduledTripHandler(trips TripAdmin, feed InventoryFeed, logger *logrus.Logger) *ScheduledTripHandler {
	return &ScheduledTripHandler{
		trips:     trips,
		feed:      feed,
		heartbeat: 15 * time.Second,
		logger:    logger,
	}
}

// GetTrip handles GET /api/v1/trips/:id
// @Summary Get a trip with its seat inventory
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.ScheduledTrip
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/trips/{id} [get]
func (h *ScheduledTripHandler) GetTrip(c *gin.Context) {
	trip, err := h.trips.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// StreamSeats handles GET /api/v1/trips/:id/seats/stream.
// The first event is the current snapshot; later events follow every
// committed booking or cancellation on the trip.
func (h *ScheduledTripHandler) StreamSeats(c *gin.Context) {
	tripID := c.Param("id")

	events, unsubscribe := h.feed.Subscribe(tripID)
	defer unsubscribe()

	// Subscribe before loading so no commit between the two is missed
	trip, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	lastVersion := trip.Version
	c.SSEvent("inventory", models.NewInventoryEvent(trip))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if ev.Version <= lastVersion {
				return true
			}
			lastVersion = ev.Version
			c.SSEvent("inventory", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// ListOperatorTrips handles GET /api/v1/operator/trips?operator=&sort=asc|desc.
// Operators only see their own trips; admins may name any operator.
func (h *ScheduledTripHandler) ListOperatorTrips(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	operator := c.Query("operator")
	if !userCtx.IsAdmin() {
		if operator != "" && operator != userCtx.Operator {
			respondError(c, h.logger, services.ErrForbidden)
			return
		}
		operator = userCtx.Operator
	}
	if operator == "" {
		respondError(c, h.logger, models.NewValidationError("operator is required"))
		return
	}

	trips, err := h.trips.ListOperatorTrips(c.Request.Context(), operator, c.DefaultQuery("sort", "asc"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operator": operator,
		"trips":    trips,
		"count":    len(trips),
	})
}

// CreateTrip handles POST /api/v1/admin/trips
// @Summary Schedule a trip under a bus permit
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.CreateScheduledTripRequest true "Trip"
// @Success 201 {object} models.ScheduledTrip
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Permit not found"
// @Router /api/v1/admin/trips [post]
func (h *ScheduledTripHandler) CreateTrip(c *gin.Context) {
	var req models.CreateScheduledTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trip, err := h.trips.CreateTrip(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// UpdateTrip handles PUT /api/v1/admin/trips/:id
func (h *ScheduledTripHandler) UpdateTrip(c *gin.Context) {
	var req models.UpdateScheduledTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trip, err := h.trips.UpdateTrip(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}
