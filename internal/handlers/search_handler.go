package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// TripSearcher is implemented by services.SearchService
type TripSearcher interface {
	SearchTrips(ctx context.Context, origin, destination, date string) (*models.SearchResponse, error)
}

// SearchHandler handles HTTP requests for trip search
type SearchHandler struct {
	service TripSearcher
	logger  *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service TripSearcher, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// SearchTrips handles GET /api/v1/trips/search
// @Summary Search for bookable trips
// @Description Lists trips between two places on a date with their available seats
// @Tags Search
// @Produce json
// @Param origin query string true "Origin"
// @Param destination query string true "Destination"
// @Param date query string true "Trip date (YYYY-MM-DD)"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 503 {object} ErrorResponse "Trip store unavailable"
// @Router /api/v1/trips/search [get]
func (h *SearchHandler) SearchTrips(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")
	date := c.Query("date")

	response, err := h.service.SearchTrips(c.Request.Context(), origin, destination, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"origin":        origin,
		"destination":   destination,
		"date":          date,
		"results_count": len(response.Results),
	}).Debug("Search completed")

	c.JSON(http.StatusOK, response)
}
