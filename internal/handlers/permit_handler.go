package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// PermitAdmin is implemented by services.TripService
type PermitAdmin interface {
	CreatePermit(ctx context.Context, req *models.CreateBusPermitRequest) (*models.BusPermit, error)
	ListPermits(ctx context.Context) ([]*models.BusPermit, error)
}

// PermitHandler handles bus permit administration
type PermitHandler struct {
	permits PermitAdmin
	logger  *logrus.Logger
}

// NewPermitHandler creates a new PermitHandler
func NewPermitHandler(permits PermitAdmin, logger *logrus.Logger) *PermitHandler {
	return &PermitHandler{
		permits: permits,
		logger:  logger,
	}
}

// CreatePermit handles POST /api/v1/admin/permits
// @Summary Register a bus permit
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.CreateBusPermitRequest true "Permit"
// @Success 201 {object} models.BusPermit
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Permit number already registered"
// @Router /api/v1/admin/permits [post]
func (h *PermitHandler) CreatePermit(c *gin.Context) {
	var req models.CreateBusPermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	permit, err := h.permits.CreatePermit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, permit)
}

// ListPermits handles GET /api/v1/admin/permits
func (h *PermitHandler) ListPermits(c *gin.Context) {
	permits, err := h.permits.ListPermits(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"permits": permits,
		"count":   len(permits),
	})
}
