package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/utils"
)

// MetricsBasicAuth guards /metrics with a user and bcrypt password hash.
// It is a no-op when no credentials are configured.
func MetricsBasicAuth(cfg config.MetricsConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() {
			c.Next()
			return
		}

		user, password, ok := c.Request.BasicAuth()
		if !ok || user != cfg.User || !utils.CheckPassword(cfg.PasswordHash, password) {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid metrics credentials")
			return
		}
		c.Next()
	}
}
