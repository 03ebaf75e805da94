package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
)

// Metrics records request counts and latency labelled by route template,
// so /trips/:id does not explode into one series per trip
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
