package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/infrastructure/metrics"
)

// Metrics records request count and latency per matched route. Unmatched
// paths are folded into one label to keep cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
