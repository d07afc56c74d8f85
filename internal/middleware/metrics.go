package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/watchparty/internal/metrics"
)

// Metrics records request count and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPMetrics(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
