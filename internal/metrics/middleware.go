package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware creates a Gin middleware that collects HTTP metrics
func MetricsMiddleware(collector *Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		method := c.Request.Method
		path := c.Request.URL.Path
		status := c.Writer.Status()

		collector.RecordHTTPRequest(method, path, status)
		collector.RecordHTTPDuration(method, path, duration.Seconds())
	}
}
