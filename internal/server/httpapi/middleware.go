package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"hq/internal/logging"
	"hq/internal/observability"
)

// requestLogger logs each handled request with latency and status.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s) from %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(started).Round(time.Microsecond), c.ClientIP())
	}
}

// metricsMiddleware records request counts and latency per route template.
func metricsMiddleware(metrics *observability.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route,
			c.Writer.Status(), time.Since(started))
	}
}

// requestDeadline applies the server-wide request timeout to each request's
// context. Store calls observe the deadline; a commit already issued is not
// rolled back (partial progress is bounded by the transaction).
func requestDeadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
