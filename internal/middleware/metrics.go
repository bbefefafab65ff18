package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/admissions-api/internal/service"
)

// Metrics records method, route, status and latency for every request. The
// route template is used so path parameters do not explode label cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
