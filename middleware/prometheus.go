package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/monitor"
)

// PrometheusMiddleware records request count and latency per route template.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitor.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
