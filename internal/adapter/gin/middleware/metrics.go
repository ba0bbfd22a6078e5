package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
}

// unmatchedRoute labels requests that hit no route, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records request counts and latency by route template.
func Metrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		rec.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
