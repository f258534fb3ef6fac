package admin

import (
	"net/http"
	"time"

	"github.com/danmuck/intentctl/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	keyRequestID    = "request_id"
	routeUnmatched  = "unmatched"
)

// requestID keeps a caller supplied X-Request-ID or assigns one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog logs each admin request with the model generation it observed
// and records the request in the admin HTTP metrics.
func accessLog(logger zerolog.Logger, source Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(c.Request.Method, route, status, elapsed)

		// unready is an expected probe answer, not a failure
		event := logger.Debug()
		switch {
		case status >= 500 && status != http.StatusServiceUnavailable:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str(keyRequestID, c.GetString(keyRequestID)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Uint64("generation", source.Generation()).
			Msg("admin request")
	}
}
