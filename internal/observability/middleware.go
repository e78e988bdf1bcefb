package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs each diagnostics request against the session it
// inspects, with the simulation time at which it was answered.
func RequestLogger(logger zerolog.Logger, info SessionInfo) gin.HandlerFunc {
	logger = logger.With().
		Str("session", info.Session).
		Str("backend", info.Backend).
		Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		if info.Step != nil {
			event = event.Dur("sim_time", info.Step())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", routeOf(c, c.Request.URL.Path)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("diagnostics request")
	}
}

// RequestMetricsMiddleware counts requests per backend. Unrouted paths share
// one label so scanners cannot grow the series set.
func RequestMetricsMiddleware(backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		RecordHTTPRequest(backend, c.Request.Method, routeOf(c, "unmatched"), c.Writer.Status())
	}
}

func routeOf(c *gin.Context, fallback string) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return fallback
}
