package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
)

// LoggingConfig tunes RequestLogging.
type LoggingConfig struct {
	// SkipPaths are not logged unless they fail.
	SkipPaths     []string
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips health and metrics requests and flags requests over three seconds.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/api/health", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging writes one entry per request. 5xx responses log at error
// level, 4xx and slow requests at warn.
func RequestLogging(logger logging.Logger, cfg LoggingConfig) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if skip[path] && status < http.StatusBadRequest {
			return
		}
		elapsed := time.Since(start)
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", elapsed),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("client_ip", c.ClientIP()),
			logging.String("request_id", GetRequestID(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request rejected", fields...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			logger.Warn("Slow HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
