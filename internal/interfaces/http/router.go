// Package http exposes the search engine as a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/handlers"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/middleware"
)

// RouterConfig aggregates handler and middleware dependencies. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	PatentHandler *handlers.PatentHandler
	HealthHandler *handlers.HealthHandler

	Logger         logging.Logger
	Metrics        middleware.HTTPRecorder
	MetricsHandler http.Handler
	MetricsPath    string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the route tree:
//
//	POST /api/search/{invalidity,infringement,patentability,by-patent-id}
//	GET  /api/patent/:doc_number
//	GET  /api/stats
//	GET  /api/health, /api/ready
//	GET  /metrics
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(api)
	}

	timed := api.Group("", middleware.Timeout(cfg.RequestTimeout))
	if cfg.PatentHandler != nil {
		cfg.PatentHandler.RegisterRoutes(timed)
	}
	if cfg.SearchHandler != nil {
		cfg.SearchHandler.RegisterRoutes(timed.Group("/search"))
	}
	return r
}
