package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/api/handler"
	"github.com/kagemura/scanlate/api/middleware"
	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/source"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	sc handler.Orchestrator,
	agg handler.Aggregator,
	reg *source.Registry,
	pool *browser.Pool,
	caches *handler.Caches,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pool, reg, caches, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Registry
	protected.GET("/sources", handler.Sources(reg))

	// Single-source scrapes
	protected.GET("/sources/:key/latest", handler.Latest(sc, reg, caches))
	protected.GET("/sources/:key/series", handler.Series(sc, reg, caches))
	protected.GET("/sources/:key/images", handler.Images(sc, reg))

	// Cross-source fan-out
	protected.GET("/top", handler.Top(agg, reg, caches))

	return r
}
