package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

// Version is the reported service version.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports pool and cache state; status degrades when the launch circuit
// breaker is open or every browser slot is checked out.
func Health(pool *browser.Pool, reg *source.Registry, cs *Caches, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.BreakerOpen || (stats.MaxBrowsers > 0 && stats.InUse >= stats.MaxBrowsers) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Caches:    cs.Stats(),
			Sources:   reg.Len(),
			Version:   Version,
		})
	}
}
