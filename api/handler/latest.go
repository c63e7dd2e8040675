package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/cache"
	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Latest returns a handler for GET /api/v1/sources/:key/latest.
//
// Results are cached per (source, limit). Only clean results go into the
// cache — a degraded scrape carries errors and should be retried, not
// replayed for the TTL.
func Latest(sc Orchestrator, reg *source.Registry, cs *Caches) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		src, ok := reg.Get(key)
		if !ok {
			respondCode(c, models.ErrCodeUnknownSource, fmt.Sprintf("unknown source %q", key))
			return
		}

		limit, err := queryInt(c, "limit", defaultListLimit)
		if err != nil || limit < 0 || limit > maxListLimit {
			respondCode(c, models.ErrCodeInvalidInput,
				fmt.Sprintf("limit must be an integer in [0, %d]", maxListLimit))
			return
		}

		cacheKey := cache.Key("latest", key, strconv.Itoa(limit))
		if cs != nil && cs.Lists != nil {
			if res, hit := cs.Lists.Get(cacheKey); hit {
				c.JSON(http.StatusOK, models.ListResponse{
					Source: key, CacheStatus: "hit", ScrapeResult: res,
				})
				return
			}
		}

		req := &models.ScrapeRequest{URL: src.ListingURL(), Limit: limit}
		req.Options.WaitForSelector = src.WaitSelector

		res, err := sc.ScrapeList(c.Request.Context(), req, src.Strategy)
		if err != nil {
			respondError(c, err)
			return
		}

		if cs != nil && cs.Lists != nil && len(res.Errors) == 0 {
			cs.Lists.Set(cacheKey, res, cs.Cfg.ListTTL)
		}
		c.JSON(http.StatusOK, models.ListResponse{
			Source: key, CacheStatus: "miss", ScrapeResult: res,
		})
	}
}
