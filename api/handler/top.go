package handler

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/cache"
	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

const defaultTopLimit = 10

// Top returns a handler for GET /api/v1/top?sources=a,b&limit=n.
//
// The fan-out runs all named sources in parallel with per-source failure
// isolation, so the whole result set is cacheable as one unit: a source
// that failed this round simply contributes an empty entry until the TTL
// lapses. With no sources parameter, every registered source is queried.
func Top(agg Aggregator, reg *source.Registry, cs *Caches) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys := reg.Keys()
		if raw := c.Query("sources"); raw != "" {
			keys = splitKeys(raw)
		}
		if len(keys) == 0 {
			respondCode(c, models.ErrCodeInvalidInput, "sources parameter named no sources")
			return
		}

		limit, err := queryInt(c, "limit", defaultTopLimit)
		if err != nil || limit < 0 || limit > maxListLimit {
			respondCode(c, models.ErrCodeInvalidInput,
				fmt.Sprintf("limit must be an integer in [0, %d]", maxListLimit))
			return
		}

		// Key on the sorted key set so ?sources=a,b and ?sources=b,a share
		// an entry; the fan-out's completion order is unstable anyway.
		sorted := slices.Clone(keys)
		slices.Sort(sorted)
		cacheKey := cache.Key(append([]string{"top", strconv.Itoa(limit)}, sorted...)...)

		fetch := func() ([]models.SourceResult, error) {
			return agg.FanOut(c.Request.Context(), keys, limit), nil
		}

		var results []models.SourceResult
		if cs != nil && cs.Top != nil {
			results, _ = cs.Top.GetOrSet(cacheKey, fetch, cs.Cfg.ListTTL)
		} else {
			results, _ = fetch()
		}

		c.JSON(http.StatusOK, models.TopResponse{Results: results})
	}
}

// splitKeys parses a comma-separated source list, dropping empty segments.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
