package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/cache"
	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

// Series returns a handler for GET /api/v1/sources/:key/series?url=.
//
// The url parameter must be an absolute http(s) URL on the source's site.
func Series(sc Orchestrator, reg *source.Registry, cs *Caches) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		src, ok := reg.Get(key)
		if !ok {
			respondCode(c, models.ErrCodeUnknownSource, fmt.Sprintf("unknown source %q", key))
			return
		}

		pageURL, err := sourcePageURL(c.Query("url"), src)
		if err != nil {
			respondCode(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		cacheKey := cache.Key("series", key, pageURL)
		if cs != nil && cs.Details != nil {
			if res, hit := cs.Details.Get(cacheKey); hit {
				c.JSON(http.StatusOK, models.SeriesResponse{
					Source: key, CacheStatus: "hit", DetailsResult: res,
				})
				return
			}
		}

		req := &models.ScrapeRequest{URL: pageURL}
		res, err := sc.ScrapeDetails(c.Request.Context(), req, src.Strategy)
		if err != nil {
			respondError(c, err)
			return
		}

		if cs != nil && cs.Details != nil && len(res.Errors) == 0 && res.Item != nil {
			cs.Details.Set(cacheKey, res, cs.Cfg.DetailsTTL)
		}
		c.JSON(http.StatusOK, models.SeriesResponse{
			Source: key, CacheStatus: "miss", DetailsResult: res,
		})
	}
}

// sourcePageURL validates a caller-supplied page URL against the source it
// is scraped through. Off-site URLs are rejected so one source's selectors
// are never run against another site.
func sourcePageURL(raw string, src *source.Source) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("url query parameter is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url must be absolute http(s)")
	}
	base, err := url.Parse(src.BaseURL)
	if err != nil || !sameHost(u.Host, base.Host) {
		return "", fmt.Errorf("url host %q does not belong to source %q", u.Host, src.Key)
	}
	return u.String(), nil
}

func sameHost(a, b string) bool {
	trim := func(h string) string {
		if rest, found := strings.CutPrefix(h, "www."); found {
			return rest
		}
		return h
	}
	return trim(a) == trim(b)
}
