package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/source"
)

// Images returns a handler for GET /api/v1/sources/:key/images?url=.
//
// Image extraction is an optional source capability; a source without it
// gets a structured FEATURE_UNSUPPORTED rather than an empty result, so
// callers can tell "no capability" from "chapter had no images".
//
// Responses are not cached: chapter pages are immutable once published,
// but their image payloads are large and rarely re-requested.
func Images(sc Orchestrator, reg *source.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		src, ok := reg.Get(key)
		if !ok {
			respondCode(c, models.ErrCodeUnknownSource, fmt.Sprintf("unknown source %q", key))
			return
		}

		strategy, ok := src.Images()
		if !ok {
			respondCode(c, models.ErrCodeUnsupported,
				fmt.Sprintf("source %q does not support image extraction", key))
			return
		}

		pageURL, err := sourcePageURL(c.Query("url"), src)
		if err != nil {
			respondCode(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		req := &models.ScrapeRequest{URL: pageURL}
		res, err := sc.ScrapeImages(c.Request.Context(), req, strategy)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
