package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/scraper"
)

// Orchestrator is the scrape surface the handlers call. Satisfied by
// *scraper.Scraper; an interface so handler tests can stub it.
type Orchestrator interface {
	ScrapeList(ctx context.Context, req *models.ScrapeRequest, ex scraper.ListExtractor) (*models.ScrapeResult, error)
	ScrapeDetails(ctx context.Context, req *models.ScrapeRequest, ex scraper.DetailsExtractor) (*models.DetailsResult, error)
	ScrapeImages(ctx context.Context, req *models.ScrapeRequest, ex scraper.ImageExtractor) (*models.ImagesResult, error)
}

// Aggregator is the fan-out surface. Satisfied by *aggregate.Aggregator.
type Aggregator interface {
	FanOut(ctx context.Context, keys []string, limit int) []models.SourceResult
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
