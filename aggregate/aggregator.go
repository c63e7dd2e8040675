package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kagemura/scanlate/models"
	"github.com/kagemura/scanlate/scraper"
	"github.com/kagemura/scanlate/source"
)

// listScraper is the slice of the orchestrator the aggregator uses.
type listScraper interface {
	ScrapeList(ctx context.Context, req *models.ScrapeRequest, ex scraper.ListExtractor) (*models.ScrapeResult, error)
}

// Aggregator fans one listing request out to many sources in parallel
// with isolated per-source failure: a broken source contributes an empty
// item list and never cancels or delays the others.
type Aggregator struct {
	scraper  listScraper
	registry *source.Registry
}

// New creates an Aggregator over the given orchestrator and registry.
func New(sc listScraper, reg *source.Registry) *Aggregator {
	return &Aggregator{scraper: sc, registry: reg}
}

// FanOut scrapes the listing of every named source and returns one entry
// per source in completion order — callers must not assume the order of
// keys is preserved. A single source skips the parallel dispatch.
func (a *Aggregator) FanOut(ctx context.Context, keys []string, limit int) []models.SourceResult {
	if len(keys) == 0 {
		return []models.SourceResult{}
	}
	if len(keys) == 1 {
		return []models.SourceResult{a.fetchSource(ctx, keys[0], limit)}
	}

	results := make(chan models.SourceResult, len(keys))
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			results <- a.fetchSource(ctx, k, limit)
		}(key)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]models.SourceResult, 0, len(keys))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// fetchSource runs one source's listing scrape. Every failure mode —
// unknown key, pool exhaustion, navigation or extraction trouble —
// degrades to an empty item list on the entry.
func (a *Aggregator) fetchSource(ctx context.Context, key string, limit int) models.SourceResult {
	start := time.Now()
	entry := models.SourceResult{
		Source:    key,
		Items:     []models.Series{},
		FetchedAt: time.Now(),
	}

	src, ok := a.registry.Get(key)
	if !ok {
		slog.Warn("fan-out requested unknown source", "source", key)
		return entry
	}

	req := &models.ScrapeRequest{URL: src.ListingURL(), Limit: limit}
	req.Options.WaitForSelector = src.WaitSelector

	res, err := a.scraper.ScrapeList(ctx, req, src.Strategy)
	elapsed := time.Since(start)
	entry.FetchedAt = time.Now()

	switch {
	case err != nil:
		// Pool-level failure; this source yields nothing this round.
		slog.Error("fan-out source failed", "source", key, "elapsed", elapsed, "error", err)
	case len(res.Errors) > 0:
		slog.Warn("fan-out source degraded",
			"source", key, "elapsed", elapsed, "items", len(res.Items), "errors", res.Errors)
		entry.Items = res.Items
	default:
		slog.Debug("fan-out source done", "source", key, "elapsed", elapsed, "items", len(res.Items))
		entry.Items = res.Items
	}
	return entry
}
