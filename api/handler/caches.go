package handler

import (
	"github.com/kagemura/scanlate/cache"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
)

// Caches bundles the per-endpoint result caches with their TTLs. Any
// cache may be nil, which disables caching for its endpoint.
type Caches struct {
	Lists   *cache.Cache[*models.ScrapeResult]
	Details *cache.Cache[*models.DetailsResult]
	Top     *cache.Cache[[]models.SourceResult]

	Cfg config.CacheConfig
}

// Stats returns the per-cache counters for the health endpoint.
func (cs *Caches) Stats() map[string]models.CacheStats {
	out := make(map[string]models.CacheStats, 3)
	if cs == nil {
		return out
	}
	if cs.Lists != nil {
		out["lists"] = cs.Lists.Stats()
	}
	if cs.Details != nil {
		out["details"] = cs.Details.Stats()
	}
	if cs.Top != nil {
		out["top"] = cs.Top.Stats()
	}
	return out
}
