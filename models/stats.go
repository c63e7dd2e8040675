package models

// PoolStats reports the state of the browser pool.
type PoolStats struct {
	// MaxBrowsers is the configured pool cap.
	MaxBrowsers int `json:"max_browsers"`

	// Size is the number of live handles (in use + available).
	Size int `json:"size"`

	// InUse is the number of handles currently checked out.
	InUse int `json:"in_use"`

	// BreakerOpen reports whether the launch circuit breaker is tripped.
	BreakerOpen bool `json:"breaker_open"`

	// LaunchFailures is the current consecutive-launch-failure count.
	LaunchFailures int `json:"launch_failures"`
}

// CacheStats reports hit/miss counters for a result cache.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string                `json:"status"` // "healthy" or "degraded"
	Uptime    string                `json:"uptime"`
	PoolStats PoolStats             `json:"pool_stats"`
	Caches    map[string]CacheStats `json:"cache_stats"`
	Sources   int                   `json:"sources"`
	Version   string                `json:"version"`
}
