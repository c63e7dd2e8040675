package models

// ErrorResponse is the envelope for failed API calls.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// SourceInfo describes one registered source in the sources listing.
type SourceInfo struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	BaseURL        string `json:"base_url"`
	SupportsImages bool   `json:"supports_images"`
}

// SourcesResponse is the response for GET /api/v1/sources.
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
}

// ListResponse wraps a single-source listing scrape with cache metadata.
type ListResponse struct {
	Source      string `json:"source"`
	CacheStatus string `json:"cache_status,omitempty"` // "hit" or "miss"
	*ScrapeResult
}

// SeriesResponse wraps a details scrape with cache metadata.
type SeriesResponse struct {
	Source      string `json:"source"`
	CacheStatus string `json:"cache_status,omitempty"`
	*DetailsResult
}

// TopResponse is the response for the fan-out endpoint.
type TopResponse struct {
	Results     []SourceResult `json:"results"`
	CacheStatus string         `json:"cache_status,omitempty"`
}
