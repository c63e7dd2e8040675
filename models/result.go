package models

import "time"

// ScrapeResult is the unified return type for list scrapes. It is never
// nil: a scrape that fails completely still returns a result with empty
// Items and populated Errors.
type ScrapeResult struct {
	// Items holds the normalized series, in page order.
	Items []Series `json:"items"`

	// TotalFound is the number of items extraction returned before the
	// orchestrator applied the request limit. Strategies receive the
	// limit too and may stop extracting once they reach it, in which
	// case TotalFound equals len(Items).
	TotalFound int `json:"total_found"`

	// ElapsedMs is the end-to-end duration of the scrape in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// Errors lists everything that went wrong, in occurrence order.
	// Non-empty Errors with empty Items means the scrape degraded.
	Errors []string `json:"errors"`
}

// DetailsResult is the return type for single-series detail scrapes.
// Item is nil when the page could not be parsed.
type DetailsResult struct {
	Item      *Series  `json:"item"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Errors    []string `json:"errors"`
}

// ImagesResult is the return type for chapter image scrapes.
type ImagesResult struct {
	Images    []ImageRef `json:"images"`
	ElapsedMs int64      `json:"elapsed_ms"`
	Errors    []string   `json:"errors"`
}

// SourceResult is one entry of a fan-out response. A source that failed
// contributes empty Items rather than aborting the fan-out.
type SourceResult struct {
	Source    string    `json:"source"`
	Items     []Series  `json:"items"`
	FetchedAt time.Time `json:"fetched_at"`
}
