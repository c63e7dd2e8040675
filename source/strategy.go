package source

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/kagemura/scanlate/models"
)

// Strategy is the extraction capability every source must provide. It is
// handed a live, already navigated page and must not navigate itself.
type Strategy interface {
	ExtractList(ctx context.Context, page *rod.Page, baseURL string, limit int) ([]models.Series, error)
	ExtractDetails(ctx context.Context, page *rod.Page, url string) (*models.Series, error)
}

// ImageStrategy is the optional chapter-image capability. Sources that
// don't implement it simply don't support image listing; absence is legal.
type ImageStrategy interface {
	ExtractImages(ctx context.Context, page *rod.Page, url string) ([]models.ImageRef, error)
}

// Source is one registered content site: its extraction strategy plus the
// descriptive metadata the API and the aggregator need.
type Source struct {
	// Key is the registry lookup key ("kunmanga", "manhuafast", ...).
	Key string

	// Name is the human-readable site name.
	Name string

	// BaseURL is the site root, used to resolve relative links.
	BaseURL string

	// ListingPath is appended to BaseURL to reach the latest-updates page.
	ListingPath string

	// WaitSelector, when set, is waited for after navigation before
	// extraction runs. Useful for sites that render listings with JS.
	WaitSelector string

	Strategy Strategy
}

// ListingURL returns the absolute URL of the source's listing page.
func (s *Source) ListingURL() string {
	return s.BaseURL + s.ListingPath
}

// Images returns the source's image capability, if it has one.
func (s *Source) Images() (ImageStrategy, bool) {
	is, ok := s.Strategy.(ImageStrategy)
	return is, ok
}
