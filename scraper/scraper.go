package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
)

// ListExtractor turns a loaded listing page into normalized items.
// Implementations must not navigate; they receive a live, already
// navigated page. They may suspend on DOM queries and may fail.
type ListExtractor interface {
	ExtractList(ctx context.Context, page *rod.Page, baseURL string, limit int) ([]models.Series, error)
}

// DetailsExtractor parses one series page into a single item.
// A nil item with a nil error means the page held no recognizable series.
type DetailsExtractor interface {
	ExtractDetails(ctx context.Context, page *rod.Page, url string) (*models.Series, error)
}

// ImageExtractor is an optional capability: sources that don't implement
// it simply don't support chapter image listing. Absence is not an error.
type ImageExtractor interface {
	ExtractImages(ctx context.Context, page *rod.Page, url string) ([]models.ImageRef, error)
}

// Scraper drives one scrape end to end: acquire a browser from the pool,
// open and configure a page session, navigate, wait, pace, extract, and
// release everything on every exit path.
//
// Extraction-domain failures (navigation timeout, selector wait, extractor
// errors) are captured into the result's Errors; the only errors returned
// from the methods themselves are pool acquisition failures, which mean
// the system cannot currently do useful work at all.
type Scraper struct {
	pool handlePool
	cfg  config.ScraperConfig

	// newSession is swapped for a fake in tests.
	newSession func(h *browser.Handle) (pageSession, error)
}

// handlePool is the slice of the browser pool the orchestrator depends on.
type handlePool interface {
	Acquire(ctx context.Context, opts browser.LaunchOptions) (*browser.Handle, error)
	Release(h *browser.Handle)
}

// New creates a Scraper backed by the given pool.
func New(pool *browser.Pool, cfg config.ScraperConfig) *Scraper {
	s := &Scraper{pool: pool, cfg: cfg}
	s.newSession = func(h *browser.Handle) (pageSession, error) {
		return NewSession(h, cfg.BlockedResourceTypes)
	}
	return s
}

// ScrapeList scrapes a listing page. The returned result is never nil:
// on failure it carries empty Items and populated Errors.
func (s *Scraper) ScrapeList(ctx context.Context, req *models.ScrapeRequest, ex ListExtractor) (*models.ScrapeResult, error) {
	start := time.Now()
	res := &models.ScrapeResult{Items: []models.Series{}, Errors: []string{}}

	err := s.withSession(ctx, req, func(sessCtx context.Context, sess pageSession) {
		items, exErr := callList(sessCtx, ex, sess.Page(), req.URL, req.Limit)
		if exErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", models.ErrCodeExtraction, exErr))
			return
		}
		res.TotalFound = len(items)
		if req.Limit > 0 && len(items) > req.Limit {
			items = items[:req.Limit]
		}
		res.Items = items
	}, &res.Errors)
	if err != nil {
		return nil, err
	}

	res.ElapsedMs = time.Since(start).Milliseconds()
	return res, nil
}

// ScrapeDetails scrapes a single series page. Item is nil when the page
// could not be parsed; Errors explains why.
func (s *Scraper) ScrapeDetails(ctx context.Context, req *models.ScrapeRequest, ex DetailsExtractor) (*models.DetailsResult, error) {
	start := time.Now()
	res := &models.DetailsResult{Errors: []string{}}

	err := s.withSession(ctx, req, func(sessCtx context.Context, sess pageSession) {
		item, exErr := callDetails(sessCtx, ex, sess.Page(), req.URL)
		if exErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", models.ErrCodeExtraction, exErr))
			return
		}
		res.Item = item
	}, &res.Errors)
	if err != nil {
		return nil, err
	}

	res.ElapsedMs = time.Since(start).Milliseconds()
	return res, nil
}

// ScrapeImages scrapes a chapter page for its image references. Callers
// must check the source's ImageExtractor capability first; this method
// assumes it is present.
func (s *Scraper) ScrapeImages(ctx context.Context, req *models.ScrapeRequest, ex ImageExtractor) (*models.ImagesResult, error) {
	start := time.Now()
	res := &models.ImagesResult{Images: []models.ImageRef{}, Errors: []string{}}

	err := s.withSession(ctx, req, func(sessCtx context.Context, sess pageSession) {
		images, exErr := callImages(sessCtx, ex, sess.Page(), req.URL)
		if exErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", models.ErrCodeExtraction, exErr))
			return
		}
		res.Images = images
	}, &res.Errors)
	if err != nil {
		return nil, err
	}

	res.ElapsedMs = time.Since(start).Milliseconds()
	return res, nil
}

// withSession runs the shared scrape lifecycle and invokes extract with a
// ready page. Lifecycle:
//
//  1. Acquire a pool handle — acquisition failures are returned as real
//     errors, everything after this point degrades into errs instead.
//  2. Open and configure the page session (viewport, UA, blocking).
//  3. Navigate under the request timeout.
//  4. Optionally wait for the configured selector, with a shorter sub-timeout.
//  5. Optionally pace before extraction.
//  6. DEFER: close the session and release the handle on every exit path,
//     including a panicking extractor.
func (s *Scraper) withSession(ctx context.Context, req *models.ScrapeRequest, extract func(context.Context, pageSession), errs *[]string) error {
	req.Defaults()
	if req.Options.UserAgent == "" {
		req.Options.UserAgent = s.cfg.UserAgent
	}
	if s.cfg.Stealth {
		req.Options.Stealth = true
	}
	if req.Options.Delay == nil && (s.cfg.DelayMinMs > 0 || s.cfg.DelayMaxMs > 0) {
		req.Options.Delay = &models.Delay{MinMs: s.cfg.DelayMinMs, MaxMs: s.cfg.DelayMaxMs}
	}

	h, err := s.pool.Acquire(ctx, browser.LaunchOptions{Headless: req.Options.Headless})
	if err != nil {
		return err
	}
	defer s.pool.Release(h)

	sess, err := s.newSession(h)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: open page: %v", models.ErrCodeInternal, err))
		return nil
	}
	defer sess.Close()

	if err := sess.Configure(req.Options); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: configure page: %v", models.ErrCodeInternal, err))
		return nil
	}

	navTimeout := time.Duration(req.Options.TimeoutMs) * time.Millisecond
	if navTimeout <= 0 {
		navTimeout = s.cfg.NavigationTimeout
	}
	if err := sess.Navigate(ctx, req.URL, navTimeout); err != nil {
		*errs = append(*errs, navErrString(err))
		return nil
	}

	if sel := req.Options.WaitForSelector; sel != "" {
		if err := sess.WaitSelector(ctx, sel, s.cfg.SelectorTimeout); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: waiting for %q: %v", models.ErrCodeSelectorTimeout, sel, err))
			return nil
		}
	}

	if d := pacingDelay(req.Options.Delay); d > 0 {
		if err := sleepCtx(ctx, d); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: pacing interrupted: %v", models.ErrCodeInternal, err))
			return nil
		}
	}

	extract(ctx, sess)
	return nil
}

// navErrString maps a navigation error to a diagnostic string with the
// right error code, distinguishing timeouts from hard failures.
func navErrString(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s: %v", models.ErrCodeNavTimeout, err)
	}
	return fmt.Sprintf("%s: %v", models.ErrCodeNavigation, err)
}

// The call* wrappers convert extractor panics into errors so a broken
// strategy degrades one scrape instead of taking down the process.

func callList(ctx context.Context, ex ListExtractor, page *rod.Page, url string, limit int) (items []models.Series, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.ExtractList(ctx, page, url, limit)
}

func callDetails(ctx context.Context, ex DetailsExtractor, page *rod.Page, url string) (item *models.Series, err error) {
	defer func() {
		if r := recover(); r != nil {
			item, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.ExtractDetails(ctx, page, url)
}

func callImages(ctx context.Context, ex ImageExtractor, page *rod.Page, url string) (images []models.ImageRef, err error) {
	defer func() {
		if r := recover(); r != nil {
			images, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.ExtractImages(ctx, page, url)
}
