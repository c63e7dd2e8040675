package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
)

// fakePool hands out a single shared fake handle, optionally failing, and
// serializes acquires at a configurable cap.
type fakePool struct {
	acquireErr error
	cap        int

	mu       sync.Mutex
	inUse    int
	released atomic.Int32
}

func (p *fakePool) Acquire(ctx context.Context, _ browser.LaunchOptions) (*browser.Handle, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	cap := p.cap
	if cap == 0 {
		cap = 1
	}
	for {
		p.mu.Lock()
		if p.inUse < cap {
			p.inUse++
			p.mu.Unlock()
			return &browser.Handle{}, nil
		}
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, models.NewScrapeError(models.ErrCodePoolExhausted, "acquire canceled", ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
}

func (p *fakePool) Release(*browser.Handle) {
	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
	p.released.Add(1)
}

// fakeSession fails whichever phase the test configures and records the
// options it was configured with plus Close.
type fakeSession struct {
	configureErr error
	navigateErr  error
	navigateWait time.Duration
	selectorErr  error
	closed       atomic.Bool

	gotOpts models.ScrapeOptions
}

func (f *fakeSession) Configure(opts models.ScrapeOptions) error {
	f.gotOpts = opts
	return f.configureErr
}

func (f *fakeSession) Navigate(ctx context.Context, _ string, _ time.Duration) error {
	if f.navigateWait > 0 {
		time.Sleep(f.navigateWait)
	}
	return f.navigateErr
}

func (f *fakeSession) WaitSelector(context.Context, string, time.Duration) error {
	return f.selectorErr
}

func (f *fakeSession) Page() *rod.Page { return nil }

func (f *fakeSession) Close() { f.closed.Store(true) }

type fakeExtractor struct {
	items   []models.Series
	item    *models.Series
	err     error
	panics  bool
	invoked atomic.Int32
}

func (f *fakeExtractor) ExtractList(_ context.Context, _ *rod.Page, _ string, _ int) ([]models.Series, error) {
	f.invoked.Add(1)
	if f.panics {
		panic("selector table changed")
	}
	return f.items, f.err
}

func (f *fakeExtractor) ExtractDetails(_ context.Context, _ *rod.Page, _ string) (*models.Series, error) {
	f.invoked.Add(1)
	if f.panics {
		panic("selector table changed")
	}
	return f.item, f.err
}

func newTestScraper(pool *fakePool, sess *fakeSession) *Scraper {
	s := New(nil, config.ScraperConfig{
		NavigationTimeout: time.Second,
		SelectorTimeout:   100 * time.Millisecond,
		UserAgent:         "test-agent",
	})
	s.pool = pool
	s.newSession = func(*browser.Handle) (pageSession, error) { return sess, nil }
	return s
}

func hasErrorWith(errs []string, code string) bool {
	for _, e := range errs {
		if strings.Contains(e, code) {
			return true
		}
	}
	return false
}

func TestScrapeList_Success(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	ex := &fakeExtractor{items: []models.Series{
		{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}, {Title: "e"},
	}}
	s := newTestScraper(pool, sess)

	res, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test/latest", Limit: 3}, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 3 {
		t.Errorf("expected 3 items after limit, got %d", len(res.Items))
	}
	if res.TotalFound != 5 {
		t.Errorf("expected total_found 5, got %d", res.TotalFound)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
	if !sess.closed.Load() {
		t.Error("session was not closed")
	}
	if pool.released.Load() != 1 {
		t.Error("handle was not released")
	}
}

func TestScrapeList_NavigationTimeoutDegrades(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{navigateErr: context.DeadlineExceeded}
	ex := &fakeExtractor{}
	s := newTestScraper(pool, sess)

	res, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex)
	if err != nil {
		t.Fatalf("navigation failure must not surface as an error, got: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected empty items, got %d", len(res.Items))
	}
	if !hasErrorWith(res.Errors, models.ErrCodeNavTimeout) {
		t.Errorf("expected a %s error, got %v", models.ErrCodeNavTimeout, res.Errors)
	}
	if ex.invoked.Load() != 0 {
		t.Error("extractor must not run after a failed navigation")
	}
	if !sess.closed.Load() || pool.released.Load() != 1 {
		t.Error("cleanup did not run on the failure path")
	}
}

func TestScrapeList_SelectorWaitTimeout(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{selectorErr: context.DeadlineExceeded}
	ex := &fakeExtractor{}
	s := newTestScraper(pool, sess)

	req := &models.ScrapeRequest{URL: "https://x.test"}
	req.Options.WaitForSelector = "div.listing"

	res, err := s.ScrapeList(context.Background(), req, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasErrorWith(res.Errors, models.ErrCodeSelectorTimeout) {
		t.Errorf("expected a %s error, got %v", models.ErrCodeSelectorTimeout, res.Errors)
	}
	if ex.invoked.Load() != 0 {
		t.Error("extractor must not run after a failed selector wait")
	}
}

func TestScrapeList_ExtractorPanicIsCaptured(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	ex := &fakeExtractor{panics: true}
	s := newTestScraper(pool, sess)

	res, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex)
	if err != nil {
		t.Fatalf("extractor panic must not surface as an error, got: %v", err)
	}
	if !hasErrorWith(res.Errors, models.ErrCodeExtraction) {
		t.Errorf("expected a %s error, got %v", models.ErrCodeExtraction, res.Errors)
	}
	if !sess.closed.Load() || pool.released.Load() != 1 {
		t.Error("cleanup did not run after the extractor panic")
	}
}

func TestScrapeList_ExtractorErrorIsCaptured(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	ex := &fakeExtractor{err: errors.New("no .listing nodes found")}
	s := newTestScraper(pool, sess)

	res, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected empty items, got %d", len(res.Items))
	}
	if !hasErrorWith(res.Errors, models.ErrCodeExtraction) {
		t.Errorf("expected a %s error, got %v", models.ErrCodeExtraction, res.Errors)
	}
}

func TestScrapeList_PoolFailurePropagates(t *testing.T) {
	pool := &fakePool{acquireErr: models.NewScrapeError(models.ErrCodeLaunchFailure, "breaker open", nil)}
	s := newTestScraper(pool, &fakeSession{})

	_, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, &fakeExtractor{})
	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeLaunchFailure {
		t.Fatalf("expected LAUNCH_FAILURE to propagate, got %v", err)
	}
}

func TestScrapeDetails_Success(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	ex := &fakeExtractor{item: &models.Series{Title: "Solo Farming"}}
	s := newTestScraper(pool, sess)

	res, err := s.ScrapeDetails(context.Background(), &models.ScrapeRequest{URL: "https://x.test/series/1"}, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Item == nil || res.Item.Title != "Solo Farming" {
		t.Errorf("unexpected item: %+v", res.Item)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
}

// Two concurrent scrapes at pool cap 1 must serialize: the second acquire
// suspends until the first scrape releases, so the wall time approximates
// the sum of both scrapes, not their max.
func TestScrapeList_SerializesAtCapOne(t *testing.T) {
	pool := &fakePool{cap: 1}
	s := New(nil, config.ScraperConfig{NavigationTimeout: time.Second})
	s.pool = pool
	s.newSession = func(*browser.Handle) (pageSession, error) {
		return &fakeSession{navigateWait: 50 * time.Millisecond}, nil
	}
	ex := &fakeExtractor{items: []models.Series{{Title: "a"}}}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex); err != nil {
				t.Errorf("scrape failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("scrapes overlapped at cap 1: wall time %v", elapsed)
	}
}

// The configured stealth default must reach the page session even when the
// request does not ask for it; a request that asks keeps it regardless.
func TestScrapeList_ConfiguredStealthReachesSession(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	s := New(nil, config.ScraperConfig{NavigationTimeout: time.Second, Stealth: true})
	s.pool = pool
	s.newSession = func(*browser.Handle) (pageSession, error) { return sess, nil }
	ex := &fakeExtractor{items: []models.Series{{Title: "a"}}}

	if _, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.gotOpts.Stealth {
		t.Error("configured stealth default did not reach the session")
	}

	// Request-level stealth survives a config that disables the default.
	s.cfg.Stealth = false
	req := &models.ScrapeRequest{URL: "https://x.test"}
	req.Options.Stealth = true
	if _, err := s.ScrapeList(context.Background(), req, ex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.gotOpts.Stealth {
		t.Error("request-level stealth was dropped")
	}
}

// A configured default delay range must pace scrapes whose request carries
// no delay of its own.
func TestScrapeList_ConfiguredDelayPaces(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	s := New(nil, config.ScraperConfig{NavigationTimeout: time.Second, DelayMinMs: 40})
	s.pool = pool
	s.newSession = func(*browser.Handle) (pageSession, error) { return sess, nil }
	ex := &fakeExtractor{items: []models.Series{{Title: "a"}}}

	start := time.Now()
	if _, err := s.ScrapeList(context.Background(), &models.ScrapeRequest{URL: "https://x.test"}, ex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("scrape finished in %v, want >= 40ms of configured pacing", elapsed)
	}
}

// A request-level delay takes precedence over the configured range.
func TestScrapeList_RequestDelayOverridesConfigured(t *testing.T) {
	pool := &fakePool{}
	sess := &fakeSession{}
	s := New(nil, config.ScraperConfig{NavigationTimeout: time.Second, DelayMinMs: 300})
	s.pool = pool
	s.newSession = func(*browser.Handle) (pageSession, error) { return sess, nil }
	ex := &fakeExtractor{items: []models.Series{{Title: "a"}}}

	req := &models.ScrapeRequest{URL: "https://x.test"}
	req.Options.Delay = &models.Delay{MinMs: 1}

	start := time.Now()
	if _, err := s.ScrapeList(context.Background(), req, ex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 200*time.Millisecond {
		t.Errorf("scrape took %v, request delay should override the 300ms config range", elapsed)
	}
}
