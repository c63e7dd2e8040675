package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/kagemura/scanlate/browser"
	"github.com/kagemura/scanlate/models"
	"github.com/ysmood/gson"
)

// pageSession is the scoped, single-use tab the orchestrator drives for
// one scrape. *Session is the real implementation; tests substitute fakes.
type pageSession interface {
	Configure(opts models.ScrapeOptions) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	Page() *rod.Page
	Close()
}

// Session wraps one browser tab for the duration of one scrape.
// It is always closed via defer on every exit path of the orchestrator.
type Session struct {
	page   *rod.Page
	router *rod.HijackRouter

	blockedTypes []string
}

// NewSession opens a fresh tab on the given pool handle.
func NewSession(h *browser.Handle, blockedTypes []string) (*Session, error) {
	page, err := h.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &Session{page: page, blockedTypes: blockedTypes}, nil
}

// Configure applies viewport, user-agent, optional stealth, and resource
// blocking. Must run before Navigate: stealth JS and request hijacking
// only take effect for navigations that happen after they are installed.
func (s *Session) Configure(opts models.ScrapeOptions) error {
	if opts.Stealth {
		if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Viewport.Width,
			Height:            opts.Viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return err
		}
	}

	if opts.UserAgent != "" {
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: opts.UserAgent,
		}); err != nil {
			return err
		}
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(s.page)

	s.router = setupHijack(s.page, s.blockedTypes)
	return nil
}

// Navigate loads the target URL under the given timeout, then waits for
// the DOM to settle so list markup rendered by JS is present.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", url, "error", err)
	}
	return nil
}

// WaitSelector blocks until an element matching the selector appears,
// bounded by the (shorter) selector timeout.
func (s *Session) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.page.Context(waitCtx).Element(selector)
	return err
}

// Page exposes the live page for the extraction strategy.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close stops the hijack router and closes the tab. The tab is single-use;
// the pool handle underneath it is released separately by the orchestrator.
func (s *Session) Close() {
	if s.router != nil {
		_ = s.router.Stop()
	}
	if err := s.page.Close(); err != nil {
		slog.Warn("failed to close page", "error", err)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
