package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
)

// LaunchOptions carries the per-acquire launch configuration. It only
// matters when the acquire triggers a fresh browser launch; reused
// handles keep the configuration they were launched with.
type LaunchOptions struct {
	// Headless overrides the configured default when non-nil.
	Headless *bool
}

// launchFunc spawns a browser process and returns its handle.
// Replaced in tests with a fake.
type launchFunc func(opts LaunchOptions) (*Handle, error)

// probeFunc checks a pooled handle's health. Replaced in tests.
type probeFunc func(h *Handle) bool

// Pool owns a bounded set of browser-process handles shared across
// concurrent scrapes. All handle state transitions happen under mu;
// the launch circuit breaker is mutated under the same lock.
type Pool struct {
	cfg        config.PoolConfig
	browserCfg config.BrowserConfig

	launch launchFunc
	probe  probeFunc

	mu      sync.Mutex
	handles map[int64]*Handle
	pending int // launches in flight, counted against the cap
	nextID  int64
	breaker *Breaker
	closed  bool
}

// NewPool creates a Pool. No browsers are launched up front; handles are
// created lazily on first acquire so a broken environment surfaces as a
// LaunchFailure on use, not at startup.
func NewPool(cfg config.PoolConfig, browserCfg config.BrowserConfig) *Pool {
	p := &Pool{
		cfg:        cfg,
		browserCfg: browserCfg,
		handles:    make(map[int64]*Handle),
		breaker:    NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
	p.launch = p.launchBrowser
	p.probe = func(h *Handle) bool { return h.alive() }
	return p
}

// Acquire returns a healthy handle marked InUse, launching a new browser
// if the pool is below its cap. When the pool is saturated it polls until
// a handle frees up or the acquire timeout expires (POOL_EXHAUSTED).
// Launches are gated by the circuit breaker: while it is open, Acquire
// fails immediately with LAUNCH_FAILURE instead of spawning anything.
func (p *Pool) Acquire(ctx context.Context, opts LaunchOptions) (*Handle, error) {
	deadline := time.Now().Add(p.cfg.AcquireTimeout)

	for {
		h, err, retry := p.tryAcquire(opts)
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
		if !retry {
			// Unreachable with the current tryAcquire contract.
			return nil, models.NewScrapeError(models.ErrCodePoolExhausted, "no handle available", nil)
		}

		if time.Now().After(deadline) {
			return nil, models.NewScrapeError(
				models.ErrCodePoolExhausted,
				"timed out waiting for a free browser",
				nil,
			)
		}

		select {
		case <-ctx.Done():
			return nil, models.NewScrapeError(
				models.ErrCodePoolExhausted,
				"acquire canceled",
				ctx.Err(),
			)
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// tryAcquire runs one pass of the acquire algorithm: reap dead handles,
// reuse an available one, or launch below the cap. A (nil, nil, true)
// return means the pool is saturated and the caller should poll.
func (p *Pool) tryAcquire(opts LaunchOptions) (*Handle, error, bool) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, models.NewScrapeError(models.ErrCodePoolExhausted, "pool is shut down", nil), false
	}

	// 1. Reap disconnected handles. InUse handles are skipped; their
	// health shows up when they are released and probed on the next pass.
	for id, h := range p.handles {
		if h.state == StateInUse {
			continue
		}
		if !p.probe(h) {
			slog.Warn("reaping dead browser", "id", id, "state", h.state.String())
			h.state = StateDisconnected
			h.close()
			delete(p.handles, id)
		}
	}

	// 2. Reuse a healthy available handle. Pooled handles are only ever
	// InUse or Available: a fresh launch enters the map as InUse, so
	// Available is the one reusable state.
	for _, h := range p.handles {
		if h.state == StateAvailable {
			h.state = StateInUse
			p.mu.Unlock()
			return h, nil, false
		}
	}

	// 3. Launch a new browser if under the cap, gated by the breaker.
	if len(p.handles)+p.pending < p.cfg.MaxBrowsers {
		if !p.breaker.Allow() {
			p.mu.Unlock()
			return nil, models.NewScrapeError(
				models.ErrCodeLaunchFailure,
				"launch circuit breaker open, cooling down",
				nil,
			), false
		}

		// Count the in-flight launch against the cap, then launch
		// without holding the lock: spawning Chromium takes seconds
		// and Release must not block behind it.
		p.pending++
		p.mu.Unlock()

		h, err := p.launch(opts)

		p.mu.Lock()
		p.pending--
		if err != nil {
			p.breaker.RecordFailure()
			failures, open := p.breaker.Failures(), p.breaker.Open()
			p.mu.Unlock()
			slog.Error("browser launch failed",
				"error", err,
				"consecutiveFailures", failures,
				"breakerOpen", open,
			)
			return nil, models.NewScrapeError(
				models.ErrCodeLaunchFailure,
				"failed to launch browser",
				err,
			), false
		}
		p.breaker.RecordSuccess()

		p.nextID++
		h.ID = p.nextID
		h.state = StateInUse
		p.handles[h.ID] = h
		size := len(p.handles)
		p.mu.Unlock()

		slog.Info("browser launched", "id", h.ID, "poolSize", size)
		return h, nil, false
	}

	// 4. Saturated: poll for a release.
	p.mu.Unlock()
	return nil, nil, true
}

// Release returns a handle to the pool. It is synchronous, never fails,
// and is idempotent against double-release.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		h.close()
		delete(p.handles, h.ID)
		return
	}
	if h.state != StateInUse {
		return
	}
	h.state = StateAvailable
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool) Stats() models.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUse := 0
	for _, h := range p.handles {
		if h.state == StateInUse {
			inUse++
		}
	}
	return models.PoolStats{
		MaxBrowsers:    p.cfg.MaxBrowsers,
		Size:           len(p.handles),
		InUse:          inUse,
		BreakerOpen:    p.breaker.Open(),
		LaunchFailures: p.breaker.Failures(),
	}
}

// Shutdown closes every handle and marks the pool unusable. Call on
// graceful shutdown to prevent zombie Chromium processes.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for id, h := range p.handles {
		h.close()
		delete(p.handles, id)
	}
	slog.Info("browser pool shut down")
}

// launchBrowser spawns a real Chromium process and connects to it.
func (p *Pool) launchBrowser(opts LaunchOptions) (*Handle, error) {
	headless := p.browserCfg.Headless
	if opts.Headless != nil {
		headless = *opts.Headless
	}

	l := launcher.New().
		Headless(headless).
		NoSandbox(p.browserCfg.NoSandbox)

	if p.browserCfg.Bin != "" {
		l = l.Bin(p.browserCfg.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	return &Handle{
		browser:  b,
		launcher: l,
		state:    StateCreated,
		created:  time.Now(),
	}, nil
}
