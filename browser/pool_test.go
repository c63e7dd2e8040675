package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kagemura/scanlate/config"
	"github.com/kagemura/scanlate/models"
)

func testPoolConfig(cap int) config.PoolConfig {
	return config.PoolConfig{
		MaxBrowsers:      cap,
		AcquireTimeout:   2 * time.Second,
		PollInterval:     5 * time.Millisecond,
		BreakerThreshold: 3,
		BreakerCooldown:  50 * time.Millisecond,
	}
}

// newFakePool returns a pool whose launches create in-memory handles and
// whose health probes always pass. launches counts launch attempts.
func newFakePool(cfg config.PoolConfig, launches *atomic.Int32) *Pool {
	p := NewPool(cfg, config.BrowserConfig{})
	p.launch = func(LaunchOptions) (*Handle, error) {
		launches.Add(1)
		return &Handle{state: StateCreated, created: time.Now()}, nil
	}
	p.probe = func(*Handle) bool { return true }
	return p
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var se *models.ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected *models.ScrapeError, got %T: %v", err, err)
	}
	return se.Code
}

func TestPool_CapNeverExceeded(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(2), &launches)
	defer p.Shutdown()

	var inUse, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Acquire(context.Background(), LaunchOptions{})
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			cur := inUse.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inUse.Add(-1)
			p.Release(h)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("in-use handles peaked at %d, cap is 2", got)
	}
	if got := launches.Load(); got > 2 {
		t.Errorf("launched %d browsers, cap is 2", got)
	}
}

func TestPool_ReleasedHandleIsReused(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(3), &launches)
	defer p.Shutdown()

	h1, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	p.Release(h1)

	h2, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if h2.ID != h1.ID {
		t.Errorf("expected handle %d to be reused, got %d", h1.ID, h2.ID)
	}
	if got := launches.Load(); got != 1 {
		t.Errorf("expected exactly 1 launch, got %d", got)
	}
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(1), &launches)
	defer p.Shutdown()

	h, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	p.Release(h)
	p.Release(h) // double release must be a no-op

	stats := p.Stats()
	if stats.InUse != 0 {
		t.Errorf("expected 0 in-use after release, got %d", stats.InUse)
	}
	if stats.Size != 1 {
		t.Errorf("expected pool size 1, got %d", stats.Size)
	}
}

func TestPool_BreakerTripsAndCoolsDown(t *testing.T) {
	var launches atomic.Int32
	p := NewPool(testPoolConfig(2), config.BrowserConfig{})
	p.launch = func(LaunchOptions) (*Handle, error) {
		launches.Add(1)
		return nil, errors.New("spawn: resource exhausted")
	}
	p.probe = func(*Handle) bool { return true }
	defer p.Shutdown()

	// Threshold is 3: each of the first three acquires attempts a launch.
	for i := 0; i < 3; i++ {
		_, err := p.Acquire(context.Background(), LaunchOptions{})
		if code := errCode(t, err); code != models.ErrCodeLaunchFailure {
			t.Fatalf("acquire %d: expected LAUNCH_FAILURE, got %s", i, code)
		}
	}
	if got := launches.Load(); got != 3 {
		t.Fatalf("expected 3 launch attempts, got %d", got)
	}

	// Breaker open: fails fast without touching the launch primitive.
	_, err := p.Acquire(context.Background(), LaunchOptions{})
	if code := errCode(t, err); code != models.ErrCodeLaunchFailure {
		t.Fatalf("expected LAUNCH_FAILURE while open, got %s", code)
	}
	if got := launches.Load(); got != 3 {
		t.Errorf("breaker open but launch primitive was called (%d attempts)", got)
	}

	// After the cooldown, a real attempt happens again.
	time.Sleep(60 * time.Millisecond)
	_, err = p.Acquire(context.Background(), LaunchOptions{})
	if err == nil {
		t.Fatal("expected acquire to fail, launches still broken")
	}
	if got := launches.Load(); got != 4 {
		t.Errorf("expected a fresh launch attempt after cooldown, got %d total", got)
	}
}

func TestPool_ExhaustedTimesOut(t *testing.T) {
	var launches atomic.Int32
	cfg := testPoolConfig(1)
	cfg.AcquireTimeout = 50 * time.Millisecond
	p := newFakePool(cfg, &launches)
	defer p.Shutdown()

	h, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer p.Release(h)

	start := time.Now()
	_, err = p.Acquire(context.Background(), LaunchOptions{})
	if code := errCode(t, err); code != models.ErrCodePoolExhausted {
		t.Fatalf("expected POOL_EXHAUSTED, got %s", code)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("acquire returned after %v, before the wait timeout", elapsed)
	}
}

func TestPool_AcquireWaitsForRelease(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(1), &launches)
	defer p.Shutdown()

	h, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		p.Release(h)
	}()

	h2, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("waiting acquire failed: %v", err)
	}
	if h2.ID != h.ID {
		t.Errorf("expected the released handle to be handed over, got %d", h2.ID)
	}
	if got := launches.Load(); got != 1 {
		t.Errorf("expected no second launch at cap 1, got %d", got)
	}
}

func TestPool_DeadHandlesAreReaped(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(2), &launches)
	defer p.Shutdown()

	h, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	p.Release(h)

	// The handle dies while idle; the next acquire must detect it and
	// launch a replacement rather than handing out a corpse.
	p.probe = func(*Handle) bool { return false }
	h2, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire after death failed: %v", err)
	}
	if h2.ID == h.ID {
		t.Error("dead handle was handed out again")
	}
	if got := launches.Load(); got != 2 {
		t.Errorf("expected a replacement launch, got %d total", got)
	}
}

// Pooled handles hold exactly two states: InUse while checked out,
// Available after release. A fresh launch enters the pool InUse.
func TestPool_PooledHandleStates(t *testing.T) {
	var launches atomic.Int32
	p := newFakePool(testPoolConfig(1), &launches)
	defer p.Shutdown()

	h, err := p.Acquire(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if h.State() != StateInUse {
		t.Errorf("freshly launched handle state = %v, want %v", h.State(), StateInUse)
	}

	p.Release(h)
	if h.State() != StateAvailable {
		t.Errorf("released handle state = %v, want %v", h.State(), StateAvailable)
	}
}
