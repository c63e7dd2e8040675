package scraper

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/kagemura/scanlate/models"
)

// pacingDelay resolves a configured delay into a concrete duration.
// With MaxMs set it picks a random value in [MinMs, MaxMs] so repeated
// scrapes against the same source don't fire on a fixed beat.
func pacingDelay(d *models.Delay) time.Duration {
	if d == nil || d.MinMs <= 0 && d.MaxMs <= 0 {
		return 0
	}
	if d.MaxMs <= d.MinMs {
		return time.Duration(d.MinMs) * time.Millisecond
	}
	ms := d.MinMs + rand.IntN(d.MaxMs-d.MinMs+1)
	return time.Duration(ms) * time.Millisecond
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
