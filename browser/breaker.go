package browser

import "time"

// Breaker is the launch circuit breaker. After threshold consecutive
// launch failures it refuses further launch attempts until cooldown has
// elapsed since the last failure. A successful launch, or cooldown
// expiry, resets the counter.
//
// Breaker is not safe for concurrent use on its own; the pool mutates it
// only while holding its own mutex.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	failures    int
	lastFailure time.Time

	now func() time.Time // overridable in tests
}

// NewBreaker creates a Breaker with the given failure threshold and cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a launch attempt may proceed. When the cooldown
// has elapsed since the last failure the breaker closes again and the
// attempt is allowed.
func (b *Breaker) Allow() bool {
	if b.failures < b.threshold {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		b.failures = 0
		return true
	}
	return false
}

// Open reports whether the breaker is currently tripped.
func (b *Breaker) Open() bool {
	return b.failures >= b.threshold && b.now().Sub(b.lastFailure) < b.cooldown
}

// RecordFailure counts one launch failure.
func (b *Breaker) RecordFailure() {
	b.failures++
	b.lastFailure = b.now()
}

// RecordSuccess resets the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.failures = 0
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	return b.failures
}
