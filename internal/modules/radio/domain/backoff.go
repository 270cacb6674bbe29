package domain

import (
	"math/rand/v2"
	"time"
)

// Backoff yields reconnect delays that grow exponentially from Base up to Max,
// with up to 25% jitter. Successive delays never decrease until Reset.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
	last    time.Duration
	jitter  func(n int64) int64
}

// NewBackoff creates a Backoff.
func NewBackoff(base, maxDelay time.Duration) *Backoff {
	if maxDelay < base {
		maxDelay = base
	}
	return &Backoff{
		Base:   base,
		Max:    maxDelay,
		jitter: rand.Int64N,
	}
}

// Next returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	delay := b.Max
	if b.attempt < 62 {
		if d := b.Base << b.attempt; d > 0 && d < b.Max {
			delay = d
		}
	}

	if spread := int64(delay / 4); spread > 0 && b.jitter != nil {
		delay += time.Duration(b.jitter(spread))
	}
	delay = min(delay, b.Max)
	delay = max(delay, b.last)

	b.last = delay
	b.attempt++
	return delay
}

// Reset restarts the sequence at Base.
func (b *Backoff) Reset() {
	b.attempt = 0
	b.last = 0
}
