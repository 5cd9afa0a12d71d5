// Package jitter implements the randomized delay inserted between failed
// feed fetches as a [backoff.BackOff].
package jitter

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultBase is the base backoff used when none is configured.
	DefaultBase = 2 * time.Second

	// MaxBase is the largest accepted base. Larger bases are clamped so the
	// doubled delay cannot overflow.
	MaxBase = 24 * time.Hour
)

// maxJitter bounds the random amount subtracted from the doubled base.
const maxJitter = 500 * time.Millisecond

var _ backoff.BackOff = (*Backoff)(nil)

// Backoff yields 2*base minus a uniform jitter on every call to
// NextBackOff. It never returns [backoff.Stop], so a retry driven by it runs
// until its context ends.
type Backoff struct {
	base   time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns the feed backoff policy:
//
//	delay = 2*base - uniform(0, min(500ms, base/2))
//
// For base >= 1s the jitter range is the full 500ms, so base=2s yields delays
// in [3.5s, 4s]. The jitter is capped at base/2 for small bases, which keeps
// every delay inside [1.5*base, 2*base].
//
// A non-positive base falls back to [DefaultBase] and a base above [MaxBase]
// saturates at MaxBase. If src is nil a time-seeded source is used.
func New(base time.Duration, src rand.Source) *Backoff {
	base = clamp(base)
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &Backoff{
		base:   base,
		jitter: min(maxJitter, base/2),
		rnd:    rand.New(src),
	}
}

// NextBackOff implements backoff.BackOff.
func (b *Backoff) NextBackOff() time.Duration {
	b.mu.Lock()
	f := b.rnd.Float64()
	b.mu.Unlock()

	return 2*b.base - time.Duration(f*float64(b.jitter))
}

// Reset implements backoff.BackOff. The delay does not grow with
// consecutive failures, so there is nothing to reset.
func (b *Backoff) Reset() {}

// Base returns the effective base after defaulting and clamping.
func (b *Backoff) Base() time.Duration {
	return b.base
}

// Bounds returns the inclusive range of delays a [Backoff] built with the
// given base produces.
func Bounds(base time.Duration) (lo, hi time.Duration) {
	base = clamp(base)
	return 2*base - min(maxJitter, base/2), 2 * base
}

func clamp(base time.Duration) time.Duration {
	switch {
	case base <= 0:
		return DefaultBase
	case base > MaxBase:
		return MaxBase
	}
	return base
}
