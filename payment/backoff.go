package payment

import (
	"time"
)

const (
	// DefaultBackoffFloor is the delay after the first failure.
	DefaultBackoffFloor = 2 * time.Second

	// DefaultBackoffCeiling is the maximum delay between two sends.
	DefaultBackoffCeiling = 30 * time.Second
)

// Backoff is an exponential backoff that starts at a floor, doubles on every
// failure and saturates at a ceiling. It is owned by a single payment intent
// and never reset while the intent is alive.
type Backoff struct {
	floor    time.Duration
	ceiling  time.Duration
	next     time.Duration
	failures int
}

// NewBackoff creates a new backoff with the given floor and ceiling. A floor
// above the ceiling is clamped to the ceiling.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor > ceiling {
		floor = ceiling
	}

	return &Backoff{
		floor:   floor,
		ceiling: ceiling,
		next:    floor,
	}
}

// Fail registers a failure and returns the delay to wait before the next
// attempt. After n failures it returns min(floor * 2^(n-1), ceiling).
func (b *Backoff) Fail() time.Duration {
	delay := b.next
	b.failures++

	if b.next > b.ceiling/2 {
		b.next = b.ceiling
	} else {
		b.next *= 2
	}

	return delay
}

// Failures returns the number of failures registered so far.
func (b *Backoff) Failures() int {
	return b.failures
}

// Next returns the delay the next failure will produce.
func (b *Backoff) Next() time.Duration {
	return b.next
}
