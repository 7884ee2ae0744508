package test

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// RecordingClock is a clock.Clock whose timers fire immediately. Every
// requested delay is recorded and advances the clock's notion of now, which
// lets tests assert on sleep schedules without actually sleeping.
type RecordingClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration

	// OnTick is called with the number of recorded delays after every
	// TickAfter call. Tests use it to cancel a loop after some iterations.
	OnTick func(n int, d time.Duration)
}

// A compile time check to ensure RecordingClock implements clock.Clock.
var _ clock.Clock = (*RecordingClock)(nil)

// NewRecordingClock returns a recording clock starting at the given time.
func NewRecordingClock(start time.Time) *RecordingClock {
	return &RecordingClock{
		now: start,
	}
}

// Now returns the current time of the clock.
func (c *RecordingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// TickAfter records the delay and returns a channel that already holds the
// advanced time.
func (c *RecordingClock) TickAfter(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.delays = append(c.delays, d)
	n := len(c.delays)
	now := c.now
	onTick := c.OnTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(n, d)
	}

	ch := make(chan time.Time, 1)
	ch <- now

	return ch
}

// Delays returns a copy of all recorded delays.
func (c *RecordingClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	delays := make([]time.Duration, len(c.delays))
	copy(delays, c.delays)

	return delays
}

// DelaysExcept returns the recorded delays without the given one. It is
// used to filter out the fixed poll interval from a backoff schedule.
func (c *RecordingClock) DelaysExcept(skip time.Duration) []time.Duration {
	var delays []time.Duration
	for _, d := range c.Delays() {
		if d != skip {
			delays = append(delays, d)
		}
	}

	return delays
}
