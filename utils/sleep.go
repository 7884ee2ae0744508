package utils

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Sleep blocks for the given duration on the clock. The context is checked
// before and after the wait, so a canceled context always wins over an
// expired timer.
func Sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-clk.TickAfter(d):
	case <-ctx.Done():
	}

	return ctx.Err()
}
