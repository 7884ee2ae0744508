// Package liquidity holds the liquidity gate, which blocks a payment until
// the node has enough usable outbound capacity to carry it.
//
// The gate never gives up on its own: it polls the channel list until the
// requirement is met or the context is canceled. Errors while listing
// channels are logged and retried on the next poll.
package liquidity

import (
	"context"
	"time"

	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/utils"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwire"
)

const (
	// DefaultPollInterval is the time between two channel list polls.
	DefaultPollInterval = 2 * time.Second
)

// Config contains the dependencies of the gate.
type Config struct {
	// Node is the node whose channels are polled.
	Node node.Node

	// Clock is used for the sleeps between polls.
	Clock clock.Clock

	// PollInterval is the time between two polls.
	PollInterval time.Duration
}

// Gate waits for usable outbound liquidity.
type Gate struct {
	cfg *Config
}

// NewGate creates a new liquidity gate, filling in defaults for unset
// config values.
func NewGate(cfg *Config) *Gate {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Gate{
		cfg: cfg,
	}
}

// AwaitLiquidity blocks until a poll observes at least one usable channel and
// an aggregate outbound capacity of at least the requirement. It returns the
// summary of the poll that satisfied the requirement. The only way for it to
// fail is a canceled context.
func (g *Gate) AwaitLiquidity(ctx context.Context,
	requirement lnwire.MilliSatoshi) (*Summary, error) {

	log.Infof("Waiting for usable outbound liquidity of %v", requirement)

	for poll := 1; ; poll++ {
		summary, err := g.poll(ctx, poll)
		switch {
		case err != nil:
			log.Warnf("Poll %d: unable to list channels: %v", poll,
				err)

		case summary.Satisfies(requirement):
			log.Infof("Liquidity ready after %d poll(s): %v, "+
				"required_msat=%d", poll, summary,
				uint64(requirement))

			return summary, nil

		default:
			log.Infof("Poll %d: waiting for liquidity: %v, "+
				"required_msat=%d", poll, summary,
				uint64(requirement))
		}

		err = utils.Sleep(ctx, g.cfg.Clock, g.cfg.PollInterval)
		if err != nil {
			return nil, err
		}
	}
}

// poll fetches a fresh channel snapshot, logs every channel and aggregates
// the result.
func (g *Gate) poll(ctx context.Context, poll int) (*Summary, error) {
	channels, err := g.cfg.Node.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	if len(channels) == 0 {
		log.Infof("Poll %d: no channels", poll)
	}
	for _, channel := range channels {
		log.Infof("Poll %d: %v", poll, channel)
	}

	summary := Summarize(channels)

	return &summary, nil
}
