// Package lspctl composes the control loops into the operations offered by
// the command line tool.
package lspctl

import (
	"context"
	"errors"
	"time"

	"github.com/lightninglabs/lspctl/liquidity"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightninglabs/lspctl/payment"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultInvoiceExpiry is the expiry of invoices created without an
	// explicit one.
	DefaultInvoiceExpiry = time.Hour

	// DefaultInvoicePollInterval is the time between two lookups of an
	// invoice that is waited on.
	DefaultInvoicePollInterval = 2 * time.Second
)

var (
	// ErrNoJournal is returned by History if the client has no journal.
	ErrNoJournal = errors.New("no journal configured")
)

// ClientConfig contains the dependencies and tunables of the client. Zero
// tunables select the defaults of the individual loops.
type ClientConfig struct {
	// Node is the node every loop operates on.
	Node node.Node

	// Store is an optional journal of payments and sweeps.
	Store paydb.Store

	// Clock is the clock all loops sleep on.
	Clock clock.Clock

	// NewTicker creates the ticker that drives invoice lookups.
	NewTicker func(time.Duration) ticker.Ticker

	// PollInterval is the interval of the liquidity gate and of the
	// payment list polls.
	PollInterval time.Duration

	// BackoffFloor is the payment retry delay after the first failure.
	BackoffFloor time.Duration

	// BackoffCeiling is the maximum payment retry delay.
	BackoffCeiling time.Duration

	// Headroom is the absolute buffer on top of the payment amount and
	// its fee margin the gate waits for.
	Headroom lnwire.MilliSatoshi

	// MaxAttempts bounds the send calls per payment. Zero means
	// unbounded.
	MaxAttempts uint32

	// SyncAttempts is the number of wallet sync retries before a sweep
	// gives up.
	SyncAttempts int

	// SyncInterval is the time between two wallet sync attempts.
	SyncInterval time.Duration

	// SweepLabel is an optional label for sweep transactions.
	SweepLabel string

	// InvoiceExpiry is the expiry of invoices created without an explicit
	// one.
	InvoiceExpiry time.Duration

	// InvoicePollInterval is the time between two invoice lookups.
	InvoicePollInterval time.Duration
}

// Client runs payments, sweeps and invoice operations against a node.
type Client struct {
	cfg *ClientConfig
}

// NewClient returns a new client, filling in defaults for unset config
// values.
func NewClient(cfg *ClientConfig) *Client {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = func(d time.Duration) ticker.Ticker {
			return ticker.New(d)
		}
	}
	if cfg.Headroom == 0 {
		cfg.Headroom = liquidity.FixedHeadroom
	}
	if cfg.InvoiceExpiry == 0 {
		cfg.InvoiceExpiry = DefaultInvoiceExpiry
	}
	if cfg.InvoicePollInterval == 0 {
		cfg.InvoicePollInterval = DefaultInvoicePollInterval
	}

	return &Client{
		cfg: cfg,
	}
}

// PayResult describes a settled payment.
type PayResult struct {
	*payment.Result

	// Target is the decoded payment request.
	Target *payment.Target

	// Liquidity is the channel summary that released the payment.
	Liquidity *liquidity.Summary
}

// Pay decodes the payment request, waits until the channels can carry it
// and then drives it to settlement. It only returns early on invalid input,
// cancellation or an exhausted attempt ceiling.
func (c *Client) Pay(ctx context.Context, payReq string) (*PayResult,
	error) {

	target, err := payment.ParseTarget(payReq, c.cfg.Node.Network())
	if err != nil {
		return nil, err
	}

	log.Infof("Paying %v", target)

	gate := liquidity.NewGate(&liquidity.Config{
		Node:         c.cfg.Node,
		Clock:        c.cfg.Clock,
		PollInterval: c.cfg.PollInterval,
	})

	requirement := liquidity.Requirement(target.Amount, c.cfg.Headroom)
	summary, err := gate.AwaitLiquidity(ctx, requirement)
	if err != nil {
		return nil, err
	}

	engine := payment.NewEngine(&payment.Config{
		Node:           c.cfg.Node,
		Clock:          c.cfg.Clock,
		Store:          c.cfg.Store,
		PollInterval:   c.cfg.PollInterval,
		BackoffFloor:   c.cfg.BackoffFloor,
		BackoffCeiling: c.cfg.BackoffCeiling,
		MaxAttempts:    c.cfg.MaxAttempts,
	}, target)

	result, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	return &PayResult{
		Result:    result,
		Target:    target,
		Liquidity: summary,
	}, nil
}

// Sweep sends the node's on-chain funds to the address once its wallets are
// synced.
func (c *Client) Sweep(ctx context.Context, address string,
	policy sweep.Policy) (*sweep.Result, error) {

	sweeper := sweep.NewSweeper(&sweep.Config{
		Node:         c.cfg.Node,
		Clock:        c.cfg.Clock,
		Store:        c.cfg.Store,
		SyncAttempts: c.cfg.SyncAttempts,
		SyncInterval: c.cfg.SyncInterval,
		Label:        c.cfg.SweepLabel,
	})

	return sweeper.Sweep(ctx, address, policy)
}

// CreateInvoice creates an invoice on the node. A zero expiry selects the
// configured default.
func (c *Client) CreateInvoice(ctx context.Context, amt lnwire.MilliSatoshi,
	memo string, expiry time.Duration) (*node.Invoice, error) {

	if expiry == 0 {
		expiry = c.cfg.InvoiceExpiry
	}

	invoice, err := c.cfg.Node.CreateInvoice(ctx, amt, memo, expiry)
	if err != nil {
		return nil, err
	}

	log.Infof("Created invoice %v for %v, expiry %v", invoice.Hash, amt,
		expiry)

	return invoice, nil
}

// WaitForInvoice blocks until the invoice with the given hash is settled.
// Lookup errors are logged and retried on the next tick.
func (c *Client) WaitForInvoice(ctx context.Context,
	hash lntypes.Hash) error {

	t := c.cfg.NewTicker(c.cfg.InvoicePollInterval)
	t.Resume()
	defer t.Stop()

	for {
		settled, err := c.cfg.Node.InvoiceSettled(ctx, hash)
		switch {
		case err != nil:
			log.Warnf("Unable to look up invoice %v: %v", hash, err)

		case settled:
			log.Infof("Invoice %v settled", hash)
			return nil
		}

		select {
		case <-t.Ticks():

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Channels returns the node's channels together with their summary.
func (c *Client) Channels(ctx context.Context) ([]node.ChannelSnapshot,
	*liquidity.Summary, error) {

	channels, err := c.cfg.Node.ListChannels(ctx)
	if err != nil {
		return nil, nil, err
	}

	summary := liquidity.Summarize(channels)

	return channels, &summary, nil
}

// Balances returns the node's balances.
func (c *Client) Balances(ctx context.Context) (*node.Balances, error) {
	return c.cfg.Node.ListBalances(ctx)
}

// History returns the journaled payments and sweeps.
func (c *Client) History(ctx context.Context) ([]*paydb.Payment,
	[]*paydb.Sweep, error) {

	if c.cfg.Store == nil {
		return nil, nil, ErrNoJournal
	}

	payments, err := c.cfg.Store.FetchPayments(ctx)
	if err != nil {
		return nil, nil, err
	}

	sweeps, err := c.cfg.Store.FetchSweeps(ctx)
	if err != nil {
		return nil, nil, err
	}

	return payments, sweeps, nil
}
