// Package sweep sends the node's whole on-chain balance to an address once
// the wallets are known to be in sync with the chain.
//
// Unlike the payment loops, a sweep is a one-shot operation. Wallet sync is
// retried a bounded number of times and the sweep call itself is never
// retried.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/lspctl/labels"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightninglabs/lspctl/utils"
	"github.com/lightningnetwork/lnd/clock"
)

const (
	// DefaultSyncAttempts is the number of sync retries after the first
	// failed attempt.
	DefaultSyncAttempts = 10

	// DefaultSyncInterval is the time between two sync attempts.
	DefaultSyncInterval = 2 * time.Second
)

var (
	// ErrSyncExhausted is returned when the wallets didn't sync within
	// the configured number of attempts.
	ErrSyncExhausted = errors.New("wallet sync attempts exhausted")

	// ErrNoSpendableBalance is returned when there is nothing to sweep.
	ErrNoSpendableBalance = errors.New("no spendable on-chain balance")

	// ErrSweepFailed is returned when the node failed to sweep.
	ErrSweepFailed = errors.New("sweep failed")
)

// Policy determines what is swept.
type Policy struct {
	// DrainIncludingReserves also sweeps the reserve the node keeps to
	// bump anchor channel closes. Off by default.
	DrainIncludingReserves bool
}

// Config contains the dependencies and tunables of the sweeper.
type Config struct {
	// Node is the node whose on-chain funds are swept.
	Node node.Node

	// Clock is used for the sleeps between sync attempts.
	Clock clock.Clock

	// Store is an optional journal for sweeps.
	Store paydb.Store

	// SyncAttempts is the number of sync retries after the first failed
	// attempt.
	SyncAttempts int

	// SyncInterval is the time between two sync attempts.
	SyncInterval time.Duration

	// Label is an optional user label for the sweep transaction. A
	// generated label is used if empty.
	Label string
}

// Result describes a published sweep.
type Result struct {
	// Txid is the id of the sweep transaction.
	Txid chainhash.Hash

	// Address is the destination of the sweep.
	Address btcutil.Address

	// Spendable is the spendable balance at the time of the sweep.
	Spendable btcutil.Amount

	// Label is the label attached to the transaction.
	Label string
}

// Sweeper sweeps on-chain funds.
type Sweeper struct {
	cfg *Config
}

// NewSweeper creates a new sweeper, filling in defaults for unset config
// values.
func NewSweeper(cfg *Config) *Sweeper {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.SyncAttempts == 0 {
		cfg.SyncAttempts = DefaultSyncAttempts
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}

	return &Sweeper{
		cfg: cfg,
	}
}

// Sweep validates the address, waits for the wallets to sync and then sends
// all spendable funds to the address.
func (s *Sweeper) Sweep(ctx context.Context, address string,
	policy Policy) (*Result, error) {

	addr, err := ParseAddress(address, s.cfg.Node.Network())
	if err != nil {
		return nil, err
	}

	if err := labels.Validate(s.cfg.Label); err != nil {
		return nil, err
	}

	// Report what we know before syncing, the numbers may be stale.
	balances, err := s.cfg.Node.ListBalances(ctx)
	if err != nil {
		log.Warnf("Unable to fetch balances: %v", err)
	} else {
		log.Infof("Balances before sync (possibly outdated): %v",
			balances)
	}

	if err := s.syncWallets(ctx); err != nil {
		return nil, err
	}

	balances, err = s.cfg.Node.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch balances: %w", err)
	}
	log.Infof("Balances: %v", balances)

	if balances.SpendableOnChain == 0 {
		return nil, ErrNoSpendableBalance
	}

	label := labels.Sweep(
		s.cfg.Label, addr.String(), policy.DrainIncludingReserves,
	)
	retainReserves := !policy.DrainIncludingReserves

	log.Infof("Sweeping %v to %v (retain_reserves=%v)",
		balances.SpendableOnChain, addr, retainReserves)

	txid, err := s.cfg.Node.SweepToAddress(
		ctx, addr, retainReserves, label,
	)
	s.record(ctx, addr, policy, label, txid, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSweepFailed, err)
	}

	log.Infof("Sweep published: txid=%v", txid)

	return &Result{
		Txid:      txid,
		Address:   addr,
		Spendable: balances.SpendableOnChain,
		Label:     label,
	}, nil
}

// syncWallets calls SyncWallets until it succeeds, giving up after the
// initial attempt plus SyncAttempts retries failed.
func (s *Sweeper) syncWallets(ctx context.Context) error {
	for failures := 1; ; failures++ {
		err := s.cfg.Node.SyncWallets(ctx)
		if err == nil {
			log.Infof("Wallets synced")
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if failures > s.cfg.SyncAttempts {
			log.Errorf("Sync attempt %d failed, giving up: %v",
				failures, err)

			return fmt.Errorf("%w after %d attempts: %v",
				ErrSyncExhausted, failures, err)
		}

		log.Warnf("Sync attempt %d/%d failed, retrying in %v: %v",
			failures, s.cfg.SyncAttempts+1, s.cfg.SyncInterval, err)

		err = utils.Sleep(ctx, s.cfg.Clock, s.cfg.SyncInterval)
		if err != nil {
			return err
		}
	}
}

// record journals the sweep, logging journal errors.
func (s *Sweeper) record(ctx context.Context, addr btcutil.Address,
	policy Policy, label string, txid chainhash.Hash, sweepErr error) {

	if s.cfg.Store == nil {
		return
	}

	entry := &paydb.Sweep{
		Address:       addr.String(),
		DrainReserves: policy.DrainIncludingReserves,
		Label:         label,
		Time:          s.cfg.Clock.Now(),
	}
	if sweepErr != nil {
		entry.Error = sweepErr.Error()
	} else {
		entry.Txid = txid
	}

	err := s.cfg.Store.RecordSweep(context.WithoutCancel(ctx), entry)
	if err != nil {
		log.Errorf("Unable to journal sweep: %v", err)
	}
}
