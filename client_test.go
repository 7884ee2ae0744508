package lspctl

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightninglabs/lspctl/payment"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/lightninglabs/lspctl/test"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

type clientTestContext struct {
	node   *test.MockNode
	clock  *test.RecordingClock
	store  *paydb.StoreMock
	client *Client

	// tickers receives every ticker the client creates.
	tickers chan *ticker.Force
}

func newClientTestContext() *clientTestContext {
	n := test.NewMockNode()
	clk := test.NewRecordingClock(time.Unix(0, 0))
	store := paydb.NewStoreMock()
	tickers := make(chan *ticker.Force, 1)

	return &clientTestContext{
		node:    n,
		clock:   clk,
		store:   store,
		tickers: tickers,
		client: NewClient(&ClientConfig{
			Node:  n,
			Clock: clk,
			Store: store,
			NewTicker: func(d time.Duration) ticker.Ticker {
				force := ticker.NewForce(d)
				tickers <- force

				return force
			},
		}),
	}
}

func usableChannel(outbound lnwire.MilliSatoshi) node.ChannelSnapshot {
	return node.ChannelSnapshot{
		Ready:    true,
		Usable:   true,
		Outbound: outbound,
	}
}

// TestPayWaitsForLiquidity asserts that the payment is only dispatched once
// the channels can carry amount, fee margin and headroom.
func TestPayWaitsForLiquidity(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()
	payReq, hash := test.NewPayReq(t, c.node.Params, 10_000_000, "pay")

	// The requirement is 10_000_000 + 200_000 + 10_000 msat.
	c.node.ListChannelsHook = func(call int) ([]node.ChannelSnapshot,
		error) {

		if call < 3 {
			return []node.ChannelSnapshot{
				usableChannel(10_209_999),
			}, nil
		}

		return []node.ChannelSnapshot{usableChannel(10_210_000)}, nil
	}
	c.node.ListPaymentsHook = func(int) ([]node.Payment, error) {
		require.Equal(t, 1, c.node.SendCalls())

		return []node.Payment{{
			Handle: "handle-1",
			State:  node.PaymentSucceeded,
			Amount: 10_000_000,
			Fee:    5,
		}}, nil
	}

	result, err := c.client.Pay(context.Background(), payReq)
	require.NoError(t, err)

	require.Equal(t, hash, result.Hash)
	require.Equal(t, node.PaymentHandle("handle-1"), result.Handle)
	require.EqualValues(t, 10_000_000, result.Amount)
	require.EqualValues(t, 1, result.Attempts)
	require.Equal(t, 1, result.Liquidity.Usable)
	require.Equal(t, "pay", result.Target.Description)

	require.Equal(t, 3, c.node.ListChannelsCalls())
	require.Equal(t, []time.Duration{
		2 * time.Second, 2 * time.Second,
	}, c.clock.Delays())

	payments, sweeps, err := c.client.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, sweeps)
	require.Len(t, payments, 1)
	require.Equal(t, paydb.OutcomeSucceeded, payments[0].Last().Outcome)
}

// TestPayInvalidInput asserts that malformed and foreign network requests
// are rejected before the node is polled.
func TestPayInvalidInput(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()

	_, err := c.client.Pay(context.Background(), "lnbc1garbage")
	require.ErrorIs(t, err, payment.ErrInvalidTarget)

	mainnet, _ := test.NewPayReq(
		t, &chaincfg.MainNetParams, 1_000, "mainnet",
	)
	_, err = c.client.Pay(context.Background(), mainnet)
	require.ErrorIs(t, err, payment.ErrInvalidTarget)

	noAmount, _ := test.NewPayReq(t, c.node.Params, 0, "no amount")
	_, err = c.client.Pay(context.Background(), noAmount)
	require.ErrorIs(t, err, payment.ErrNoAmount)

	require.Zero(t, c.node.ListChannelsCalls())
}

// TestPayCanceledWhileGated asserts that a payment waiting for liquidity
// returns the context error and never sends.
func TestPayCanceledWhileGated(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()
	payReq, _ := test.NewPayReq(t, c.node.Params, 1_000, "gated")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.clock.OnTick = func(n int, _ time.Duration) {
		if n == 5 {
			cancel()
		}
	}

	_, err := c.client.Pay(ctx, payReq)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, c.node.SendCalls())
}

// TestClientSweep tests that the sweep tunables are handed to the sweeper.
func TestClientSweep(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()
	c.client.cfg.SweepLabel = "cold storage"
	c.node.Balances = node.Balances{
		TotalOnChain:     50_000,
		SpendableOnChain: 40_000,
	}
	c.node.SweepTxid = chainhash.Hash{3}

	addr := test.GetDestAddr(t, c.node.Params, 1)
	result, err := c.client.Sweep(
		context.Background(), addr.String(), sweep.Policy{},
	)
	require.NoError(t, err)
	require.Equal(t, chainhash.Hash{3}, result.Txid)
	require.Equal(t, "cold storage", result.Label)

	require.Len(t, c.node.Sweeps, 1)
	require.True(t, c.node.Sweeps[0].RetainReserves)

	_, sweeps, err := c.client.History(context.Background())
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	require.Equal(t, addr.String(), sweeps[0].Address)
}

// TestInvoiceSettlement tests invoice creation with the default expiry and
// waiting for the invoice to settle.
func TestInvoiceSettlement(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()
	c.node.SettleAfter = 3

	invoice, err := c.client.CreateInvoice(
		context.Background(), 21_000, "coffee", 0,
	)
	require.NoError(t, err)

	target, err := payment.ParseTarget(
		invoice.PaymentRequest, c.node.Params,
	)
	require.NoError(t, err)
	require.Equal(t, invoice.Hash, target.Hash)
	require.EqualValues(t, 21_000, target.Amount)

	errChan := make(chan error, 1)
	go func() {
		errChan <- c.client.WaitForInvoice(
			context.Background(), invoice.Hash,
		)
	}()

	var force *ticker.Force
	select {
	case force = <-c.tickers:
	case <-time.After(test.Timeout):
		t.Fatalf("ticker not created")
	}

	// The first lookup happens right away, the next two on ticks.
	for i := 0; i < 2; i++ {
		select {
		case force.Force <- time.Now():
		case <-time.After(test.Timeout):
			t.Fatalf("tick %d not consumed", i)
		}
	}

	require.NoError(t, <-errChan)
}

// TestWaitForInvoiceCanceled asserts that waiting ends with the context.
func TestWaitForInvoiceCanceled(t *testing.T) {
	defer test.Guard(t)()

	c := newClientTestContext()

	invoice, err := c.client.CreateInvoice(
		context.Background(), 1_000, "never paid", time.Minute,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.client.WaitForInvoice(ctx, invoice.Hash)
	require.ErrorIs(t, err, context.Canceled)
}

// TestChannelsAndBalances tests the inspection operations.
func TestChannelsAndBalances(t *testing.T) {
	c := newClientTestContext()
	c.node.Channels = []node.ChannelSnapshot{
		usableChannel(1_000),
		{Ready: true, Outbound: 2_000},
	}
	c.node.Balances = node.Balances{TotalLightning: 3}

	channels, summary, err := c.client.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, 2, summary.Ready)
	require.Equal(t, 1, summary.Usable)
	require.EqualValues(t, 3_000, summary.Outbound)

	balances, err := c.client.Balances(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, balances.TotalLightning)

	c.client.cfg.Store = nil
	_, _, err = c.client.History(context.Background())
	require.ErrorIs(t, err, ErrNoJournal)
}
