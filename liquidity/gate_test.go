package liquidity

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/test"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

func usable(out lnwire.MilliSatoshi) node.ChannelSnapshot {
	return node.ChannelSnapshot{
		Ready:    true,
		Usable:   true,
		Outbound: out,
	}
}

func newTestGate(n *test.MockNode) (*Gate, *test.RecordingClock) {
	clk := test.NewRecordingClock(time.Unix(0, 0))

	return NewGate(&Config{
		Node:  n,
		Clock: clk,
	}), clk
}

// TestRequirement tests the computation of the liquidity requirement.
func TestRequirement(t *testing.T) {
	tests := []struct {
		name     string
		amount   lnwire.MilliSatoshi
		expected lnwire.MilliSatoshi
	}{
		{
			name:     "zero",
			amount:   0,
			expected: 10_000,
		},
		{
			name:     "ten million",
			amount:   10_000_000,
			expected: 10_210_000,
		},
		{
			name:     "rounds down margin",
			amount:   99,
			expected: 99 + 1 + 10_000,
		},
		{
			name:     "saturates",
			amount:   math.MaxUint64 - 5,
			expected: math.MaxUint64,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := Requirement(testCase.amount, FixedHeadroom)
			require.Equal(t, testCase.expected, got)
			require.GreaterOrEqual(t, got, testCase.amount)
		})
	}
}

// TestAwaitLiquidityThreshold tests that 10.5M msat of usable outbound
// capacity satisfies a 10M msat payment and 10M msat does not.
func TestAwaitLiquidityThreshold(t *testing.T) {
	defer test.Guard(t)()

	requirement := Requirement(10_000_000, FixedHeadroom)
	require.Equal(t, lnwire.MilliSatoshi(10_210_000), requirement)

	require.True(t, Summarize([]node.ChannelSnapshot{
		usable(10_500_000),
	}).Satisfies(requirement))
	require.False(t, Summarize([]node.ChannelSnapshot{
		usable(10_000_000),
	}).Satisfies(requirement))

	n := test.NewMockNode()
	n.ListChannelsHook = func(call int) ([]node.ChannelSnapshot, error) {
		if call < 3 {
			return []node.ChannelSnapshot{
				usable(10_000_000),
			}, nil
		}

		return []node.ChannelSnapshot{usable(10_500_000)}, nil
	}

	gate, clk := newTestGate(n)
	summary, err := gate.AwaitLiquidity(context.Background(), requirement)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Usable)
	require.Equal(t, lnwire.MilliSatoshi(10_500_000), summary.Outbound)

	require.Equal(t, 3, n.ListChannelsCalls())
	require.Equal(
		t, []time.Duration{DefaultPollInterval, DefaultPollInterval},
		clk.Delays(),
	)
}

// TestAwaitLiquidityNoUsable tests that the gate never returns while no
// channel is usable, no matter how much capacity ready channels have.
func TestAwaitLiquidityNoUsable(t *testing.T) {
	defer test.Guard(t)()

	n := test.NewMockNode()
	n.Channels = []node.ChannelSnapshot{
		{
			Ready:    true,
			Outbound: math.MaxUint64,
		},
		{
			Ready:    false,
			Outbound: 5_000_000_000,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate, clk := newTestGate(n)
	clk.OnTick = func(ticks int, _ time.Duration) {
		if ticks == 50 {
			cancel()
		}
	}

	summary, err := gate.AwaitLiquidity(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, summary)
	require.Equal(t, 50, n.ListChannelsCalls())
}

// TestAwaitLiquidityAggregates tests that capacity is summed over all
// channels while a single usable channel is enough to open the gate.
func TestAwaitLiquidityAggregates(t *testing.T) {
	defer test.Guard(t)()

	n := test.NewMockNode()
	n.Channels = []node.ChannelSnapshot{
		usable(1_000),
		{Ready: true, Outbound: 9_000},
		{Outbound: 10_000},
	}

	gate, clk := newTestGate(n)
	summary, err := gate.AwaitLiquidity(context.Background(), 20_000)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Channels)
	require.Equal(t, 2, summary.Ready)
	require.Equal(t, 1, summary.Usable)
	require.Empty(t, clk.Delays())
}

// TestAwaitLiquidityErrors tests that list errors and empty channel lists
// are retried.
func TestAwaitLiquidityErrors(t *testing.T) {
	defer test.Guard(t)()

	n := test.NewMockNode()
	n.ListChannelsHook = func(call int) ([]node.ChannelSnapshot, error) {
		switch call {
		case 1:
			return nil, errors.New("connection reset")

		case 2:
			return nil, nil

		default:
			return []node.ChannelSnapshot{usable(50_000)}, nil
		}
	}

	gate, clk := newTestGate(n)
	_, err := gate.AwaitLiquidity(context.Background(), 50_000)
	require.NoError(t, err)
	require.Len(t, clk.Delays(), 2)
}

// TestSummarySaturates tests that the aggregate never overflows.
func TestSummarySaturates(t *testing.T) {
	summary := Summarize([]node.ChannelSnapshot{
		usable(math.MaxUint64),
		usable(math.MaxUint64),
	})
	require.Equal(t, lnwire.MilliSatoshi(math.MaxUint64), summary.Outbound)
	require.True(t, summary.Satisfies(math.MaxUint64))
}
