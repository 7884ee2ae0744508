package node

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// TestSaturatingAdd asserts that msat sums clamp instead of overflowing.
func TestSaturatingAdd(t *testing.T) {
	max := lnwire.MilliSatoshi(math.MaxUint64)

	require.Equal(t, lnwire.MilliSatoshi(3), SaturatingAdd(1, 2))
	require.Equal(t, max, SaturatingAdd(max, 1))
	require.Equal(t, max, SaturatingAdd(max-1, 1))
	require.Equal(t, max, SaturatingAdd(max/2+1, max/2+1))
}

// TestChainParams tests network name parsing in both directions.
func TestChainParams(t *testing.T) {
	tests := []struct {
		name     string
		expected *chaincfg.Params
		lndName  string
	}{
		{"bitcoin", &chaincfg.MainNetParams, "mainnet"},
		{"mainnet", &chaincfg.MainNetParams, "mainnet"},
		{"Testnet", &chaincfg.TestNet3Params, "testnet"},
		{"regtest", &chaincfg.RegressionNetParams, "regtest"},
		{" signet ", &chaincfg.SigNetParams, "signet"},
		{"simnet", &chaincfg.SimNetParams, "simnet"},
	}

	for _, test := range tests {
		params, err := ChainParams(test.name)
		require.NoError(t, err)
		require.Equal(t, test.expected.Name, params.Name)
		require.Equal(t, test.lndName, NetworkName(params))
	}

	_, err := ChainParams("litecoin")
	require.Error(t, err)
}

// TestChannelSnapshotString checks the short id placeholder for channels
// that don't have a short channel id yet.
func TestChannelSnapshotString(t *testing.T) {
	pending := ChannelSnapshot{Outbound: 1000}
	require.Equal(t, "-", pending.ShortID())
	require.Contains(t, pending.String(), "scid=- ")

	scid := lnwire.NewShortChanIDFromInt(123 << 40)
	open := ChannelSnapshot{ShortChanID: &scid, Ready: true}
	require.Equal(t, scid.String(), open.ShortID())
}

// TestChainParamsOrDefault asserts the mainnet fallback for unknown networks.
func TestChainParamsOrDefault(t *testing.T) {
	require.Equal(
		t, chaincfg.MainNetParams.Name,
		ChainParamsOrDefault("dogecoin").Name,
	)
	require.Equal(
		t, chaincfg.RegressionNetParams.Name,
		ChainParamsOrDefault("regtest").Name,
	)
}
