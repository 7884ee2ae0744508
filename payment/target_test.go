package payment

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightninglabs/lspctl/test"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// TestParseTarget tests payment request validation.
func TestParseTarget(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	payReq, hash := test.NewPayReq(t, params, 10_000_000, "coffee")
	target, err := ParseTarget(payReq, params)
	require.NoError(t, err)
	require.Equal(t, lnwire.MilliSatoshi(10_000_000), target.Amount)
	require.Equal(t, "coffee", target.Description)
	require.Equal(t, hash, target.Hash)
	require.Equal(t, payReq, target.PayReq)
	require.False(t, target.Expiry.IsZero())

	// URI prefix and surrounding whitespace are accepted.
	target, err = ParseTarget(
		"  lightning:"+strings.ToUpper(payReq)+"\n", params,
	)
	require.NoError(t, err)
	require.Equal(t, hash, target.Hash)

	// Amount-less invoices are rejected.
	noAmt, _ := test.NewPayReq(t, params, 0, "donation")
	_, err = ParseTarget(noAmt, params)
	require.ErrorIs(t, err, ErrNoAmount)

	// Invoices for another network are rejected.
	mainnet, _ := test.NewPayReq(
		t, &chaincfg.MainNetParams, 1000, "mainnet",
	)
	_, err = ParseTarget(mainnet, params)
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ParseTarget("lnbcrt1garbage", params)
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = ParseTarget("", params)
	require.ErrorIs(t, err, ErrInvalidTarget)
}
