package liquidity

import (
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightningnetwork/lnd/lnwire"
)

const (
	// FixedHeadroom is the absolute buffer added on top of the payment
	// amount and the fee margin.
	FixedHeadroom lnwire.MilliSatoshi = 10_000

	// feeMarginDivisor sets the relative fee margin to 1/50th, or 2%, of
	// the payment amount.
	feeMarginDivisor = 50
)

// Requirement returns the outbound capacity needed before a payment of the
// given amount is dispatched: the amount plus a 2% fee margin plus the
// headroom. The result never overflows and is never below the amount.
func Requirement(amount, headroom lnwire.MilliSatoshi) lnwire.MilliSatoshi {
	margin := amount / feeMarginDivisor

	return node.SaturatingAdd(node.SaturatingAdd(amount, margin), headroom)
}
