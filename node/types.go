package node

import (
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

var (
	// ErrNotSynced is returned by SyncWallets while the node's wallets
	// are still catching up with the chain backend.
	ErrNotSynced = errors.New("wallet not synced to chain")
)

// ChannelSnapshot is a point in time view of a single channel. Snapshots are
// never cached, a new one is fetched on every poll.
type ChannelSnapshot struct {
	// Ready is true once the funding transaction is confirmed.
	Ready bool

	// Usable is true if the channel can currently route payments, which
	// requires an active peer connection on top of readiness.
	Usable bool

	// Outbound is the amount we can currently send over the channel.
	Outbound lnwire.MilliSatoshi

	// Inbound is the amount we can currently receive over the channel.
	Inbound lnwire.MilliSatoshi

	// Capacity is the total channel value.
	Capacity btcutil.Amount

	// ShortChanID is the short channel id, if the channel has one yet.
	ShortChanID *lnwire.ShortChannelID

	// ChannelPoint is the funding outpoint, if known.
	ChannelPoint string
}

// ShortID returns the short channel id as a string or "-" if the channel
// doesn't have one.
func (c ChannelSnapshot) ShortID() string {
	if c.ShortChanID == nil {
		return "-"
	}

	return c.ShortChanID.String()
}

// String returns a one-line summary of the channel.
func (c ChannelSnapshot) String() string {
	return fmt.Sprintf("scid=%v ready=%v usable=%v out_msat=%v "+
		"in_msat=%v capacity_sat=%v", c.ShortID(), c.Ready, c.Usable,
		uint64(c.Outbound), uint64(c.Inbound), int64(c.Capacity))
}

// PaymentHandle is an opaque identifier handed out when the node accepts a
// payment. It is only ever compared for equality.
type PaymentHandle string

// PaymentState is the state of a payment as reported by the node.
type PaymentState uint8

const (
	// PaymentUnknown means the payment hasn't been observed in the status
	// feed yet.
	PaymentUnknown PaymentState = iota

	// PaymentPending means the payment is in flight.
	PaymentPending

	// PaymentSucceeded means the payment settled.
	PaymentSucceeded

	// PaymentFailed means the payment terminally failed. A new send is
	// needed to try again.
	PaymentFailed
)

// String returns a human readable payment state.
func (s PaymentState) String() string {
	switch s {
	case PaymentUnknown:
		return "Unknown"

	case PaymentPending:
		return "Pending"

	case PaymentSucceeded:
		return "Succeeded"

	case PaymentFailed:
		return "Failed"

	default:
		return fmt.Sprintf("PaymentState(%d)", uint8(s))
	}
}

// Payment is a single entry of the node's payment list.
type Payment struct {
	// Handle identifies the send call that created the payment.
	Handle PaymentHandle

	// State is the current payment state.
	State PaymentState

	// Amount is the settled amount, only set for succeeded payments.
	Amount lnwire.MilliSatoshi

	// Fee is the routing fee paid, only set for succeeded payments.
	Fee lnwire.MilliSatoshi

	// FailureReason is a free form reason for failed payments.
	FailureReason string
}

// Balances is a snapshot of the node's balances.
type Balances struct {
	// TotalOnChain is the total on-chain balance, including unconfirmed
	// and reserved funds.
	TotalOnChain btcutil.Amount

	// SpendableOnChain is the on-chain balance a sweep can move.
	SpendableOnChain btcutil.Amount

	// TotalLightning is the sum of our local channel balances.
	TotalLightning btcutil.Amount
}

// String returns a one-line summary of the balances.
func (b Balances) String() string {
	return fmt.Sprintf("onchain_total=%v onchain_spendable=%v "+
		"lightning=%v", b.TotalOnChain, b.SpendableOnChain,
		b.TotalLightning)
}

// Invoice is an invoice created by the node.
type Invoice struct {
	// PaymentRequest is the encoded BOLT11 payment request.
	PaymentRequest string

	// Hash is the payment hash of the invoice.
	Hash lntypes.Hash
}

// SaturatingAdd adds two msat amounts, clamping at the maximum value instead
// of wrapping around.
func SaturatingAdd(a, b lnwire.MilliSatoshi) lnwire.MilliSatoshi {
	if a > lnwire.MilliSatoshi(math.MaxUint64)-b {
		return lnwire.MilliSatoshi(math.MaxUint64)
	}

	return a + b
}
