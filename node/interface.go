package node

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

// Node is the narrow set of capabilities the control loops need from the
// underlying lightning/on-chain node. Implementations must be safe for use by
// several loops at once.
type Node interface {
	// ListChannels returns a fresh snapshot of every channel the node
	// knows about, including channels that are not yet ready.
	ListChannels(ctx context.Context) ([]ChannelSnapshot, error)

	// SendPayment hands the payment request to the node's outbound
	// pipeline. A nil error only means the payment was accepted, not
	// that it settled.
	SendPayment(ctx context.Context, payReq string) (PaymentHandle, error)

	// ListPayments returns the node's full outgoing payment list.
	ListPayments(ctx context.Context) ([]Payment, error)

	// SyncWallets forces, or checks, wallet synchronization with the
	// chain backend. ErrNotSynced signals that the caller may retry.
	SyncWallets(ctx context.Context) error

	// ListBalances returns the node's current balance snapshot.
	ListBalances(ctx context.Context) (*Balances, error)

	// Network returns the chain parameters the node is configured for.
	Network() *chaincfg.Params

	// SweepToAddress sends all spendable on-chain funds to the address.
	// If retainReserves is set, the node keeps the funds it needs to
	// bump anchor channel closes.
	SweepToAddress(ctx context.Context, addr btcutil.Address,
		retainReserves bool, label string) (chainhash.Hash, error)

	// CreateInvoice creates a new invoice for the given amount.
	CreateInvoice(ctx context.Context, amt lnwire.MilliSatoshi,
		memo string, expiry time.Duration) (*Invoice, error)

	// InvoiceSettled reports whether the invoice with the given hash has
	// been paid.
	InvoiceSettled(ctx context.Context, hash lntypes.Hash) (bool, error)
}
