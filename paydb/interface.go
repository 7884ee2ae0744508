package paydb

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

// Outcome is the result of a single payment attempt.
type Outcome uint8

const (
	// OutcomeAccepted means the node accepted the payment into its
	// outbound pipeline.
	OutcomeAccepted Outcome = iota

	// OutcomeSendFailed means the send call itself returned an error.
	OutcomeSendFailed

	// OutcomeFailed means the status feed reported the payment as
	// failed.
	OutcomeFailed

	// OutcomeSucceeded means the status feed reported the payment as
	// settled.
	OutcomeSucceeded

	// OutcomeAbandoned means the attempt ceiling was hit.
	OutcomeAbandoned
)

// String returns a human readable outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "Accepted"

	case OutcomeSendFailed:
		return "SendFailed"

	case OutcomeFailed:
		return "Failed"

	case OutcomeSucceeded:
		return "Succeeded"

	case OutcomeAbandoned:
		return "Abandoned"

	default:
		return "Unknown"
	}
}

// Attempt is a journal entry for a payment intent.
type Attempt struct {
	// Hash is the payment hash of the intent.
	Hash lntypes.Hash

	// Number is the attempt counter of the intent when the entry was
	// written.
	Number uint32

	// Handle is the payment handle the entry refers to, if any.
	Handle string

	// Outcome is what happened.
	Outcome Outcome

	// Delay is the backoff delay that preceded the attempt.
	Delay time.Duration

	// Amount is the settled amount for succeeded payments.
	Amount lnwire.MilliSatoshi

	// Error is the error text for failed attempts.
	Error string

	// Time is the time the entry was written.
	Time time.Time
}

// Payment is the journal of a single payment intent.
type Payment struct {
	// Hash is the payment hash of the intent.
	Hash lntypes.Hash

	// Attempts holds the journal entries in insertion order.
	Attempts []*Attempt
}

// Last returns the most recent journal entry.
func (p *Payment) Last() *Attempt {
	if len(p.Attempts) == 0 {
		return nil
	}

	return p.Attempts[len(p.Attempts)-1]
}

// Sweep is a journal entry for a sweep.
type Sweep struct {
	// Address is the destination address.
	Address string

	// DrainReserves is true if the anchor reserve was included.
	DrainReserves bool

	// Label is the label attached to the transaction.
	Label string

	// Txid is the sweep transaction id, zero if the sweep failed.
	Txid chainhash.Hash

	// Error is the error text for failed sweeps.
	Error string

	// Time is the time the entry was written.
	Time time.Time
}

// Store is the journal of payment attempts and sweeps.
type Store interface {
	// RecordAttempt appends an entry to the journal of a payment intent.
	RecordAttempt(ctx context.Context, attempt *Attempt) error

	// FetchPayments returns the journals of all payment intents.
	FetchPayments(ctx context.Context) ([]*Payment, error)

	// RecordSweep appends a sweep to the journal.
	RecordSweep(ctx context.Context, sweep *Sweep) error

	// FetchSweeps returns all journaled sweeps in insertion order.
	FetchSweeps(ctx context.Context) ([]*Sweep, error)

	// Close closes the store.
	Close() error
}
