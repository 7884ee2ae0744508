package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

var (
	// ErrInvalidTarget is returned when a payment request can't be
	// decoded or is not valid for the node's network.
	ErrInvalidTarget = errors.New("invalid payment request")

	// ErrNoAmount is returned for payment requests without an amount.
	ErrNoAmount = errors.New("payment request has no amount")
)

// Target is a parsed payment request. It is immutable once created.
type Target struct {
	// PayReq is the encoded payment request handed to the node.
	PayReq string

	// Amount is the amount requested by the invoice.
	Amount lnwire.MilliSatoshi

	// Description is the optional invoice description.
	Description string

	// Hash is the payment hash, which identifies the payment intent.
	Hash lntypes.Hash

	// Expiry is the time at which the invoice expires.
	Expiry time.Time
}

// ParseTarget decodes a BOLT11 payment request for the given network.
// Requests without an amount are rejected, the engine has no amount to gate
// liquidity on.
func ParseTarget(payReq string, params *chaincfg.Params) (*Target, error) {
	payReq = strings.TrimSpace(payReq)
	payReq = strings.TrimPrefix(strings.ToLower(payReq), "lightning:")

	invoice, err := zpay32.Decode(payReq, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	if invoice.PaymentHash == nil {
		return nil, fmt.Errorf("%w: missing payment hash",
			ErrInvalidTarget)
	}

	if invoice.MilliSat == nil || *invoice.MilliSat == 0 {
		return nil, ErrNoAmount
	}

	target := &Target{
		PayReq: payReq,
		Amount: *invoice.MilliSat,
		Hash:   *invoice.PaymentHash,
		Expiry: invoice.Timestamp.Add(invoice.Expiry()),
	}
	if invoice.Description != nil {
		target.Description = *invoice.Description
	}

	return target, nil
}

// String returns a short description of the target for logging.
func (t *Target) String() string {
	return fmt.Sprintf("hash=%v amt=%v desc=%q", t.Hash, t.Amount,
		t.Description)
}
