package lndnode

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnwire"
)

// spendable returns the part of a balance above the reserve, never less
// than zero.
func spendable(balance int64, reserve uint64) btcutil.Amount {
	if balance <= 0 || uint64(balance) <= reserve {
		return 0
	}

	return btcutil.Amount(uint64(balance) - reserve)
}

// openChannelSnapshot converts an open channel. Open channels are ready, and
// usable if the peer is online.
func openChannelSnapshot(c *lnrpc.Channel) node.ChannelSnapshot {
	var localReserve, remoteReserve uint64
	if c.LocalConstraints != nil {
		localReserve = c.LocalConstraints.ChanReserveSat
	}
	if c.RemoteConstraints != nil {
		remoteReserve = c.RemoteConstraints.ChanReserveSat
	}

	snapshot := node.ChannelSnapshot{
		Ready:  true,
		Usable: c.Active,
		Outbound: lnwire.NewMSatFromSatoshis(
			spendable(c.LocalBalance, localReserve),
		),
		Inbound: lnwire.NewMSatFromSatoshis(
			spendable(c.RemoteBalance, remoteReserve),
		),
		Capacity:     btcutil.Amount(c.Capacity),
		ChannelPoint: c.ChannelPoint,
	}

	if c.ChanId != 0 {
		scid := lnwire.NewShortChanIDFromInt(c.ChanId)
		snapshot.ShortChanID = &scid
	}

	return snapshot
}

// pendingChannelSnapshot converts a channel whose funding transaction is not
// confirmed yet.
func pendingChannelSnapshot(
	c *lnrpc.PendingChannelsResponse_PendingChannel) node.ChannelSnapshot {

	return node.ChannelSnapshot{
		Outbound: lnwire.NewMSatFromSatoshis(
			spendable(c.LocalBalance, uint64(c.LocalChanReserveSat)),
		),
		Inbound: lnwire.NewMSatFromSatoshis(
			spendable(c.RemoteBalance, uint64(c.RemoteChanReserveSat)),
		),
		Capacity:     btcutil.Amount(c.Capacity),
		ChannelPoint: c.ChannelPoint,
	}
}

// paymentHandle identifies a single send. lnd reuses the payment record of a
// failed payment when the same hash is sent again but assigns it a new
// index, so the index tells two sends of the same invoice apart.
func paymentHandle(hash string, index uint64) node.PaymentHandle {
	return node.PaymentHandle(fmt.Sprintf("%s:%d", hash, index))
}

// paymentState maps lnd's payment status.
func paymentState(status lnrpc.Payment_PaymentStatus) node.PaymentState {
	switch status {
	case lnrpc.Payment_SUCCEEDED:
		return node.PaymentSucceeded

	case lnrpc.Payment_FAILED:
		return node.PaymentFailed

	case lnrpc.Payment_IN_FLIGHT, lnrpc.Payment_INITIATED:
		return node.PaymentPending

	default:
		return node.PaymentUnknown
	}
}

// convertPayment converts an lnd payment.
func convertPayment(p *lnrpc.Payment) node.Payment {
	payment := node.Payment{
		Handle: paymentHandle(p.PaymentHash, p.PaymentIndex),
		State:  paymentState(p.Status),
		Amount: lnwire.MilliSatoshi(p.ValueMsat),
		Fee:    lnwire.MilliSatoshi(p.FeeMsat),
	}

	if p.FailureReason != lnrpc.PaymentFailureReason_FAILURE_REASON_NONE {
		payment.FailureReason = p.FailureReason.String()
	}

	return payment
}

// convertBalances combines lnd's wallet and channel balances. lnd's
// confirmed balance already excludes locked and leased outputs.
func convertBalances(wallet *lnrpc.WalletBalanceResponse,
	channels *lnrpc.ChannelBalanceResponse) *node.Balances {

	balances := &node.Balances{
		TotalOnChain: btcutil.Amount(wallet.TotalBalance),
		SpendableOnChain: btcutil.Amount(
			max(wallet.ConfirmedBalance, 0),
		),
	}

	if channels.LocalBalance != nil {
		balances.TotalLightning = btcutil.Amount(
			channels.LocalBalance.Sat,
		)
	}

	return balances
}
