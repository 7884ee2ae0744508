// Package lndnode implements node.Node on top of an lnd instance.
package lndnode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/lndclient"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/utils"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"google.golang.org/grpc"
)

const (
	// rpcTimeout is the timeout for all unary calls to lnd.
	rpcTimeout = 30 * time.Second

	// defaultPaymentTimeout is the time lnd may spend on a single
	// payment attempt before giving up on it.
	defaultPaymentTimeout = 60 * time.Second

	// defaultMaxPayments is the number of most recent payments fetched
	// per poll.
	defaultMaxPayments = 1000

	// startupRetryInterval is the time between connection checks while
	// lnd is still starting.
	startupRetryInterval = 2 * time.Second

	// feeLimitDivisor and feeLimitBase set the routing fee limit of a
	// payment to 2% of the amount plus 10 sat, the same margin the
	// liquidity requirement reserves.
	feeLimitDivisor = 50
	feeLimitBase    = lnwire.MilliSatoshi(10_000)
)

var (
	// ErrNetworkMismatch is returned if lnd runs on another network than
	// the one configured.
	ErrNetworkMismatch = errors.New("lnd is running on a different " +
		"network")
)

// Config holds the connection parameters for lnd.
type Config struct {
	// Host is lnd's gRPC host:port.
	Host string

	// TLSPath is the path to lnd's TLS certificate.
	TLSPath string

	// MacaroonDir is the directory that contains lnd's admin macaroon.
	MacaroonDir string

	// Network is the network lnd is expected to run on.
	Network *chaincfg.Params

	// PaymentTimeout bounds a single payment attempt inside lnd.
	PaymentTimeout time.Duration

	// MaxPayments is the number of most recent payments fetched per
	// poll.
	MaxPayments uint64
}

// Node is a node.Node backed by lnd.
type Node struct {
	cfg    *Config
	conn   *grpc.ClientConn
	client lnrpc.LightningClient
	router routerrpc.RouterClient
}

// A compile time check to ensure Node implements node.Node.
var _ node.Node = (*Node)(nil)

// New dials lnd and checks that it runs on the configured network. It
// waits for lnd's RPC server if lnd is still starting.
func New(ctx context.Context, cfg *Config) (*Node, error) {
	conn, err := lndclient.NewBasicConn(
		cfg.Host, cfg.TLSPath, cfg.MacaroonDir,
		node.NetworkName(cfg.Network),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to lnd: %w", err)
	}

	n := newNode(
		cfg, lnrpc.NewLightningClient(conn),
		routerrpc.NewRouterClient(conn),
	)
	n.conn = conn

	err = utils.RetryWhileStarting(
		ctx, clock.NewDefaultClock(), startupRetryInterval,
		n.checkNetwork,
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return n, nil
}

// newNode creates a node from existing clients.
func newNode(cfg *Config, client lnrpc.LightningClient,
	router routerrpc.RouterClient) *Node {

	if cfg.PaymentTimeout == 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}
	if cfg.MaxPayments == 0 {
		cfg.MaxPayments = defaultMaxPayments
	}

	return &Node{
		cfg:    cfg,
		client: client,
		router: router,
	}
}

// Close closes the connection to lnd.
func (n *Node) Close() error {
	if n.conn == nil {
		return nil
	}

	return n.conn.Close()
}

// checkNetwork verifies that lnd runs on the configured network.
func (n *Node) checkNetwork(ctx context.Context) error {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	info, err := n.client.GetInfo(rpcCtx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return err
	}

	expected := node.NetworkName(n.cfg.Network)
	for _, chain := range info.Chains {
		if chain.Network != expected {
			return fmt.Errorf("%w: lnd=%v, configured=%v",
				ErrNetworkMismatch, chain.Network, expected)
		}
	}

	log.Infof("Connected to lnd %v (%v) on %v, height %d",
		info.Alias, info.Version, expected, info.BlockHeight)

	return nil
}

// Network returns the chain parameters lnd runs on.
func (n *Node) Network() *chaincfg.Params {
	return n.cfg.Network
}

// ListChannels returns open and pending channels.
func (n *Node) ListChannels(ctx context.Context) ([]node.ChannelSnapshot,
	error) {

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	open, err := n.client.ListChannels(
		rpcCtx, &lnrpc.ListChannelsRequest{},
	)
	if err != nil {
		return nil, err
	}

	pending, err := n.client.PendingChannels(
		rpcCtx, &lnrpc.PendingChannelsRequest{},
	)
	if err != nil {
		return nil, err
	}

	channels := make(
		[]node.ChannelSnapshot, 0,
		len(open.Channels)+len(pending.PendingOpenChannels),
	)
	for _, channel := range open.Channels {
		channels = append(channels, openChannelSnapshot(channel))
	}
	for _, channel := range pending.PendingOpenChannels {
		if channel.Channel == nil {
			continue
		}

		channels = append(
			channels, pendingChannelSnapshot(channel.Channel),
		)
	}

	return channels, nil
}

// SendPayment starts a payment and returns as soon as lnd reported the first
// update for it. lnd keeps driving the payment after the update stream is
// closed.
func (n *Node) SendPayment(ctx context.Context,
	payReq string) (node.PaymentHandle, error) {

	invoice, err := zpay32.Decode(payReq, n.cfg.Network)
	if err != nil {
		return "", err
	}

	req := &routerrpc.SendPaymentRequest{
		PaymentRequest: payReq,
		TimeoutSeconds: int32(n.cfg.PaymentTimeout.Seconds()),
	}
	if invoice.MilliSat != nil {
		amt := *invoice.MilliSat
		req.FeeLimitMsat = int64(amt/feeLimitDivisor + feeLimitBase)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := n.router.SendPaymentV2(streamCtx, req)
	if err != nil {
		return "", err
	}

	update, err := stream.Recv()
	if err != nil {
		return "", err
	}

	handle := paymentHandle(update.PaymentHash, update.PaymentIndex)
	log.Debugf("Payment %v accepted with status %v", handle,
		update.Status)

	return handle, nil
}

// ListPayments returns the most recent payments, including incomplete ones.
func (n *Node) ListPayments(ctx context.Context) ([]node.Payment, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	resp, err := n.client.ListPayments(rpcCtx, &lnrpc.ListPaymentsRequest{
		IncludeIncomplete: true,
		Reversed:          true,
		MaxPayments:       n.cfg.MaxPayments,
	})
	if err != nil {
		return nil, err
	}

	payments := make([]node.Payment, 0, len(resp.Payments))
	for _, payment := range resp.Payments {
		payments = append(payments, convertPayment(payment))
	}

	return payments, nil
}

// SyncWallets checks whether lnd is synced to the chain. lnd syncs on its
// own, so all we can do is ask. Errors of a starting lnd are reported as
// ErrNotSynced.
func (n *Node) SyncWallets(ctx context.Context) error {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	info, err := n.client.GetInfo(rpcCtx, &lnrpc.GetInfoRequest{})
	switch {
	case utils.IsTransientErr(err):
		return fmt.Errorf("%w: %v", node.ErrNotSynced, err)

	case err != nil:
		return err

	case !info.SyncedToChain:
		return fmt.Errorf("%w: height %d", node.ErrNotSynced,
			info.BlockHeight)
	}

	return nil
}

// ListBalances returns the wallet and channel balances.
func (n *Node) ListBalances(ctx context.Context) (*node.Balances, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	wallet, err := n.client.WalletBalance(
		rpcCtx, &lnrpc.WalletBalanceRequest{},
	)
	if err != nil {
		return nil, err
	}

	channels, err := n.client.ChannelBalance(
		rpcCtx, &lnrpc.ChannelBalanceRequest{},
	)
	if err != nil {
		return nil, err
	}

	return convertBalances(wallet, channels), nil
}

// SweepToAddress sends all on-chain funds to the address. lnd always keeps
// the reserve for anchor channels, so retainReserves=false can't be honored
// and only results in a warning.
func (n *Node) SweepToAddress(ctx context.Context, addr btcutil.Address,
	retainReserves bool, label string) (chainhash.Hash, error) {

	if !retainReserves {
		log.Warnf("lnd keeps the anchor channel reserve on sweeps, " +
			"the reserve will not be drained")
	}

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	resp, err := n.client.SendCoins(rpcCtx, &lnrpc.SendCoinsRequest{
		Addr:    addr.String(),
		SendAll: true,
		Label:   label,
	})
	if err != nil {
		return chainhash.Hash{}, err
	}

	txid, err := chainhash.NewHashFromStr(resp.Txid)
	if err != nil {
		return chainhash.Hash{}, err
	}

	return *txid, nil
}

// CreateInvoice adds an invoice to lnd.
func (n *Node) CreateInvoice(ctx context.Context, amt lnwire.MilliSatoshi,
	memo string, expiry time.Duration) (*node.Invoice, error) {

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	resp, err := n.client.AddInvoice(rpcCtx, &lnrpc.Invoice{
		Memo:      memo,
		ValueMsat: int64(amt),
		Expiry:    int64(expiry.Seconds()),
	})
	if err != nil {
		return nil, err
	}

	hash, err := lntypes.MakeHash(resp.RHash)
	if err != nil {
		return nil, err
	}

	return &node.Invoice{
		PaymentRequest: resp.PaymentRequest,
		Hash:           hash,
	}, nil
}

// InvoiceSettled looks up the invoice and reports whether it was paid.
func (n *Node) InvoiceSettled(ctx context.Context,
	hash lntypes.Hash) (bool, error) {

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	invoice, err := n.client.LookupInvoice(rpcCtx, &lnrpc.PaymentHash{
		RHash: hash[:],
	})
	if err != nil {
		return false, err
	}

	return invoice.State == lnrpc.Invoice_SETTLED, nil
}
