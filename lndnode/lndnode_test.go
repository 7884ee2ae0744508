package lndnode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/test"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockLightning implements the parts of lnrpc.LightningClient the node
// uses. Calling any other method panics.
type mockLightning struct {
	lnrpc.LightningClient

	info     *lnrpc.GetInfoResponse
	infoErr  error
	channels *lnrpc.ListChannelsResponse
	pending  *lnrpc.PendingChannelsResponse
	payments *lnrpc.ListPaymentsResponse
	wallet   *lnrpc.WalletBalanceResponse
	balance  *lnrpc.ChannelBalanceResponse
	invoice  *lnrpc.Invoice

	sendCoins   *lnrpc.SendCoinsRequest
	addInvoice  *lnrpc.Invoice
	listPayReqs *lnrpc.ListPaymentsRequest
}

func (m *mockLightning) GetInfo(context.Context, *lnrpc.GetInfoRequest,
	...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {

	return m.info, m.infoErr
}

func (m *mockLightning) ListChannels(context.Context,
	*lnrpc.ListChannelsRequest,
	...grpc.CallOption) (*lnrpc.ListChannelsResponse, error) {

	return m.channels, nil
}

func (m *mockLightning) PendingChannels(context.Context,
	*lnrpc.PendingChannelsRequest,
	...grpc.CallOption) (*lnrpc.PendingChannelsResponse, error) {

	return m.pending, nil
}

func (m *mockLightning) ListPayments(_ context.Context,
	req *lnrpc.ListPaymentsRequest,
	_ ...grpc.CallOption) (*lnrpc.ListPaymentsResponse, error) {

	m.listPayReqs = req

	return m.payments, nil
}

func (m *mockLightning) WalletBalance(context.Context,
	*lnrpc.WalletBalanceRequest,
	...grpc.CallOption) (*lnrpc.WalletBalanceResponse, error) {

	return m.wallet, nil
}

func (m *mockLightning) ChannelBalance(context.Context,
	*lnrpc.ChannelBalanceRequest,
	...grpc.CallOption) (*lnrpc.ChannelBalanceResponse, error) {

	return m.balance, nil
}

func (m *mockLightning) SendCoins(_ context.Context,
	req *lnrpc.SendCoinsRequest,
	_ ...grpc.CallOption) (*lnrpc.SendCoinsResponse, error) {

	m.sendCoins = req

	return &lnrpc.SendCoinsResponse{
		Txid: chainhash.Hash{1}.String(),
	}, nil
}

func (m *mockLightning) AddInvoice(_ context.Context, req *lnrpc.Invoice,
	_ ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error) {

	m.addInvoice = req
	hash := lntypes.Hash{7}

	return &lnrpc.AddInvoiceResponse{
		RHash:          hash[:],
		PaymentRequest: "lnbcrt1invoice",
	}, nil
}

func (m *mockLightning) LookupInvoice(context.Context, *lnrpc.PaymentHash,
	...grpc.CallOption) (*lnrpc.Invoice, error) {

	return m.invoice, nil
}

// mockRouter implements SendPaymentV2 of routerrpc.RouterClient.
type mockRouter struct {
	routerrpc.RouterClient

	req     *routerrpc.SendPaymentRequest
	updates []*lnrpc.Payment
	err     error
}

func (m *mockRouter) SendPaymentV2(_ context.Context,
	req *routerrpc.SendPaymentRequest,
	_ ...grpc.CallOption) (routerrpc.Router_SendPaymentV2Client, error) {

	m.req = req
	if m.err != nil {
		return nil, m.err
	}

	return &mockPaymentStream{updates: m.updates}, nil
}

type mockPaymentStream struct {
	grpc.ClientStream

	updates []*lnrpc.Payment
}

func (s *mockPaymentStream) Recv() (*lnrpc.Payment, error) {
	if len(s.updates) == 0 {
		return nil, errors.New("stream closed")
	}

	update := s.updates[0]
	s.updates = s.updates[1:]

	return update, nil
}

func newTestNode() (*Node, *mockLightning, *mockRouter) {
	client := &mockLightning{}
	router := &mockRouter{}
	n := newNode(&Config{
		Network: &chaincfg.RegressionNetParams,
	}, client, router)

	return n, client, router
}

// TestListChannels tests the conversion of open and pending channels.
func TestListChannels(t *testing.T) {
	n, client, _ := newTestNode()

	client.channels = &lnrpc.ListChannelsResponse{
		Channels: []*lnrpc.Channel{
			{
				Active:        true,
				ChanId:        123 << 40,
				ChannelPoint:  "abcd:0",
				Capacity:      1_000_000,
				LocalBalance:  600_000,
				RemoteBalance: 390_000,
				LocalConstraints: &lnrpc.ChannelConstraints{
					ChanReserveSat: 10_000,
				},
				RemoteConstraints: &lnrpc.ChannelConstraints{
					ChanReserveSat: 10_000,
				},
			},
			{
				Active:       false,
				ChanId:       124 << 40,
				Capacity:     50_000,
				LocalBalance: 1_000,
				LocalConstraints: &lnrpc.ChannelConstraints{
					ChanReserveSat: 2_000,
				},
			},
		},
	}
	client.pending = &lnrpc.PendingChannelsResponse{
		PendingOpenChannels: []*lnrpc.PendingChannelsResponse_PendingOpenChannel{
			{
				Channel: &lnrpc.PendingChannelsResponse_PendingChannel{
					ChannelPoint: "ef01:1",
					Capacity:     200_000,
					LocalBalance: 200_000,
				},
			},
			{},
		},
	}

	channels, err := n.ListChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 3)

	active := channels[0]
	require.True(t, active.Ready)
	require.True(t, active.Usable)
	require.Equal(t, lnwire.MilliSatoshi(590_000_000), active.Outbound)
	require.Equal(t, lnwire.MilliSatoshi(380_000_000), active.Inbound)
	require.Equal(t, btcutil.Amount(1_000_000), active.Capacity)
	require.Equal(t, "123:0:0", active.ShortID())

	inactive := channels[1]
	require.True(t, inactive.Ready)
	require.False(t, inactive.Usable)
	require.Zero(t, inactive.Outbound)

	pending := channels[2]
	require.False(t, pending.Ready)
	require.False(t, pending.Usable)
	require.Equal(t, "-", pending.ShortID())
	require.Equal(t, lnwire.MilliSatoshi(200_000_000), pending.Outbound)
}

// TestSendPayment tests that the handle is taken from the first update and
// that a fee limit is set.
func TestSendPayment(t *testing.T) {
	n, _, router := newTestNode()

	payReq, hash := test.NewPayReq(
		t, &chaincfg.RegressionNetParams, 1_000_000, "send",
	)
	router.updates = []*lnrpc.Payment{{
		PaymentHash:  hash.String(),
		PaymentIndex: 5,
		Status:       lnrpc.Payment_IN_FLIGHT,
	}}

	handle, err := n.SendPayment(context.Background(), payReq)
	require.NoError(t, err)
	require.Equal(t, paymentHandle(hash.String(), 5), handle)

	require.Equal(t, payReq, router.req.PaymentRequest)
	require.Equal(t, int64(1_000_000/50+10_000), router.req.FeeLimitMsat)
	require.Equal(t, int32(60), router.req.TimeoutSeconds)

	router.err = status.Error(codes.AlreadyExists, "invoice is already paid")
	_, err = n.SendPayment(context.Background(), payReq)
	require.Error(t, err)

	router.err = nil
	router.updates = nil
	_, err = n.SendPayment(context.Background(), payReq)
	require.Error(t, err)
}

// TestListPayments tests the conversion of payments.
func TestListPayments(t *testing.T) {
	n, client, _ := newTestNode()

	noRoute := lnrpc.PaymentFailureReason_FAILURE_REASON_NO_ROUTE
	client.payments = &lnrpc.ListPaymentsResponse{
		Payments: []*lnrpc.Payment{
			{
				PaymentHash:  "aa",
				PaymentIndex: 1,
				Status:       lnrpc.Payment_FAILED,
				FailureReason: noRoute,
			},
			{
				PaymentHash:  "aa",
				PaymentIndex: 2,
				Status:       lnrpc.Payment_SUCCEEDED,
				ValueMsat:    1_000,
				FeeMsat:      3,
			},
			{
				PaymentHash:  "bb",
				PaymentIndex: 3,
				Status:       lnrpc.Payment_INITIATED,
			},
		},
	}

	payments, err := n.ListPayments(context.Background())
	require.NoError(t, err)
	require.True(t, client.listPayReqs.IncludeIncomplete)
	require.True(t, client.listPayReqs.Reversed)
	require.Equal(t, uint64(defaultMaxPayments),
		client.listPayReqs.MaxPayments)

	require.Equal(t, []node.Payment{
		{
			Handle:        "aa:1",
			State:         node.PaymentFailed,
			FailureReason: "FAILURE_REASON_NO_ROUTE",
		},
		{
			Handle: "aa:2",
			State:  node.PaymentSucceeded,
			Amount: 1_000,
			Fee:    3,
		},
		{
			Handle: "bb:3",
			State:  node.PaymentPending,
		},
	}, payments)
}

// TestSyncWallets tests the mapping of lnd's sync state.
func TestSyncWallets(t *testing.T) {
	n, client, _ := newTestNode()

	client.info = &lnrpc.GetInfoResponse{SyncedToChain: false}
	require.ErrorIs(t, n.SyncWallets(context.Background()),
		node.ErrNotSynced)

	client.info = nil
	client.infoErr = status.Error(
		codes.Unknown, "the RPC server is in the process of starting "+
			"up, but not yet ready to accept calls",
	)
	require.ErrorIs(t, n.SyncWallets(context.Background()),
		node.ErrNotSynced)

	client.infoErr = status.Error(codes.PermissionDenied, "bad macaroon")
	err := n.SyncWallets(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, node.ErrNotSynced)

	client.infoErr = nil
	client.info = &lnrpc.GetInfoResponse{SyncedToChain: true}
	require.NoError(t, n.SyncWallets(context.Background()))
}

// TestCheckNetwork tests that a network mismatch is detected.
func TestCheckNetwork(t *testing.T) {
	n, client, _ := newTestNode()

	client.info = &lnrpc.GetInfoResponse{
		Chains: []*lnrpc.Chain{{Chain: "bitcoin", Network: "regtest"}},
	}
	require.NoError(t, n.checkNetwork(context.Background()))

	client.info.Chains[0].Network = "mainnet"
	require.ErrorIs(t, n.checkNetwork(context.Background()),
		ErrNetworkMismatch)
}

// TestBalancesAndSweep tests balance conversion and the sweep request.
func TestBalancesAndSweep(t *testing.T) {
	n, client, _ := newTestNode()

	client.wallet = &lnrpc.WalletBalanceResponse{
		TotalBalance:     150_000,
		ConfirmedBalance: 120_000,
		LockedBalance:    20_000,
	}
	client.balance = &lnrpc.ChannelBalanceResponse{
		LocalBalance: &lnrpc.Amount{Sat: 70_000},
	}

	balances, err := n.ListBalances(context.Background())
	require.NoError(t, err)
	require.Equal(t, &node.Balances{
		TotalOnChain:     150_000,
		SpendableOnChain: 120_000,
		TotalLightning:   70_000,
	}, balances)

	// Locked outputs are not part of the confirmed balance, so they must
	// not be subtracted from it again.
	client.wallet = &lnrpc.WalletBalanceResponse{
		TotalBalance:     110_000,
		ConfirmedBalance: 50_000,
		LockedBalance:    60_000,
	}
	balances, err = n.ListBalances(context.Background())
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(50_000), balances.SpendableOnChain)

	client.wallet = &lnrpc.WalletBalanceResponse{ConfirmedBalance: -1}
	balances, err = n.ListBalances(context.Background())
	require.NoError(t, err)
	require.Zero(t, balances.SpendableOnChain)

	addr := test.GetDestAddr(t, &chaincfg.RegressionNetParams, 3)
	txid, err := n.SweepToAddress(
		context.Background(), addr, true, "label",
	)
	require.NoError(t, err)
	require.Equal(t, chainhash.Hash{1}, txid)
	require.True(t, client.sendCoins.SendAll)
	require.Equal(t, addr.String(), client.sendCoins.Addr)
	require.Equal(t, "label", client.sendCoins.Label)
}

// TestInvoices tests invoice creation and settlement lookup.
func TestInvoices(t *testing.T) {
	n, client, _ := newTestNode()

	invoice, err := n.CreateInvoice(
		context.Background(), 5_000, "memo", time.Hour,
	)
	require.NoError(t, err)
	require.Equal(t, lntypes.Hash{7}, invoice.Hash)
	require.Equal(t, int64(5_000), client.addInvoice.ValueMsat)
	require.Equal(t, int64(3600), client.addInvoice.Expiry)

	client.invoice = &lnrpc.Invoice{State: lnrpc.Invoice_OPEN}
	settled, err := n.InvoiceSettled(context.Background(), invoice.Hash)
	require.NoError(t, err)
	require.False(t, settled)

	client.invoice = &lnrpc.Invoice{State: lnrpc.Invoice_SETTLED}
	settled, err = n.InvoiceSettled(context.Background(), invoice.Hash)
	require.NoError(t, err)
	require.True(t, settled)
}

// TestSpendable tests the reserve clamping.
func TestSpendable(t *testing.T) {
	require.Equal(t, btcutil.Amount(0), spendable(-5, 0))
	require.Equal(t, btcutil.Amount(0), spendable(100, 100))
	require.Equal(t, btcutil.Amount(0), spendable(100, 200))
	require.Equal(t, btcutil.Amount(50), spendable(150, 100))
}
