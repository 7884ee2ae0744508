package test

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// SweepRequest records a single SweepToAddress call.
type SweepRequest struct {
	Address        btcutil.Address
	RetainReserves bool
	Label          string
}

// MockNode is a scriptable node.Node. Every hook receives the 1-based call
// number of the operation, so that tests can script sequences of results.
// Unset hooks fall back to the static fields.
type MockNode struct {
	mu sync.Mutex

	Params *chaincfg.Params

	// Channels is returned by ListChannels if ListChannelsHook is nil.
	Channels []node.ChannelSnapshot

	// Payments is returned by ListPayments if ListPaymentsHook is nil.
	Payments []node.Payment

	// Balances is returned by ListBalances if ListBalancesHook is nil.
	Balances node.Balances

	// SweepTxid is returned by SweepToAddress if SweepHook is nil.
	SweepTxid chainhash.Hash

	ListChannelsHook func(call int) ([]node.ChannelSnapshot, error)
	SendPaymentHook  func(call int, payReq string) (node.PaymentHandle,
		error)
	ListPaymentsHook func(call int) ([]node.Payment, error)
	SyncWalletsHook  func(call int) error
	ListBalancesHook func(call int) (*node.Balances, error)
	SweepHook        func(call int, req SweepRequest) (chainhash.Hash,
		error)

	// SettleAfter is the number of InvoiceSettled calls after which an
	// invoice created by CreateInvoice reports as settled. Zero means
	// never.
	SettleAfter int

	// Sent holds every payment request passed to SendPayment.
	Sent []string

	// Sweeps holds every sweep request.
	Sweeps []SweepRequest

	// Invoices holds every invoice created by CreateInvoice.
	Invoices []*node.Invoice

	listChannelsCalls   int
	sendCalls           int
	listPaymentsCalls   int
	syncCalls           int
	listBalancesCalls   int
	invoiceSettledCalls int
}

// A compile time check to ensure MockNode implements node.Node.
var _ node.Node = (*MockNode)(nil)

// NewMockNode returns a mock node on regtest.
func NewMockNode() *MockNode {
	return &MockNode{
		Params: &chaincfg.RegressionNetParams,
	}
}

// ListChannels returns the scripted channel snapshots.
func (m *MockNode) ListChannels(_ context.Context) ([]node.ChannelSnapshot,
	error) {

	m.mu.Lock()
	m.listChannelsCalls++
	call := m.listChannelsCalls
	hook := m.ListChannelsHook
	channels := append([]node.ChannelSnapshot(nil), m.Channels...)
	m.mu.Unlock()

	if hook != nil {
		return hook(call)
	}

	return channels, nil
}

// SendPayment records the payment request and returns the scripted handle.
// Without a hook every call returns a fresh handle.
func (m *MockNode) SendPayment(_ context.Context,
	payReq string) (node.PaymentHandle, error) {

	m.mu.Lock()
	m.sendCalls++
	call := m.sendCalls
	m.Sent = append(m.Sent, payReq)
	hook := m.SendPaymentHook
	m.mu.Unlock()

	logger.Debugf("SendPayment call %v", call)

	if hook != nil {
		return hook(call, payReq)
	}

	return node.PaymentHandle(fmt.Sprintf("handle-%d", call)), nil
}

// ListPayments returns the scripted payment feed.
func (m *MockNode) ListPayments(_ context.Context) ([]node.Payment, error) {
	m.mu.Lock()
	m.listPaymentsCalls++
	call := m.listPaymentsCalls
	hook := m.ListPaymentsHook
	payments := append([]node.Payment(nil), m.Payments...)
	m.mu.Unlock()

	if hook != nil {
		return hook(call)
	}

	return payments, nil
}

// SyncWallets returns the scripted sync result.
func (m *MockNode) SyncWallets(_ context.Context) error {
	m.mu.Lock()
	m.syncCalls++
	call := m.syncCalls
	hook := m.SyncWalletsHook
	m.mu.Unlock()

	if hook != nil {
		return hook(call)
	}

	return nil
}

// ListBalances returns the scripted balances.
func (m *MockNode) ListBalances(_ context.Context) (*node.Balances, error) {
	m.mu.Lock()
	m.listBalancesCalls++
	call := m.listBalancesCalls
	hook := m.ListBalancesHook
	balances := m.Balances
	m.mu.Unlock()

	if hook != nil {
		return hook(call)
	}

	return &balances, nil
}

// Network returns the mock's chain parameters.
func (m *MockNode) Network() *chaincfg.Params {
	return m.Params
}

// SweepToAddress records the sweep request.
func (m *MockNode) SweepToAddress(_ context.Context, addr btcutil.Address,
	retainReserves bool, label string) (chainhash.Hash, error) {

	req := SweepRequest{
		Address:        addr,
		RetainReserves: retainReserves,
		Label:          label,
	}

	m.mu.Lock()
	m.Sweeps = append(m.Sweeps, req)
	call := len(m.Sweeps)
	hook := m.SweepHook
	txid := m.SweepTxid
	m.mu.Unlock()

	if hook != nil {
		return hook(call, req)
	}

	return txid, nil
}

// CreateInvoice creates a real encoded payment request with a random
// payment hash.
func (m *MockNode) CreateInvoice(_ context.Context, amt lnwire.MilliSatoshi,
	memo string, expiry time.Duration) (*node.Invoice, error) {

	var preimage lntypes.Preimage
	if _, err := rand.Read(preimage[:]); err != nil {
		return nil, err
	}
	hash := preimage.Hash()

	opts := []func(*zpay32.Invoice){
		zpay32.Description(memo),
		zpay32.Expiry(expiry),
	}
	if amt != 0 {
		opts = append(opts, zpay32.Amount(amt))
	}

	payReq, err := zpay32.NewInvoice(m.Params, hash, time.Now(), opts...)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodePayReq(payReq)
	if err != nil {
		return nil, err
	}

	invoice := &node.Invoice{
		PaymentRequest: encoded,
		Hash:           hash,
	}

	m.mu.Lock()
	m.Invoices = append(m.Invoices, invoice)
	m.mu.Unlock()

	return invoice, nil
}

// InvoiceSettled reports the invoice as settled once SettleAfter calls have
// been made.
func (m *MockNode) InvoiceSettled(_ context.Context,
	hash lntypes.Hash) (bool, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.invoiceSettledCalls++

	known := false
	for _, invoice := range m.Invoices {
		if invoice.Hash == hash {
			known = true
			break
		}
	}
	if !known {
		return false, fmt.Errorf("unknown invoice %v", hash)
	}

	return m.SettleAfter > 0 && m.invoiceSettledCalls >= m.SettleAfter,
		nil
}

// Calls returns the number of calls made to the polling operations.
func (m *MockNode) Calls() (listChannels, send, listPayments, sync,
	listBalances int) {

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listChannelsCalls, m.sendCalls, m.listPaymentsCalls,
		m.syncCalls, m.listBalancesCalls
}

// SendCalls returns the number of SendPayment calls.
func (m *MockNode) SendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sendCalls
}

// ListPaymentsCalls returns the number of ListPayments calls.
func (m *MockNode) ListPaymentsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listPaymentsCalls
}

// ListChannelsCalls returns the number of ListChannels calls.
func (m *MockNode) ListChannelsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listChannelsCalls
}

// SyncCalls returns the number of SyncWallets calls.
func (m *MockNode) SyncCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.syncCalls
}
