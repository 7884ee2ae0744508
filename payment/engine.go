// Package payment drives a single payment intent to settlement.
//
// The engine is a state machine with the following transitions:
//
//	Init        -> OnStart         -> Dispatching
//	Dispatching -> OnSent          -> Watching
//	Dispatching -> OnSendFailed    -> Dispatching (after backoff)
//	Watching    -> OnNotListed     -> Watching    (after poll interval)
//	Watching    -> OnPending       -> Watching    (after poll interval)
//	Watching    -> OnPollFailed    -> Watching    (after poll interval)
//	Watching    -> OnSucceeded     -> Succeeded
//	Watching    -> OnPaymentFailed -> Retrying
//	Retrying    -> OnResent        -> Watching    (new handle)
//	Retrying    -> OnResendFailed  -> Watching    (old handle)
//
// Every non-terminal state moves to Canceled on OnCanceled. If an attempt
// ceiling is configured, Dispatching and Retrying move to Abandoned on
// OnError once it is hit, with ErrMaxAttempts as the last action error.
//
// The status of a payment is only ever taken from the node's payment list.
// A successful send call just means that the node accepted the payment.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/lspctl/fsm"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightninglabs/lspctl/utils"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

const (
	// DefaultPollInterval is the time between two polls of the payment
	// list.
	DefaultPollInterval = 2 * time.Second
)

var (
	// ErrMaxAttempts is returned when the configured attempt ceiling was
	// hit before the payment succeeded.
	ErrMaxAttempts = errors.New("maximum number of payment attempts " +
		"reached")
)

// States.
const (
	Init        = fsm.EmptyState
	Dispatching = fsm.StateType("Dispatching")
	Watching    = fsm.StateType("Watching")
	Retrying    = fsm.StateType("Retrying")
	Succeeded   = fsm.StateType("Succeeded")
	Canceled    = fsm.StateType("Canceled")
	Abandoned   = fsm.StateType("Abandoned")
)

// Events.
var (
	OnStart         = fsm.EventType("OnStart")
	OnSent          = fsm.EventType("OnSent")
	OnSendFailed    = fsm.EventType("OnSendFailed")
	OnNotListed     = fsm.EventType("OnNotListed")
	OnPending       = fsm.EventType("OnPending")
	OnPollFailed    = fsm.EventType("OnPollFailed")
	OnSucceeded     = fsm.EventType("OnSucceeded")
	OnPaymentFailed = fsm.EventType("OnPaymentFailed")
	OnResent        = fsm.EventType("OnResent")
	OnResendFailed  = fsm.EventType("OnResendFailed")
	OnCanceled      = fsm.EventType("OnCanceled")
)

// Config contains the dependencies and tunables of the engine.
type Config struct {
	// Node is the node the payment is sent with.
	Node node.Node

	// Clock is used for all sleeps.
	Clock clock.Clock

	// Store is an optional journal for attempts. Journal errors are
	// logged and otherwise ignored.
	Store paydb.Store

	// PollInterval is the time between two polls of the payment list.
	PollInterval time.Duration

	// BackoffFloor is the delay after the first failure.
	BackoffFloor time.Duration

	// BackoffCeiling is the maximum delay after a failure.
	BackoffCeiling time.Duration

	// MaxAttempts is the maximum number of send calls for the intent.
	// Zero means unbounded.
	MaxAttempts uint32
}

// Result describes a settled payment.
type Result struct {
	// Hash is the payment hash of the intent.
	Hash lntypes.Hash

	// Handle is the handle of the send that settled.
	Handle node.PaymentHandle

	// Amount is the settled amount as reported by the node.
	Amount lnwire.MilliSatoshi

	// Fee is the routing fee as reported by the node.
	Fee lnwire.MilliSatoshi

	// Attempts is the number of send calls made.
	Attempts uint32
}

// Engine drives a single payment intent. It is not safe for concurrent use,
// and Run may only be called once.
type Engine struct {
	*fsm.StateMachine

	cfg    *Config
	target *Target
	log    btclog.Logger

	backoff  *Backoff
	handle   node.PaymentHandle
	attempts uint32
	result   *Result
}

// NewEngine creates a new engine for the given target.
func NewEngine(cfg *Config, target *Target) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BackoffFloor == 0 {
		cfg.BackoffFloor = DefaultBackoffFloor
	}
	if cfg.BackoffCeiling == 0 {
		cfg.BackoffCeiling = DefaultBackoffCeiling
	}

	e := &Engine{
		cfg:     cfg,
		target:  target,
		backoff: NewBackoff(cfg.BackoffFloor, cfg.BackoffCeiling),
		log: log.WithPrefix(
			fmt.Sprintf("Payment(%x):", target.Hash[:4]),
		),
	}
	e.StateMachine = fsm.NewStateMachine(e.states())
	e.ActionEntryFunc = func(n fsm.Notification) {
		if n.PreviousState == n.NextState {
			return
		}

		e.log.Debugf("%v -> %v on %v", n.PreviousState, n.NextState,
			n.Event)
	}

	return e
}

func (e *Engine) states() fsm.States {
	return fsm.States{
		Init: fsm.State{
			Transitions: fsm.Transitions{
				OnStart: Dispatching,
			},
		},
		Dispatching: fsm.State{
			Action: e.dispatch,
			Transitions: fsm.Transitions{
				OnSent:       Watching,
				OnSendFailed: Dispatching,
				OnCanceled:   Canceled,
				fsm.OnError:  Abandoned,
			},
		},
		Watching: fsm.State{
			Action: e.watch,
			Transitions: fsm.Transitions{
				OnNotListed:     Watching,
				OnPending:       Watching,
				OnPollFailed:    Watching,
				OnSucceeded:     Succeeded,
				OnPaymentFailed: Retrying,
				OnCanceled:      Canceled,
			},
		},
		Retrying: fsm.State{
			Action: e.retry,
			Transitions: fsm.Transitions{
				OnResent:       Watching,
				OnResendFailed: Watching,
				OnCanceled:     Canceled,
				fsm.OnError:    Abandoned,
			},
		},
		Succeeded: fsm.State{
			Action: e.succeeded,
		},
		Canceled: fsm.State{
			Action: fsm.NoOpAction,
		},
		Abandoned: fsm.State{
			Action: e.abandoned,
		},
	}
}

// Run drives the payment until it succeeded. It returns the context error
// if the context is canceled first and ErrMaxAttempts if the attempt
// ceiling was hit.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.log.Infof("Starting payment %v", e.target)

	err := e.SendEvent(ctx, OnStart, nil)
	if err != nil {
		return nil, err
	}

	switch state := e.CurrentState(); state {
	case Succeeded:
		return e.result, nil

	case Canceled:
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return nil, context.Canceled

	case Abandoned:
		return nil, e.LastActionError

	default:
		return nil, fmt.Errorf("payment engine stopped in state %v",
			state)
	}
}

// Attempts returns the number of send calls made so far.
func (e *Engine) Attempts() uint32 {
	return e.attempts
}

// dispatch issues the first send and keeps retrying it, with backoff, until
// the node accepts the payment.
func (e *Engine) dispatch(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	if e.ceilingReached() {
		return e.HandleError(ErrMaxAttempts)
	}

	if err := ctx.Err(); err != nil {
		return OnCanceled
	}

	e.attempts++
	handle, err := e.cfg.Node.SendPayment(ctx, e.target.PayReq)
	if err != nil && ctx.Err() != nil {
		return OnCanceled
	}
	if err == nil {
		e.handle = handle
		e.log.Infof("Attempt %d: payment accepted, handle=%v",
			e.attempts, handle)
		e.record(ctx, paydb.OutcomeAccepted, 0, nil)

		return OnSent
	}

	delay := e.backoff.Fail()
	e.log.Warnf("Attempt %d: send failed: %v, retrying in %v",
		e.attempts, err, delay)
	e.record(ctx, paydb.OutcomeSendFailed, delay, err)

	if err := utils.Sleep(ctx, e.cfg.Clock, delay); err != nil {
		return OnCanceled
	}

	return OnSendFailed
}

// watch polls the payment list once and reports what it found for the
// current handle. All outcomes except Failed and Succeeded wait for the
// poll interval before the next poll.
func (e *Engine) watch(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	if err := ctx.Err(); err != nil {
		return OnCanceled
	}

	var event fsm.EventType

	payments, err := e.cfg.Node.ListPayments(ctx)
	if err != nil {
		e.log.Warnf("Attempt %d: unable to list payments: %v",
			e.attempts, err)

		event = OnPollFailed
	} else {
		payment := findPayment(payments, e.handle)

		switch {
		case payment == nil:
			e.log.Infof("Attempt %d: payment %v not visible yet",
				e.attempts, e.handle)

			event = OnNotListed

		case payment.State == node.PaymentSucceeded:
			e.result = &Result{
				Hash:     e.target.Hash,
				Handle:   e.handle,
				Amount:   payment.Amount,
				Fee:      payment.Fee,
				Attempts: e.attempts,
			}

			return OnSucceeded

		case payment.State == node.PaymentFailed:
			e.log.Warnf("Attempt %d: payment %v failed: %v",
				e.attempts, e.handle, payment.FailureReason)
			e.record(
				ctx, paydb.OutcomeFailed, 0,
				errors.New(payment.FailureReason),
			)

			return OnPaymentFailed

		default:
			e.log.Infof("Attempt %d: payment %v is %v",
				e.attempts, e.handle, payment.State)

			event = OnPending
		}
	}

	err = utils.Sleep(ctx, e.cfg.Clock, e.cfg.PollInterval)
	if err != nil {
		return OnCanceled
	}

	return event
}

// retry waits for the backoff delay and sends the payment once more. A
// failed send keeps the old handle, the next poll will observe it as failed
// again and trigger the next retry.
func (e *Engine) retry(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	if e.ceilingReached() {
		return e.HandleError(ErrMaxAttempts)
	}

	delay := e.backoff.Fail()
	e.log.Infof("Resending in %v", delay)

	if err := utils.Sleep(ctx, e.cfg.Clock, delay); err != nil {
		return OnCanceled
	}

	e.attempts++
	event := OnResent

	handle, err := e.cfg.Node.SendPayment(ctx, e.target.PayReq)
	switch {
	case err != nil && ctx.Err() != nil:
		return OnCanceled

	case err != nil:
		e.log.Warnf("Attempt %d: resend failed, still watching %v: %v",
			e.attempts, e.handle, err)
		e.record(ctx, paydb.OutcomeSendFailed, delay, err)

		event = OnResendFailed

	default:
		e.log.Infof("Attempt %d: payment accepted, handle=%v "+
			"(was %v)", e.attempts, handle, e.handle)

		e.handle = handle
		e.record(ctx, paydb.OutcomeAccepted, delay, nil)
	}

	err = utils.Sleep(ctx, e.cfg.Clock, e.cfg.PollInterval)
	if err != nil {
		return OnCanceled
	}

	return event
}

func (e *Engine) succeeded(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	e.log.Infof("Payment succeeded after %d attempt(s): handle=%v "+
		"amount=%v fee=%v", e.attempts, e.handle, e.result.Amount,
		e.result.Fee)

	e.record(ctx, paydb.OutcomeSucceeded, 0, nil)

	return fsm.NoOp
}

func (e *Engine) abandoned(ctx context.Context,
	_ fsm.EventContext) fsm.EventType {

	e.log.Errorf("Giving up after %d attempt(s)", e.attempts)
	e.record(ctx, paydb.OutcomeAbandoned, 0, e.LastActionError)

	return fsm.NoOp
}

func (e *Engine) ceilingReached() bool {
	return e.cfg.MaxAttempts != 0 && e.attempts >= e.cfg.MaxAttempts
}

// record writes a journal entry. The journal is best effort, a failing
// store never interrupts the payment.
func (e *Engine) record(ctx context.Context, outcome paydb.Outcome,
	delay time.Duration, err error) {

	if e.cfg.Store == nil {
		return
	}

	attempt := &paydb.Attempt{
		Hash:    e.target.Hash,
		Number:  e.attempts,
		Handle:  string(e.handle),
		Outcome: outcome,
		Delay:   delay,
		Time:    e.cfg.Clock.Now(),
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	if outcome == paydb.OutcomeSucceeded {
		attempt.Amount = e.result.Amount
	}

	// The journal must still be written after a cancellation.
	ctx = context.WithoutCancel(ctx)
	if err := e.cfg.Store.RecordAttempt(ctx, attempt); err != nil {
		e.log.Errorf("Unable to journal attempt: %v", err)
	}
}

// findPayment returns the payment with the given handle or nil.
func findPayment(payments []node.Payment,
	handle node.PaymentHandle) *node.Payment {

	for i := range payments {
		if payments[i].Handle == handle {
			return &payments[i]
		}
	}

	return nil
}
