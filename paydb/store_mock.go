package paydb

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/lightningnetwork/lnd/lntypes"
)

// StoreMock is an in-memory Store for tests.
type StoreMock struct {
	mu       sync.Mutex
	payments map[lntypes.Hash][]*Attempt
	sweeps   []*Sweep

	// Err, if set, is returned by every Record call.
	Err error
}

// A compile time check to ensure StoreMock implements the Store interface.
var _ Store = (*StoreMock)(nil)

// NewStoreMock creates a new empty in-memory store.
func NewStoreMock() *StoreMock {
	return &StoreMock{
		payments: make(map[lntypes.Hash][]*Attempt),
	}
}

// RecordAttempt appends an entry to the journal of a payment intent.
func (s *StoreMock) RecordAttempt(_ context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	cp := *attempt
	s.payments[attempt.Hash] = append(s.payments[attempt.Hash], &cp)

	return nil
}

// FetchPayments returns the journals of all payment intents, ordered by
// payment hash.
func (s *StoreMock) FetchPayments(_ context.Context) ([]*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments := make([]*Payment, 0, len(s.payments))
	for hash, attempts := range s.payments {
		payments = append(payments, &Payment{
			Hash:     hash,
			Attempts: append([]*Attempt(nil), attempts...),
		})
	}

	sort.Slice(payments, func(i, j int) bool {
		return bytes.Compare(
			payments[i].Hash[:], payments[j].Hash[:],
		) < 0
	})

	return payments, nil
}

// RecordSweep appends a sweep to the journal.
func (s *StoreMock) RecordSweep(_ context.Context, sweep *Sweep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	cp := *sweep
	s.sweeps = append(s.sweeps, &cp)

	return nil
}

// FetchSweeps returns all journaled sweeps in insertion order.
func (s *StoreMock) FetchSweeps(_ context.Context) ([]*Sweep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*Sweep(nil), s.sweeps...), nil
}

// Close is a no-op.
func (s *StoreMock) Close() error {
	return nil
}
