package paydb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
	"go.etcd.io/bbolt"
)

var (
	// dbFileName is the default file name of the journal.
	dbFileName = "journal.db"

	// paymentsBucketKey is a bucket that contains a sub-bucket per payment
	// intent, keyed by the payment hash.
	//
	// maps: paymentHash -> paymentBucket
	paymentsBucketKey = []byte("payments")

	// attemptsBucketKey is the bucket inside a payment bucket that holds
	// the journal entries of the intent. This list only ever grows.
	//
	// path: paymentsBucket -> paymentBucket[hash] -> attemptsBucket
	//
	// maps: sequence -> serialized attempt
	attemptsBucketKey = []byte("attempts")

	// sweepsBucketKey is a bucket that contains all journaled sweeps.
	//
	// maps: sequence -> serialized sweep
	sweepsBucketKey = []byte("sweeps")

	// openTimeout bounds how long we wait for the file lock of a journal
	// that is held by another process.
	openTimeout = 5 * time.Second
)

// BoltStore stores the journal in a bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

// A compile time check to ensure BoltStore implements the Store interface.
var _ Store = (*BoltStore)(nil)

// NewBoltStore opens the journal in the given directory, creating the
// directory and the file if needed.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, err
	}

	path := filepath.Join(dbPath, dbFileName)
	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: openTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open journal %v: %w", path,
			err)
	}

	// We'll create all the buckets we need if this is the first time we're
	// starting up. If they already exist, then these calls will be noops.
	err = bdb.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(metaBucketKey) == nil {
			log.Infof("Initializing new journal with version %v",
				latestDBVersion)

			err := setDBVersion(tx, latestDBVersion)
			if err != nil {
				return err
			}
		}

		_, err := tx.CreateBucketIfNotExists(paymentsBucketKey)
		if err != nil {
			return err
		}

		_, err = tx.CreateBucketIfNotExists(sweepsBucketKey)

		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	if err := checkVersion(bdb); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &BoltStore{
		db: bdb,
	}, nil
}

// RecordAttempt appends an entry to the journal of a payment intent.
func (s *BoltStore) RecordAttempt(_ context.Context, attempt *Attempt) error {
	value, err := serializeAttempt(attempt)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(paymentsBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		paymentBucket, err := rootBucket.CreateBucketIfNotExists(
			attempt.Hash[:],
		)
		if err != nil {
			return err
		}

		attemptsBucket, err := paymentBucket.CreateBucketIfNotExists(
			attemptsBucketKey,
		)
		if err != nil {
			return err
		}

		// Each entry gets a new monotonically increasing id, so that
		// the bucket iterates in insertion order.
		id, err := attemptsBucket.NextSequence()
		if err != nil {
			return err
		}

		return attemptsBucket.Put(itob(id), value)
	})
}

// FetchPayments returns the journals of all payment intents, ordered by
// payment hash.
func (s *BoltStore) FetchPayments(_ context.Context) ([]*Payment, error) {
	var payments []*Payment

	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(paymentsBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		return rootBucket.ForEach(func(k, v []byte) error {
			// Only go into things that we know are sub-bucket
			// keys.
			if v != nil {
				return nil
			}

			hash, err := lntypes.MakeHash(k)
			if err != nil {
				return err
			}

			attemptsBucket := rootBucket.Bucket(k).Bucket(
				attemptsBucketKey,
			)
			if attemptsBucket == nil {
				return fmt.Errorf("attempts bucket not found "+
					"for %v", hash)
			}

			payment := &Payment{
				Hash: hash,
			}
			err = attemptsBucket.ForEach(func(_, v []byte) error {
				attempt, err := deserializeAttempt(v)
				if err != nil {
					return err
				}
				attempt.Hash = hash

				payment.Attempts = append(
					payment.Attempts, attempt,
				)

				return nil
			})
			if err != nil {
				return err
			}

			payments = append(payments, payment)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// RecordSweep appends a sweep to the journal.
func (s *BoltStore) RecordSweep(_ context.Context, sweep *Sweep) error {
	value, err := serializeSweep(sweep)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sweepsBucketKey)
		if bucket == nil {
			return errors.New("bucket does not exist")
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		return bucket.Put(itob(id), value)
	})
}

// FetchSweeps returns all journaled sweeps in insertion order.
func (s *BoltStore) FetchSweeps(_ context.Context) ([]*Sweep, error) {
	var sweeps []*Sweep

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sweepsBucketKey)
		if bucket == nil {
			return errors.New("bucket does not exist")
		}

		return bucket.ForEach(func(_, v []byte) error {
			sweep, err := deserializeSweep(v)
			if err != nil {
				return err
			}

			sweeps = append(sweeps, sweep)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return sweeps, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
