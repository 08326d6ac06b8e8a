package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Tx is a handle for a read-write transaction spanning any number of
// documents. All writes staged through a Tx apply atomically on Commit;
// Abort discards them. Reads through a Tx are tracked so that two concurrent
// transactions touching the same document cannot both commit (the loser gets
// ErrTxnConflict).
//
// A Tx must be resolved exactly once, with either Commit or Abort. Abort
// after Commit is a no-op, so `defer tx.Abort()` is safe.
type Tx struct {
	store *Store
	txn   *badger.Txn
	done  bool
}

// Begin opens a new read-write transaction.
func (s *Store) Begin() *Tx {
	return &Tx{store: s, txn: s.db.NewTransaction(true)}
}

// Commit atomically applies all writes staged in the transaction.
//
// The commit is bounded by the store's commit timeout (and ctx). On timeout
// the transaction is reported failed with ErrTxnTimeout. The underlying
// commit cannot be interrupted once started, so a timed-out commit may still
// apply its writes after this returns: ErrTxnTimeout means the outcome is
// unknown, not that the writes were discarded. Callers that need certainty
// must re-read state. Either way no partial subset of the writes ever
// becomes visible. Returns ErrTxnConflict when a concurrent transaction won
// a write race on a document this one read.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxnDone
	}
	tx.done = true

	ctx, cancel := context.WithTimeout(ctx, tx.store.txnOpts.CommitTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- tx.txn.Commit()
	}()

	select {
	case err := <-errCh:
		return translate(err)
	case <-ctx.Done():
		return ErrTxnTimeout
	}
}

// Abort discards the transaction and all writes staged in it.
func (tx *Tx) Abort() {
	if tx.done {
		return
	}
	tx.done = true
	tx.txn.Discard()
}

// TxnOptions tunes transaction commit behavior.
type TxnOptions struct {
	// CommitTimeout bounds how long Commit may take before the transaction
	// is reported failed.
	CommitTimeout time.Duration
	// MaxRetries is the number of times WithTxn re-runs its function after a
	// commit conflict before giving up.
	MaxRetries int
}

// DefaultTxnOptions returns the default transaction tuning.
func DefaultTxnOptions() TxnOptions {
	return TxnOptions{
		CommitTimeout: 5 * time.Second,
		MaxRetries:    3,
	}
}

// WithTxn runs fn inside a transaction and commits it, retrying the whole
// function on commit conflicts up to MaxRetries times. fn must stage all its
// writes through the supplied handle and must be safe to re-run.
//
// Any error from fn aborts the transaction and is returned unchanged. A
// commit conflict that survives all retries is returned as ErrTxnConflict.
func (s *Store) WithTxn(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 0; ; attempt++ {
		tx := s.Begin()
		if err := fn(tx); err != nil {
			tx.Abort()
			return err
		}

		err := tx.Commit(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTxnConflict) || attempt >= s.txnOpts.MaxRetries {
			return err
		}

		if s.logger != nil {
			s.logger.Debug("transaction conflict, retrying",
				"attempt", attempt+1,
				"max_retries", s.txnOpts.MaxRetries,
			)
		}
	}
}
