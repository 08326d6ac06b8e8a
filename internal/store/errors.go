package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound is returned when no record matches the requested ID or index value.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when creating a record whose ID is already taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrEmailExists is returned when a user's email address is already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrTxnConflict is returned from Commit when a concurrent transaction wrote
	// a document this transaction read. The transaction is discarded; callers
	// may retry from the top.
	ErrTxnConflict = errors.New("transaction conflict")
	// ErrTxnTimeout is returned from Commit when the commit deadline elapsed.
	// None of the transaction's writes are guaranteed visible; treat as failed.
	ErrTxnTimeout = errors.New("transaction commit timed out")
	// ErrTxnDone is returned when operating on a committed or aborted transaction.
	ErrTxnDone = errors.New("transaction already finished")
	// ErrUnavailable is returned when the underlying database is closed or
	// refusing writes. Callers must surface it, never swallow it.
	ErrUnavailable = errors.New("store unavailable")
)

// translate maps Badger errors onto store sentinels.
// Unknown errors pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return ErrTxnConflict
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, badger.ErrBlockedWrites):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}
