// Package store persists Place and User documents in BadgerDB and provides
// the transaction coordinator that keeps their cross-references consistent.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/placepinapp/placepin-server/internal/domain"
)

const (
	userPrefix    = "user:"
	placePrefix   = "place:"
	sessionPrefix = "session:"
)

// Store wraps a Badger database instance.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	txnOpts TxnOptions

	// Generic entities
	Users    *Entity[domain.User]
	Places   *Entity[domain.Place]
	Sessions *Entity[domain.Session]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger, txnOpts TxnOptions) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:      db,
		logger:  logger,
		txnOpts: txnOpts,
	}

	store.initUsers()
	store.initPlaces()
	store.initSessions()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initUsers initializes the Users entity on the store.
// Uses case-insensitive email indexing via normalizeEmail transformation.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, userPrefix).
		WithUniqueIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail, // Transform lookups to be case-insensitive
		)
}

// initPlaces initializes the Places entity on the store.
// The creator index supports the places-by-user lookup without scanning.
func (s *Store) initPlaces() {
	s.Places = NewEntity[domain.Place](s, placePrefix).
		WithIndex("creator", func(p *domain.Place) []string {
			return []string{p.CreatorID}
		})
}

// initSessions initializes the Sessions entity on the store.
// Indexed by user (listing a user's sessions) and by refresh token hash (login refresh).
func (s *Store) initSessions() {
	s.Sessions = NewEntity[domain.Session](s, sessionPrefix).
		WithIndex("user", func(sess *domain.Session) []string {
			return []string{sess.UserID}
		}).
		WithUniqueIndex("token", func(sess *domain.Session) []string {
			return []string{sess.RefreshTokenHash}
		})
}

// normalizeEmail normalizes an email address for consistent lookups.
// Lowercases and trims whitespace.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
