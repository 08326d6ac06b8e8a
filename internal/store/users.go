package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/placepinapp/placepin-server/internal/domain"
)

// CreateUser creates a new user account.
// Returns ErrEmailExists if the email address is already taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.Users.Create(ctx, user.ID, user)
	if errors.Is(err, ErrAlreadyExists) && user.ID != "" {
		// Distinguish an email collision from an ID collision; the email
		// index is the only unique index on users.
		if _, lookupErr := s.Users.Get(ctx, user.ID); errors.Is(lookupErr, ErrNotFound) {
			return ErrEmailExists
		}
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserIn retrieves a user by ID through an open transaction.
// The read participates in conflict detection: if another transaction
// commits a change to this user first, this transaction's commit fails.
func (s *Store) GetUserIn(tx *Tx, id string) (*domain.User, error) {
	return s.Users.GetIn(tx, id)
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// UpdateUser updates an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Touch()
	return s.Users.Update(ctx, user.ID, user)
}

// UpdateUserIn stages a user update into an open transaction.
// This is the only path that may modify a user's place list.
func (s *Store) UpdateUserIn(tx *Tx, user *domain.User) error {
	user.Touch()
	return s.Users.UpdateIn(tx, user.ID, user)
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for user, err := range s.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}
