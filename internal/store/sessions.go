package store

import (
	"context"
	"fmt"
	"time"

	"github.com/placepinapp/placepin-server/internal/domain"
)

// CreateSession creates a new login session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return s.Sessions.Create(ctx, session.ID, session)
}

// GetSessionByTokenHash retrieves a session by its refresh token hash.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return s.Sessions.GetByIndex(ctx, "token", tokenHash)
}

// ListUserSessions returns every session belonging to the user.
func (s *Store) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions := []*domain.Session{}
	for session, err := range s.Sessions.FindByIndex(ctx, "user", userID) {
		if err != nil {
			return nil, fmt.Errorf("list sessions for user: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// UpdateSession updates an existing session.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	return s.Sessions.Update(ctx, session.ID, session)
}

// DeleteSession removes a session. Idempotent.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, id)
}

// DeleteExpiredSessions removes all sessions past their expiry.
// Returns the number of sessions removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	var expired []string
	now := time.Now()
	for session, err := range s.Sessions.List(ctx) {
		if err != nil {
			return 0, fmt.Errorf("list sessions: %w", err)
		}
		if now.After(session.ExpiresAt) {
			expired = append(expired, session.ID)
		}
	}

	for _, id := range expired {
		if err := s.Sessions.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("delete expired session: %w", err)
		}
	}

	return len(expired), nil
}
