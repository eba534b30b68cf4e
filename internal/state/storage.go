// Package state manages dialog sessions and the composition state machine.
package state

import "context"

// Storage defines the persistence contract for dialog sessions.
type Storage interface {
	// GetSession returns the current session for the specified user.
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession saves the provided session for the specified user.
	SetSession(ctx context.Context, userID int64, session *Session) error
	// ClearSession removes the session for the specified user.
	ClearSession(ctx context.Context, userID int64) error
	// GetAllSessions returns every persisted session.
	GetAllSessions(ctx context.Context) ([]*Session, error)
}
