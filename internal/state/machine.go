package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSessionNotFound indicates that a dialog session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLocked indicates that a concurrent operation already holds the lock.
	ErrSessionLocked = errors.New("session is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Machine describes the operations supported by the session controller.
type Machine interface {
	GetSession(ctx context.Context, userID int64) (*Session, error)
	PutSession(ctx context.Context, session *Session) error
	Advance(ctx context.Context, session *Session, to State) error
	ClearSession(ctx context.Context, userID int64) error
	GetAllSessions(ctx context.Context) ([]*Session, error)
	WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}

// lockHeldKey marks a context whose caller already holds the user's dialog
// lock, so nested machine operations do not re-acquire it.
type lockHeldKey struct{}

func lockHeld(ctx context.Context, userID int64) bool {
	held, ok := ctx.Value(lockHeldKey{}).(int64)
	return ok && held == userID
}

// machine is a concrete implementation of Machine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewMachine creates a session controller using the provided storage backend
// and redis client for per-user locking.
func NewMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) Machine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

// GetSession proxies to the underlying storage implementation.
func (m *machine) GetSession(ctx context.Context, userID int64) (*Session, error) {
	return m.storage.GetSession(ctx, userID)
}

// GetAllSessions returns every persisted session.
func (m *machine) GetAllSessions(ctx context.Context) ([]*Session, error) {
	return m.storage.GetAllSessions(ctx)
}

// PutSession persists the session as-is under a distributed lock. The state
// field is not validated; use Advance when the state changes.
func (m *machine) PutSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("nil session")
	}

	if err := m.lock(ctx, session.UserID); err != nil {
		return err
	}
	defer m.unlock(ctx, session.UserID)

	return m.storage.SetSession(ctx, session.UserID, session)
}

// Advance moves the session to a new state if the transition is allowed and
// persists the whole session, guarded by a lock. Validity is checked against
// the state last persisted for this user, not the in-memory copy.
func (m *machine) Advance(ctx context.Context, session *Session, to State) error {
	if session == nil {
		return errors.New("nil session")
	}

	if err := m.lock(ctx, session.UserID); err != nil {
		return err
	}
	defer m.unlock(ctx, session.UserID)

	current := StateIdle

	stored, err := m.storage.GetSession(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	} else if stored != nil {
		current = stored.CurrentState
	}

	if !IsTransitionAllowed(current, to) {
		m.log.Warn("invalid state transition", "user_id", session.UserID, "from", current, "to", to)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(to))

	session.CurrentState = to

	return m.storage.SetSession(ctx, session.UserID, session)
}

// ClearSession removes the stored session via the backing storage while holding the lock.
func (m *machine) ClearSession(ctx context.Context, userID int64) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.storage.ClearSession(ctx, userID)
}

// WithLock runs fn while holding the user's dialog lock, serializing the
// whole load-mutate-persist cycle of a handler against concurrent updates
// from the same user. Machine operations inside fn reuse the held lock.
func (m *machine) WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	if lockHeld(ctx, userID) {
		return fn(ctx)
	}

	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return fn(context.WithValue(ctx, lockHeldKey{}, userID))
}

func (m *machine) lock(ctx context.Context, userID int64) error {
	if lockHeld(ctx, userID) {
		return nil
	}

	if m.redisClient == nil {
		m.log.Warn("redis client not configured for session locks; skipping", "user_id", userID)
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		m.log.Warn("session lock already held", "user_id", userID)
		return ErrSessionLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, userID int64) {
	if lockHeld(ctx, userID) || m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release session lock", "user_id", userID, "error", err)
	}
}
