package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	args := m.Called(ctx, userID)
	session, _ := args.Get(0).(*Session)
	return session, args.Error(1)
}

func (m *mockStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	args := m.Called(ctx, userID, session)
	return args.Error(0)
}

func (m *mockStorage) ClearSession(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllSessions(ctx context.Context) ([]*Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*Session)
	return sessions, args.Error(1)
}

func TestMachine_Advance(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "successful transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, CurrentState: StateChoosingFirmType}, nil).Once()
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(session *Session) bool {
					return session.CurrentState == StateEnteringFirmName
				})).Return(nil).Once()
			},
			newState:    StateEnteringFirmName,
			expectedErr: nil,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, CurrentState: StateIdle}, nil).Once()
			},
			newState:    StateReviewingPost,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new user starts pipeline",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), ErrSessionNotFound).Once()
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(session *Session) bool {
					return session.CurrentState == StateChoosingFirmType
				})).Return(nil).Once()
			},
			newState:    StateChoosingFirmType,
			expectedErr: nil,
		},
		{
			name: "validation against stored state, not in-memory copy",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, CurrentState: StateEnteringSalary}, nil).Once()
				ms.On("SetSession", mock.Anything, userID, mock.Anything).Return(nil).Once()
			},
			newState:    StateEnteringContacts,
			expectedErr: nil,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.Advance(ctx, &Session{UserID: userID}, tc.newState)

			if tc.expectedErr != nil {
				if err == nil || err != tc.expectedErr {
					t.Fatalf("expected error %v, got %v", tc.expectedErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_AdvanceKeepsDraft(t *testing.T) {
	ctx := context.Background()
	userID := int64(9)

	ms := &mockStorage{}
	ms.On("GetSession", mock.Anything, userID).
		Return(&Session{UserID: userID, CurrentState: StateEnteringFirmName}, nil).Once()
	ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(session *Session) bool {
		return session.CurrentState == StateEnteringJobTitle && session.Draft.FirmName == "ООО Ромашка"
	})).Return(nil).Once()

	fsm := NewMachine(ms, testLogger(), nil)

	session := &Session{
		UserID: userID,
		Draft: domain.Draft{
			Type:     domain.TypeJobOffer,
			FirmType: domain.FirmLegal,
			FirmName: "ООО Ромашка",
		},
	}

	if err := fsm.Advance(ctx, session, StateEnteringJobTitle); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ms.AssertExpectations(t)
}

func TestMachine_PutSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(11)
	log := testLogger()

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		expectErr  error
	}{
		{
			name: "put session success",
			setupMocks: func(ms *mockStorage) {
				ms.On("SetSession", mock.Anything, userID, mock.MatchedBy(func(session *Session) bool {
					return session.CurrentState == StateEnteringAdText
				})).Return(nil).Once()
			},
			expectErr: nil,
		},
		{
			name: "put session error",
			setupMocks: func(ms *mockStorage) {
				ms.On("SetSession", mock.Anything, userID, mock.Anything).
					Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.PutSession(ctx, &Session{UserID: userID, CurrentState: StateEnteringAdText})

			if tc.expectErr != nil {
				if err == nil || err != tc.expectErr {
					t.Fatalf("expected error %v, got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_ClearSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(13)
	log := testLogger()

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		expectErr  error
	}{
		{
			name: "clear session success",
			setupMocks: func(ms *mockStorage) {
				ms.On("ClearSession", mock.Anything, userID).
					Return(nil).Once()
			},
			expectErr: nil,
		},
		{
			name: "clear session error",
			setupMocks: func(ms *mockStorage) {
				ms.On("ClearSession", mock.Anything, userID).
					Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewMachine(ms, log, nil)
			err := fsm.ClearSession(ctx, userID)

			if tc.expectErr != nil {
				if err == nil || err != tc.expectErr {
					t.Fatalf("expected error %v, got %v", tc.expectErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_Lock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(100 * time.Millisecond)
	fsm := NewMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := int64(77)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.PutSession(ctx, &Session{UserID: userID, CurrentState: StateChoosingFirmType})
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, ErrSessionLocked) {
			locked++
			continue
		}

		t.Fatalf("unexpected error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected 1 successful save, got %d", success)
	}
	if locked != 1 {
		t.Fatalf("expected 1 locked save, got %d", locked)
	}
}

func TestMachine_WithLockReentrant(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(0)
	fsm := NewMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := int64(78)

	// nested machine operations reuse the held lock instead of deadlocking
	err := fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		if err := fsm.Advance(ctx, &Session{UserID: userID}, StateChoosingFirmType); err != nil {
			return err
		}
		return fsm.Advance(ctx, &Session{UserID: userID}, StateEnteringFirmName)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	session, err := storage.GetSession(ctx, userID)
	if err != nil {
		t.Fatalf("expected session, got %v", err)
	}
	if session.CurrentState != StateEnteringFirmName {
		t.Fatalf("expected %s, got %s", StateEnteringFirmName, session.CurrentState)
	}

	// the lock is released once the outer call returns
	if err := fsm.PutSession(ctx, &Session{UserID: userID, CurrentState: StateEnteringFirmName}); err != nil {
		t.Fatalf("expected lock released, got %v", err)
	}
}

func TestMachine_WithLockSerializesHandlers(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(0)
	fsm := NewMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := int64(79)

	entered := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- fsm.WithLock(ctx, userID, func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered

	// a second update from the same user cannot enter the critical section
	err := fsm.WithLock(ctx, userID, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("expected no error from lock holder, got %v", err)
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type inMemoryStorage struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	delay    time.Duration
}

func newInMemoryStorage(delay time.Duration) *inMemoryStorage {
	return &inMemoryStorage{
		sessions: make(map[int64]*Session),
		delay:    delay,
	}
}

func (s *inMemoryStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (s *inMemoryStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = cloneSession(session)
	return nil
}

func (s *inMemoryStorage) ClearSession(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *inMemoryStorage) GetAllSessions(ctx context.Context) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, cloneSession(session))
	}
	return result, nil
}

func cloneSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	copied := *session
	if session.DelayedSlots != nil {
		slots := make(map[int]string, len(session.DelayedSlots))
		for k, v := range session.DelayedSlots {
			slots[k] = v
		}
		copied.DelayedSlots = slots
	}
	return &copied
}
