package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()
	session := &Session{
		UserID:       123,
		CurrentState: StateEnteringSalary,
		Draft: domain.Draft{
			Type:     domain.TypeJobOffer,
			FirmType: domain.FirmIP,
			FirmName: "ИП Иванов",
			JobTitle: "Сварщик",
		},
	}

	err := storage.SetSession(ctx, session.UserID, session)
	assert.NoError(t, err)

	result, err := storage.GetSession(ctx, session.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, session.UserID, result.UserID)
		assert.Equal(t, session.CurrentState, result.CurrentState)
		assert.Equal(t, session.Draft, result.Draft)
	}
}

func TestRedisStorage_SlotsSurviveRoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger())

	ctx := context.Background()
	session := NewSession(321)
	session.CurrentState = StateChoosingDelayedSlot
	session.SetSlot(1, "05.09.2026 10:30")
	session.SetSlot(3, "06.09.2026 18:00")

	err := storage.SetSession(ctx, session.UserID, session)
	assert.NoError(t, err)

	result, err := storage.GetSession(ctx, session.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, session.DelayedSlots, result.DelayedSlots)
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()

	session, err := storage.GetSession(ctx, 999)
	assert.Nil(t, session)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_ClearSession(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()
	session := &Session{
		UserID:       456,
		CurrentState: StateEnteringAdText,
	}

	err := storage.SetSession(ctx, session.UserID, session)
	assert.NoError(t, err)

	err = storage.ClearSession(ctx, session.UserID)
	assert.NoError(t, err)

	result, err := storage.GetSession(ctx, session.UserID)
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_GetAllSessions(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger())

	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		session := NewSession(id)
		session.CurrentState = StateChoosingFirmType
		assert.NoError(t, storage.SetSession(ctx, id, session))
	}

	sessions, err := storage.GetAllSessions(ctx)
	assert.NoError(t, err)
	assert.Len(t, sessions, 3)
}
