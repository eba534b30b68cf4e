package slots

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

type fakeScheduler struct {
	jobs   []time.Time
	nextID int
	err    error
}

func (s *fakeScheduler) ScheduleOnce(ctx context.Context, userID int64, pubType domain.PublicationType, text string, runAt time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	s.nextID++
	s.jobs = append(s.jobs, runAt)
	return "single_1_" + time.Now().Format("150405") + string(rune('a'+s.nextID)), nil
}

func newTestManager(t *testing.T) (*Manager, *ledger.MemoryLedger, *fakeScheduler) {
	t.Helper()

	l := ledger.NewMemoryLedger()
	s := &fakeScheduler{}
	m := NewManager(l, s, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return m, l, s
}

func futureSlot(t *testing.T, d time.Duration) string {
	t.Helper()
	return time.Now().UTC().Add(d).Format(DateTimeLayout)
}

func adSession(userID int64) *state.Session {
	s := state.NewSession(userID)
	s.Draft = domain.Draft{
		Type:     domain.TypeAdvertisement,
		FirmType: domain.FirmIP,
		FirmName: "ИП Иванов",
		AdText:   "Продаю гараж",
		Contacts: "+79130000000",
	}
	return s
}

func TestManager_Available(t *testing.T) {
	ctx := context.Background()
	m, l, _ := newTestManager(t)

	available, err := m.Available(ctx, 1, domain.TypeAdvertisement, false)
	require.NoError(t, err)
	assert.Equal(t, 0, available)

	require.NoError(t, l.Credit(ctx, 1, domain.Rub(256)))

	available, err = m.Available(ctx, 1, domain.TypeAdvertisement, false)
	require.NoError(t, err)
	assert.Equal(t, 2, available)

	// admins bypass the balance gate
	available, err = m.Available(ctx, 1, domain.TypeAdvertisement, true)
	require.NoError(t, err)
	assert.Equal(t, MaxSlots, available)
}

func TestManager_Fill(t *testing.T) {
	ctx := context.Background()
	m, l, _ := newTestManager(t)
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(160)))

	session := adSession(1)

	require.NoError(t, m.Fill(ctx, session, 1, futureSlot(t, time.Hour), false))
	assert.Len(t, session.DelayedSlots, 1)

	// slot 2 needs a bigger balance
	err := m.Fill(ctx, session, 2, futureSlot(t, time.Hour), false)
	assert.ErrorIs(t, err, ErrSlotLocked)

	// out of range
	assert.ErrorIs(t, m.Fill(ctx, session, 0, futureSlot(t, time.Hour), false), ErrSlotOutOfRange)
	assert.ErrorIs(t, m.Fill(ctx, session, 4, futureSlot(t, time.Hour), false), ErrSlotOutOfRange)

	// past datetime rejected
	assert.Error(t, m.Fill(ctx, session, 1, "01.01.2020 10:00", false))

	// garbage rejected
	assert.Error(t, m.Fill(ctx, session, 1, "tomorrow", false))
}

func TestManager_ClearKeepsOtherSlots(t *testing.T) {
	ctx := context.Background()
	m, l, _ := newTestManager(t)
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(384)))

	session := adSession(1)
	require.NoError(t, m.Fill(ctx, session, 1, futureSlot(t, time.Hour), false))
	require.NoError(t, m.Fill(ctx, session, 2, futureSlot(t, 2*time.Hour), false))

	require.NoError(t, m.Clear(session, 1))

	assert.Len(t, session.DelayedSlots, 1)
	_, ok := session.DelayedSlots[2]
	assert.True(t, ok)
}

func TestManager_Cost(t *testing.T) {
	ctx := context.Background()
	m, l, _ := newTestManager(t)
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(384)))

	session := adSession(1)
	assert.Equal(t, domain.Kopecks(0), m.Cost(session))

	require.NoError(t, m.Fill(ctx, session, 1, futureSlot(t, time.Hour), false))
	assert.Equal(t, domain.Rub(160), m.Cost(session))

	require.NoError(t, m.Fill(ctx, session, 2, futureSlot(t, 2*time.Hour), false))
	assert.Equal(t, domain.Rub(256), m.Cost(session))
}

func TestManager_Confirm(t *testing.T) {
	ctx := context.Background()
	m, l, sched := newTestManager(t)
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(256)))

	session := adSession(1)
	require.NoError(t, m.Fill(ctx, session, 1, futureSlot(t, time.Hour), false))
	require.NoError(t, m.Fill(ctx, session, 2, futureSlot(t, 2*time.Hour), false))

	jobIDs, err := m.Confirm(ctx, session, false)
	require.NoError(t, err)
	assert.Len(t, jobIDs, 2)
	assert.Len(t, sched.jobs, 2)

	// two-slot package for an advertisement costs exactly the balance
	balance, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Kopecks(0), balance)

	// jobs registered in slot order
	assert.True(t, sched.jobs[0].Before(sched.jobs[1]))
}

func TestManager_ConfirmEmpty(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	_, err := m.Confirm(ctx, adSession(1), false)
	assert.ErrorIs(t, err, ErrNoSlotsFilled)
}

func TestManager_ConfirmInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m, l, sched := newTestManager(t)
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(160)))

	session := adSession(1)
	require.NoError(t, m.Fill(ctx, session, 1, futureSlot(t, time.Hour), false))

	// balance drains between fill and confirm
	require.NoError(t, l.Debit(ctx, 1, domain.Rub(100)))

	_, err := m.Confirm(ctx, session, false)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Empty(t, sched.jobs)

	// nothing was debited on failure
	balance, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Rub(60), balance)
}
