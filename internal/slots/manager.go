// Package slots manages the three delayed-publication slots: which ones the
// balance unlocks, filling and clearing them in the session, and turning the
// filled set into paid one-shot jobs.
package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/pricing"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

// DateTimeLayout is the user-facing slot datetime format.
const DateTimeLayout = "02.01.2006 15:04"

// MaxSlots is the number of delayed-publication slots per order.
const MaxSlots = 3

var (
	// ErrSlotOutOfRange indicates a slot index outside 1..MaxSlots.
	ErrSlotOutOfRange = errors.New("slot index out of range")
	// ErrSlotLocked indicates the balance does not unlock the requested slot.
	ErrSlotLocked = errors.New("slot not unlocked by balance")
	// ErrNoSlotsFilled indicates a confirm attempt with every slot empty.
	ErrNoSlotsFilled = errors.New("no slots filled")
)

// JobScheduler registers one-shot publication jobs.
type JobScheduler interface {
	ScheduleOnce(ctx context.Context, userID int64, pubType domain.PublicationType, text string, runAt time.Time) (string, error)
}

// Manager coordinates slot state against the balance and the scheduler.
type Manager struct {
	ledger    ledger.Ledger
	scheduler JobScheduler
	loc       *time.Location
	log       *slog.Logger
}

// NewManager creates a slot manager. The location interprets slot datetimes.
func NewManager(l ledger.Ledger, s JobScheduler, loc *time.Location, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Manager{
		ledger:    l,
		scheduler: s,
		loc:       loc,
		log:       log,
	}
}

// Available reports how many slots the user's balance unlocks for the
// service type. Admins see every slot regardless of balance.
func (m *Manager) Available(ctx context.Context, userID int64, pubType domain.PublicationType, isAdmin bool) (int, error) {
	if isAdmin {
		return MaxSlots, nil
	}

	balance, err := m.ledger.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}

	return pricing.AvailableSlots(pubType, balance), nil
}

// Fill stores a parsed datetime in the given slot. The value must be a
// valid future moment and the slot must be unlocked.
func (m *Manager) Fill(ctx context.Context, session *state.Session, slot int, value string, isAdmin bool) error {
	if slot < 1 || slot > MaxSlots {
		return ErrSlotOutOfRange
	}

	available, err := m.Available(ctx, session.UserID, session.Draft.Type, isAdmin)
	if err != nil {
		return err
	}
	if slot > available {
		return ErrSlotLocked
	}

	runAt, err := m.Parse(value)
	if err != nil {
		return err
	}
	if !runAt.After(time.Now().In(m.loc)) {
		return fmt.Errorf("slot datetime %q is in the past", value)
	}

	session.SetSlot(slot, value)
	return nil
}

// Clear empties one slot; other slots keep their values.
func (m *Manager) Clear(session *state.Session, slot int) error {
	if slot < 1 || slot > MaxSlots {
		return ErrSlotOutOfRange
	}

	session.ClearSlot(slot)
	return nil
}

// Cost returns the price of the currently filled slots.
func (m *Manager) Cost(session *state.Session) domain.Kopecks {
	return pricing.DelayedCost(session.Draft.Type, len(session.DelayedSlots))
}

// Confirm debits the slot price and registers a one-shot job per filled
// slot, in slot order. Admins are not debited. Returns the registered job
// identifiers.
func (m *Manager) Confirm(ctx context.Context, session *state.Session, isAdmin bool) ([]string, error) {
	if len(session.DelayedSlots) == 0 {
		return nil, ErrNoSlotsFilled
	}

	cost := m.Cost(session)
	if !isAdmin {
		if err := m.ledger.Debit(ctx, session.UserID, cost); err != nil {
			return nil, err
		}
	}

	text := session.Draft.Render()

	slotNumbers := make([]int, 0, len(session.DelayedSlots))
	for slot := range session.DelayedSlots {
		slotNumbers = append(slotNumbers, slot)
	}
	sort.Ints(slotNumbers)

	jobIDs := make([]string, 0, len(slotNumbers))
	for _, slot := range slotNumbers {
		runAt, err := m.Parse(session.DelayedSlots[slot])
		if err != nil {
			return jobIDs, err
		}

		jobID, err := m.scheduler.ScheduleOnce(ctx, session.UserID, session.Draft.Type, text, runAt)
		if err != nil {
			m.log.Error("failed to register slot job",
				slog.Int64("user_id", session.UserID),
				slog.Int("slot", slot),
				slog.Any("error", err),
			)
			return jobIDs, err
		}

		jobIDs = append(jobIDs, jobID)
	}

	m.log.Info("delayed slots confirmed",
		slog.Int64("user_id", session.UserID),
		slog.Int("slots", len(jobIDs)),
		slog.Int64("cost", int64(cost)),
	)

	return jobIDs, nil
}

// Parse interprets a slot datetime string in the manager's location.
func (m *Manager) Parse(value string) (time.Time, error) {
	runAt, err := time.ParseInLocation(DateTimeLayout, value, m.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot datetime %q: %w", value, err)
	}

	return runAt, nil
}
