package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// MemoryLedger is an in-memory Ledger used in tests and local runs.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[int64]domain.Kopecks
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[int64]domain.Kopecks),
	}
}

// Balance returns the current balance, zero for unknown users.
func (l *MemoryLedger) Balance(ctx context.Context, userID int64) (domain.Kopecks, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[userID], nil
}

// Credit adds funds to the user balance.
func (l *MemoryLedger) Credit(ctx context.Context, userID int64, amount domain.Kopecks) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[userID] += amount
	return nil
}

// Debit removes funds atomically or returns ErrInsufficientFunds.
func (l *MemoryLedger) Debit(ctx context.Context, userID int64, amount domain.Kopecks) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[userID] < amount {
		return ErrInsufficientFunds
	}

	l.balances[userID] -= amount
	return nil
}

// CanAfford reports whether the balance covers the given amount.
func (l *MemoryLedger) CanAfford(ctx context.Context, userID int64, amount domain.Kopecks) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[userID] >= amount, nil
}
