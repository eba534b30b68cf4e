// Package ledger manages prepaid user balances. All amounts are integer
// kopecks; debits are atomic and never leave a balance negative.
package ledger

import (
	"context"
	"errors"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// ErrInsufficientFunds indicates that a debit would overdraw the balance.
// No partial debit is applied.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger defines balance operations for a single currency.
type Ledger interface {
	// Balance returns the current balance, zero for unknown users.
	Balance(ctx context.Context, userID int64) (domain.Kopecks, error)
	// Credit adds funds to the user balance, creating the account if needed.
	Credit(ctx context.Context, userID int64, amount domain.Kopecks) error
	// Debit removes funds atomically or returns ErrInsufficientFunds.
	Debit(ctx context.Context, userID int64, amount domain.Kopecks) error
	// CanAfford reports whether the balance covers the given amount.
	CanAfford(ctx context.Context, userID int64, amount domain.Kopecks) (bool, error)
}
