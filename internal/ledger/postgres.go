package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// PostgresLedger stores balances in the balances table. Debits rely on a
// single conditional UPDATE, so concurrent debits against one balance
// serialize on the row lock and only succeed while funds remain.
type PostgresLedger struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresLedger creates a SQL-backed ledger.
func NewPostgresLedger(db *sql.DB, log *slog.Logger) *PostgresLedger {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresLedger{
		db:  db,
		log: log,
	}
}

// Balance returns the current balance, zero for unknown users.
func (l *PostgresLedger) Balance(ctx context.Context, userID int64) (domain.Kopecks, error) {
	const query = `
		SELECT amount
		FROM balances
		WHERE user_id = $1
	`

	var amount domain.Kopecks
	if err := l.db.QueryRowContext(ctx, query, userID).Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		l.log.Error("failed to fetch balance", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0, fmt.Errorf("select balance: %w", err)
	}

	return amount, nil
}

// Credit adds funds to the user balance, creating the account if needed.
func (l *PostgresLedger) Credit(ctx context.Context, userID int64, amount domain.Kopecks) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	const query = `
		INSERT INTO balances (user_id, amount, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
	`

	if _, err := l.db.ExecContext(ctx, query, userID, amount); err != nil {
		l.log.Error("failed to credit balance", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("credit balance: %w", err)
	}

	return nil
}

// Debit removes funds atomically or returns ErrInsufficientFunds. The
// balance check and the subtraction happen in one statement; there is no
// window where two debits can both observe sufficient funds.
func (l *PostgresLedger) Debit(ctx context.Context, userID int64, amount domain.Kopecks) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	const query = `
		UPDATE balances
		SET amount = amount - $2, updated_at = NOW()
		WHERE user_id = $1 AND amount >= $2
	`

	result, err := l.db.ExecContext(ctx, query, userID, amount)
	if err != nil {
		l.log.Error("failed to debit balance", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("debit balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance rows affected: %w", err)
	}

	if affected == 0 {
		return ErrInsufficientFunds
	}

	return nil
}

// CanAfford reports whether the balance covers the given amount.
func (l *PostgresLedger) CanAfford(ctx context.Context, userID int64, amount domain.Kopecks) (bool, error) {
	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return false, err
	}

	return balance >= amount, nil
}
