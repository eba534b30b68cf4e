package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// PaymentRepository defines persistence operations for top-up payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Complete(ctx context.Context, id int64, transactionID string, completedAt time.Time) error
	Fail(ctx context.Context, id int64) error
}

type paymentRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPaymentRepository creates a new SQL-backed payment repository.
func NewPaymentRepository(db *sql.DB, log *slog.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log,
	}
}

// Create persists a pending payment and fills in its identifier.
func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
		INSERT INTO payments (user_id, amount, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		payment.UserID,
		payment.Amount,
		payment.Status,
		payment.Method,
		payment.CreatedAt,
	).Scan(&payment.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create payment", slog.Int64("user_id", payment.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// Complete marks a payment as completed with the provider transaction identifier.
func (r *paymentRepository) Complete(ctx context.Context, id int64, transactionID string, completedAt time.Time) error {
	const query = `
		UPDATE payments
		SET status = $2, transaction_id = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.PaymentCompleted, transactionID, completedAt, domain.PaymentPending)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to complete payment", slog.Int64("payment_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("complete payment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete payment rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Fail marks a pending payment as failed.
func (r *paymentRepository) Fail(ctx context.Context, id int64) error {
	const query = `
		UPDATE payments
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	if _, err := r.db.ExecContext(ctx, query, id, domain.PaymentFailed, domain.PaymentPending); err != nil {
		if r.log != nil {
			r.log.Error("failed to mark payment failed", slog.Int64("payment_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("fail payment: %w", err)
	}

	return nil
}
