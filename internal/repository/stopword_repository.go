package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// StopWordRepository persists the moderator-maintained stop-word list.
// It satisfies filter.Source.
type StopWordRepository interface {
	ListWords(ctx context.Context) ([]string, error)
	AddWords(ctx context.Context, words []string) error
	Clear(ctx context.Context) error
}

type stopWordRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStopWordRepository creates a new SQL-backed stop-word repository.
func NewStopWordRepository(db *sql.DB, log *slog.Logger) StopWordRepository {
	return &stopWordRepository{
		db:  db,
		log: log,
	}
}

// ListWords returns all stop words in insertion order.
func (r *stopWordRepository) ListWords(ctx context.Context) ([]string, error) {
	const query = `
		SELECT word
		FROM stop_words
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list stop words", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select stop words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("scan stop word: %w", err)
		}
		words = append(words, word)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stop words: %w", err)
	}

	return words, nil
}

// AddWords inserts the given words, skipping duplicates.
func (r *stopWordRepository) AddWords(ctx context.Context, words []string) error {
	const query = `
		INSERT INTO stop_words (word)
		VALUES ($1)
		ON CONFLICT (word) DO NOTHING
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stop words tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, word := range words {
		if _, err := tx.ExecContext(ctx, query, word); err != nil {
			if r.log != nil {
				r.log.Error("failed to insert stop word", slog.String("word", word), slog.Any("error", err))
			}
			return fmt.Errorf("insert stop word: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stop words tx: %w", err)
	}

	return nil
}

// Clear removes every stop word.
func (r *stopWordRepository) Clear(ctx context.Context) error {
	const query = `DELETE FROM stop_words`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		if r.log != nil {
			r.log.Error("failed to clear stop words", slog.Any("error", err))
		}
		return fmt.Errorf("clear stop words: %w", err)
	}

	return nil
}
