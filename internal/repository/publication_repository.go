package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// PublicationRepository defines persistence operations for publications.
type PublicationRepository interface {
	Create(ctx context.Context, pub *domain.Publication) error
	MarkPublished(ctx context.Context, id int64, messageID int, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64) error
	FindByUser(ctx context.Context, userID int64, limit int) ([]*domain.Publication, error)
}

type publicationRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPublicationRepository creates a new SQL-backed publication repository.
func NewPublicationRepository(db *sql.DB, log *slog.Logger) PublicationRepository {
	return &publicationRepository{
		db:  db,
		log: log,
	}
}

// Create persists a new publication record and fills in its identifier.
func (r *publicationRepository) Create(ctx context.Context, pub *domain.Publication) error {
	const query = `
		INSERT INTO publications (user_id, type, firm_type, firm_name, text, cost, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		pub.UserID,
		pub.Type,
		pub.FirmType,
		pub.FirmName,
		pub.Text,
		pub.Cost,
		pub.Status,
		pub.CreatedAt,
	).Scan(&pub.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create publication", slog.Int64("user_id", pub.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert publication: %w", err)
	}

	return nil
}

// MarkPublished finalizes a publication after a successful feed send.
// Status moves forward only; a published record is never downgraded.
func (r *publicationRepository) MarkPublished(ctx context.Context, id int64, messageID int, publishedAt time.Time) error {
	const query = `
		UPDATE publications
		SET status = $2, message_id = $3, published_at = $4
		WHERE id = $1 AND status NOT IN ($2, $5)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		id,
		domain.StatusPublished,
		messageID,
		publishedAt,
		domain.StatusFailed,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to mark publication published", slog.Int64("publication_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("mark publication published: %w", err)
	}

	return nil
}

// MarkFailed records a failed feed send.
func (r *publicationRepository) MarkFailed(ctx context.Context, id int64) error {
	const query = `
		UPDATE publications
		SET status = $2
		WHERE id = $1 AND status <> $3
	`

	if _, err := r.db.ExecContext(ctx, query, id, domain.StatusFailed, domain.StatusPublished); err != nil {
		if r.log != nil {
			r.log.Error("failed to mark publication failed", slog.Int64("publication_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("mark publication failed: %w", err)
	}

	return nil
}

// FindByUser returns the most recent publications of one user.
func (r *publicationRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]*domain.Publication, error) {
	const query = `
		SELECT id, user_id, type, firm_type, firm_name, text, cost, status, message_id, created_at, published_at
		FROM publications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list publications", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select publications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.Publication
	for rows.Next() {
		var (
			pub         domain.Publication
			messageID   sql.NullInt64
			publishedAt sql.NullTime
		)

		if err := rows.Scan(
			&pub.ID,
			&pub.UserID,
			&pub.Type,
			&pub.FirmType,
			&pub.FirmName,
			&pub.Text,
			&pub.Cost,
			&pub.Status,
			&messageID,
			&pub.CreatedAt,
			&publishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}

		if messageID.Valid {
			pub.MessageID = int(messageID.Int64)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			pub.PublishedAt = &t
		}

		result = append(result, &pub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publications: %w", err)
	}

	return result, nil
}
