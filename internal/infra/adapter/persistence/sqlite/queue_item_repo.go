package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
)

type QueueItemRepo struct{ db *sql.DB }

func NewQueueItemRepo(db *sql.DB) repository.QueueItemRepository {
	return &QueueItemRepo{db: db}
}

const queueItemColumns = `id, episode_id, priority, status, attempts, max_attempts, last_error, next_retry_at, created_at, updated_at`

func scanQueueItem(row interface{ Scan(...any) error }) (*entity.QueueItem, error) {
	var q entity.QueueItem
	var nextRetryAt *int64
	var createdAt, updatedAt int64
	err := row.Scan(
		&q.ID, &q.EpisodeID, &q.Priority, &q.Status, &q.Attempts, &q.MaxAttempts,
		&q.LastError, &nextRetryAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.NextRetryAt = fromNullMicro(nextRetryAt)
	q.CreatedAt = fromMicro(createdAt)
	q.UpdatedAt = fromMicro(updatedAt)
	return &q, nil
}

func (r *QueueItemRepo) Get(ctx context.Context, id string) (*entity.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE id = ? LIMIT 1`
	q, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return q, nil
}

func (r *QueueItemRepo) GetByEpisode(ctx context.Context, episodeID string) (*entity.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE episode_id = ? LIMIT 1`
	q, err := scanQueueItem(r.db.QueryRowContext(ctx, query, episodeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByEpisode: QueryRowContext: %w", err)
	}
	return q, nil
}

func (r *QueueItemRepo) NextPending(ctx context.Context) (*entity.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE status = ? ORDER BY priority ASC, created_at ASC LIMIT 1`
	q, err := scanQueueItem(r.db.QueryRowContext(ctx, query, entity.QueueItemStatusPending))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("NextPending: QueryRowContext: %w", err)
	}
	return q, nil
}

func (r *QueueItemRepo) Retryable(ctx context.Context, now time.Time) ([]*entity.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE status = ? AND next_retry_at <= ? ORDER BY priority ASC, next_retry_at ASC`
	rows, err := r.db.QueryContext(ctx, query, entity.QueueItemStatusRetrying, toMicro(now))
	if err != nil {
		return nil, fmt.Errorf("Retryable: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.QueueItem, 0, 16)
	for rows.Next() {
		q, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("Retryable: Scan: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Retryable: rows.Err: %w", err)
	}
	return items, nil
}

func (r *QueueItemRepo) ListByStatus(ctx context.Context, status entity.QueueItemStatus, limit int) ([]*entity.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE status = ? ORDER BY updated_at DESC`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.QueueItem, 0, 16)
	for rows.Next() {
		q, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: Scan: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStatus: rows.Err: %w", err)
	}
	return items, nil
}

func (r *QueueItemRepo) CountByStatus(ctx context.Context, status entity.QueueItemStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM queue_items WHERE status = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountByStatus: QueryRowContext: %w", err)
	}
	return count, nil
}

func (r *QueueItemRepo) Create(ctx context.Context, q *entity.QueueItem) error {
	const query = `
INSERT INTO queue_items
(id, episode_id, priority, status, attempts, max_attempts, last_error, next_retry_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.EpisodeID, q.Priority, q.Status, q.Attempts, q.MaxAttempts,
		q.LastError, toNullMicro(q.NextRetryAt), toMicro(q.CreatedAt), toMicro(q.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (r *QueueItemRepo) Update(ctx context.Context, q *entity.QueueItem) error {
	const query = `
UPDATE queue_items SET
    priority      = ?,
    status        = ?,
    attempts      = ?,
    max_attempts  = ?,
    last_error    = ?,
    next_retry_at = ?,
    updated_at    = ?
WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		q.Priority, q.Status, q.Attempts, q.MaxAttempts, q.LastError,
		toNullMicro(q.NextRetryAt), toMicro(q.UpdatedAt), q.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (r *QueueItemRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM queue_items WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}
