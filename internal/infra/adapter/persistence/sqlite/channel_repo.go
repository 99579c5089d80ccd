package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
)

type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, source_url, title, description, thumbnail_url, keep_count, format, enabled, last_refresh_at, created_at, updated_at`

func scanChannel(row interface{ Scan(...any) error }) (*entity.Channel, error) {
	var c entity.Channel
	var lastRefreshAt *int64
	var createdAt, updatedAt int64
	var enabled int
	err := row.Scan(
		&c.ID, &c.SourceURL, &c.Title, &c.Description, &c.ThumbnailURL,
		&c.KeepCount, &c.Format, &enabled, &lastRefreshAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Enabled = enabled != 0
	c.LastRefreshAt = fromNullMicro(lastRefreshAt)
	c.CreatedAt = fromMicro(createdAt)
	c.UpdatedAt = fromMicro(updatedAt)
	return &c, nil
}

func (r *ChannelRepo) Get(ctx context.Context, id string) (*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ? LIMIT 1`
	c, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return c, nil
}

func (r *ChannelRepo) GetBySourceURL(ctx context.Context, sourceURL string) (*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE source_url = ? LIMIT 1`
	c, err := scanChannel(r.db.QueryRowContext(ctx, query, sourceURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySourceURL: QueryRowContext: %w", err)
	}
	return c, nil
}

func (r *ChannelRepo) List(ctx context.Context) ([]*entity.Channel, error) {
	return r.list(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY id ASC`)
}

func (r *ChannelRepo) ListEnabled(ctx context.Context) ([]*entity.Channel, error) {
	return r.list(ctx, `SELECT `+channelColumns+` FROM channels WHERE enabled = 1 ORDER BY id ASC`)
}

func (r *ChannelRepo) list(ctx context.Context, query string) ([]*entity.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	channels := make([]*entity.Channel, 0, 32)
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("list: Scan: %w", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows.Err: %w", err)
	}
	return channels, nil
}

func (r *ChannelRepo) Create(ctx context.Context, c *entity.Channel) error {
	const query = `
INSERT INTO channels
(id, source_url, title, description, thumbnail_url, keep_count, format, enabled, last_refresh_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.SourceURL, c.Title, c.Description, c.ThumbnailURL,
		c.KeepCount, c.Format, enabled, toNullMicro(c.LastRefreshAt),
		toMicro(c.CreatedAt), toMicro(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (r *ChannelRepo) Update(ctx context.Context, c *entity.Channel) error {
	const query = `
UPDATE channels SET
    source_url      = ?,
    title           = ?,
    description     = ?,
    thumbnail_url   = ?,
    keep_count      = ?,
    format          = ?,
    enabled         = ?,
    last_refresh_at = ?,
    updated_at      = ?
WHERE id = ?`
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	res, err := r.db.ExecContext(ctx, query,
		c.SourceURL, c.Title, c.Description, c.ThumbnailURL,
		c.KeepCount, c.Format, enabled, toNullMicro(c.LastRefreshAt),
		toMicro(c.UpdatedAt), c.ID,
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

func (r *ChannelRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM channels WHERE id = ?`
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

func (r *ChannelRepo) TouchRefreshedAt(ctx context.Context, id string, refreshedAt time.Time) error {
	const query = `UPDATE channels SET last_refresh_at = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, toMicro(refreshedAt), toMicro(refreshedAt), id)
	return err
}
