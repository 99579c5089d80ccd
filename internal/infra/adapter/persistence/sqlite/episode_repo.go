package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
)

type EpisodeRepo struct{ db *sql.DB }

func NewEpisodeRepo(db *sql.DB) repository.EpisodeRepository {
	return &EpisodeRepo{db: db}
}

const episodeColumns = `id, channel_id, external_id, title, description, thumbnail_url, duration_seconds, published_at, status, downloaded_at, audio_path, video_path, audio_size, video_size, retry_count, last_error, created_at, updated_at`

func scanEpisode(row interface{ Scan(...any) error }) (*entity.Episode, error) {
	var e entity.Episode
	var durationSeconds *int
	var publishedAt, downloadedAt *int64
	var audioSize, videoSize *int64
	var createdAt, updatedAt int64
	err := row.Scan(
		&e.ID, &e.ChannelID, &e.ExternalID, &e.Title, &e.Description, &e.ThumbnailURL,
		&durationSeconds, &publishedAt, &e.Status, &downloadedAt,
		&e.AudioPath, &e.VideoPath, &audioSize, &videoSize,
		&e.RetryCount, &e.LastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.DurationSeconds = durationSeconds
	e.PublishedAt = fromNullMicro(publishedAt)
	e.DownloadedAt = fromNullMicro(downloadedAt)
	e.AudioSize = audioSize
	e.VideoSize = videoSize
	e.CreatedAt = fromMicro(createdAt)
	e.UpdatedAt = fromMicro(updatedAt)
	return &e, nil
}

func (r *EpisodeRepo) Get(ctx context.Context, id string) (*entity.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id = ? LIMIT 1`
	e, err := scanEpisode(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return e, nil
}

func (r *EpisodeRepo) GetByExternalID(ctx context.Context, channelID, externalID string) (*entity.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE channel_id = ? AND external_id = ? LIMIT 1`
	e, err := scanEpisode(r.db.QueryRowContext(ctx, query, channelID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByExternalID: QueryRowContext: %w", err)
	}
	return e, nil
}

func (r *EpisodeRepo) ListByChannel(ctx context.Context, channelID string, limit int) ([]*entity.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE channel_id = ? ORDER BY published_at DESC`
	args := []any{channelID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *EpisodeRepo) OldestCompletedByChannel(ctx context.Context, channelID string, n int) ([]*entity.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE channel_id = ? AND status = ? ORDER BY published_at ASC LIMIT ?`
	return r.list(ctx, query, channelID, entity.EpisodeStatusCompleted, n)
}

func (r *EpisodeRepo) CountByStatus(ctx context.Context, channelID string, status entity.EpisodeStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM episodes WHERE channel_id = ? AND status = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, channelID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountByStatus: QueryRowContext: %w", err)
	}
	return count, nil
}

// ExistsByExternalIDBatch reports which externalIDs already have an
// episode row for channelID, avoiding an N+1 query per feed item.
func (r *EpisodeRepo) ExistsByExternalIDBatch(ctx context.Context, channelID string, externalIDs []string) (map[string]bool, error) {
	if len(externalIDs) == 0 {
		return make(map[string]bool), nil
	}

	// sqlite's placeholder limit is 999; see https://www.sqlite.org/limits.html#max_variable_number
	const maxPlaceholders = 998 // one slot reserved for channel_id
	if len(externalIDs) > maxPlaceholders {
		return nil, fmt.Errorf("ExistsByExternalIDBatch: too many ids (%d > %d)", len(externalIDs), maxPlaceholders)
	}

	placeholders := make([]string, len(externalIDs))
	args := make([]any, 0, len(externalIDs)+1)
	args = append(args, channelID)
	for i, id := range externalIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `SELECT external_id FROM episodes WHERE channel_id = ? AND external_id IN (` +
		strings.Join(placeholders, ",") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByExternalIDBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(externalIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistsByExternalIDBatch: Scan: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByExternalIDBatch: rows.Err: %w", err)
	}
	return result, nil
}

func (r *EpisodeRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Episode, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	episodes := make([]*entity.Episode, 0, 64)
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("list: Scan: %w", err)
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows.Err: %w", err)
	}
	return episodes, nil
}

func (r *EpisodeRepo) Create(ctx context.Context, e *entity.Episode) error {
	const query = `
INSERT INTO episodes
(id, channel_id, external_id, title, description, thumbnail_url, duration_seconds, published_at, status, downloaded_at, audio_path, video_path, audio_size, video_size, retry_count, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ChannelID, e.ExternalID, e.Title, e.Description, e.ThumbnailURL,
		e.DurationSeconds, toNullMicro(e.PublishedAt), e.Status, toNullMicro(e.DownloadedAt),
		e.AudioPath, e.VideoPath, e.AudioSize, e.VideoSize,
		e.RetryCount, e.LastError, toMicro(e.CreatedAt), toMicro(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (r *EpisodeRepo) Update(ctx context.Context, e *entity.Episode) error {
	const query = `
UPDATE episodes SET
    title            = ?,
    description      = ?,
    thumbnail_url    = ?,
    duration_seconds = ?,
    published_at     = ?,
    status           = ?,
    downloaded_at    = ?,
    audio_path       = ?,
    video_path       = ?,
    audio_size       = ?,
    video_size       = ?,
    retry_count      = ?,
    last_error       = ?,
    updated_at       = ?
WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.ThumbnailURL, e.DurationSeconds,
		toNullMicro(e.PublishedAt), e.Status, toNullMicro(e.DownloadedAt),
		e.AudioPath, e.VideoPath, e.AudioSize, e.VideoSize,
		e.RetryCount, e.LastError, toMicro(e.UpdatedAt), e.ID,
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

func (r *EpisodeRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM episodes WHERE id = ?`
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
