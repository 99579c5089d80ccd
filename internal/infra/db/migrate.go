package db

import (
	"database/sql"
)

// MigrateUp creates the channelmirror schema if it does not already exist.
// Instants (published_at, created_at, updated_at, next_retry_at,
// downloaded_at, last_refresh_at) are stored as INTEGER UTC microseconds so
// that ORDER BY on them is an ordinary indexed sort; no in-memory fallback
// sort is required for this engine/type combination.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id               TEXT PRIMARY KEY,
			source_url       TEXT NOT NULL UNIQUE,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			thumbnail_url    TEXT NOT NULL DEFAULT '',
			keep_count       INTEGER NOT NULL,
			format           TEXT NOT NULL,
			enabled          INTEGER NOT NULL DEFAULT 1,
			last_refresh_at  INTEGER,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS episodes (
			id               TEXT PRIMARY KEY,
			channel_id       TEXT NOT NULL REFERENCES channels(id),
			external_id      TEXT NOT NULL UNIQUE,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			thumbnail_url    TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER,
			published_at     INTEGER,
			status           TEXT NOT NULL,
			downloaded_at    INTEGER,
			audio_path       TEXT NOT NULL DEFAULT '',
			video_path       TEXT NOT NULL DEFAULT '',
			audio_size       INTEGER,
			video_size       INTEGER,
			retry_count      INTEGER NOT NULL DEFAULT 0,
			last_error       TEXT NOT NULL DEFAULT '',
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_channel_published ON episodes(channel_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_channel_status ON episodes(channel_id, status)`,
		`CREATE TABLE IF NOT EXISTS queue_items (
			id               TEXT PRIMARY KEY,
			episode_id       TEXT NOT NULL UNIQUE REFERENCES episodes(id),
			priority         INTEGER NOT NULL DEFAULT 5,
			status           TEXT NOT NULL,
			attempts         INTEGER NOT NULL DEFAULT 0,
			max_attempts     INTEGER NOT NULL DEFAULT 5,
			last_error       TEXT NOT NULL DEFAULT '',
			next_retry_at    INTEGER,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status, priority, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_items_retry ON queue_items(status, next_retry_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the channelmirror schema. Use with caution: this
// deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS queue_items`,
		`DROP TABLE IF EXISTS episodes`,
		`DROP TABLE IF EXISTS channels`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
