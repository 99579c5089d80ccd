package repository

import (
	"context"

	"channelmirror/internal/domain/entity"
)

type EpisodeRepository interface {
	Get(ctx context.Context, id string) (*entity.Episode, error)
	GetByExternalID(ctx context.Context, channelID, externalID string) (*entity.Episode, error)
	// ListByChannel returns episodes for a channel ordered by published_at
	// descending. limit <= 0 means no limit.
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*entity.Episode, error)
	// OldestCompletedByChannel returns the n oldest completed episodes for a
	// channel (oldest published_at first), used by retention to find
	// deletion candidates beyond keep_count.
	OldestCompletedByChannel(ctx context.Context, channelID string, n int) ([]*entity.Episode, error)
	CountByStatus(ctx context.Context, channelID string, status entity.EpisodeStatus) (int, error)
	// ExistsByExternalIDBatch reports, for a channel, which of externalIDs
	// already have an episode row, avoiding one query per feed item when
	// deduplicating a freshly fetched feed.
	ExistsByExternalIDBatch(ctx context.Context, channelID string, externalIDs []string) (map[string]bool, error)
	Create(ctx context.Context, episode *entity.Episode) error
	Update(ctx context.Context, episode *entity.Episode) error
	Delete(ctx context.Context, id string) error
}
