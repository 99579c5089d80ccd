package repository

import (
	"context"
	"time"

	"channelmirror/internal/domain/entity"
)

type QueueItemRepository interface {
	Get(ctx context.Context, id string) (*entity.QueueItem, error)
	GetByEpisode(ctx context.Context, episodeID string) (*entity.QueueItem, error)
	// NextPending returns the next item to dispatch, ordered by priority
	// ascending then created_at ascending, or nil if the queue is empty.
	NextPending(ctx context.Context) (*entity.QueueItem, error)
	// Retryable returns items with status=retrying whose next_retry_at has
	// elapsed (next_retry_at <= now).
	Retryable(ctx context.Context, now time.Time) ([]*entity.QueueItem, error)
	CountByStatus(ctx context.Context, status entity.QueueItemStatus) (int, error)
	// ListByStatus returns up to limit items in status, newest-updated
	// first, used by the admin queue inspection endpoint. limit <= 0 means
	// no limit.
	ListByStatus(ctx context.Context, status entity.QueueItemStatus, limit int) ([]*entity.QueueItem, error)
	Create(ctx context.Context, item *entity.QueueItem) error
	Update(ctx context.Context, item *entity.QueueItem) error
	Delete(ctx context.Context, id string) error
}
