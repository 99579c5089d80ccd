// Package episode provides the admin use cases for inspecting and
// retrying individual episodes.
package episode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"channelmirror/internal/common/pagination"
	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
	"channelmirror/internal/usecase/queue"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

// Service implements the admin episode operations.
type Service struct {
	Episodes repository.EpisodeRepository
	Channels repository.ChannelRepository
	Queue    *queue.Service
	Clock    Clock
}

func NewService(episodes repository.EpisodeRepository, channels repository.ChannelRepository, queueSvc *queue.Service) *Service {
	return &Service{Episodes: episodes, Channels: channels, Queue: queueSvc, Clock: time.Now}
}

// Filter narrows a channel's episode listing.
type Filter struct {
	Status entity.EpisodeStatus // zero value means no filter
}

// List returns a page of channelID's episodes, newest-published first,
// matching filter. The repository has no offset/status parameter, so this
// loads the full per-channel list and paginates/filters in memory; channel
// episode counts are small enough (bounded by keep_count plus the pending
// queue) for this to be cheap.
func (s *Service) List(ctx context.Context, channelID string, filter Filter, params pagination.Params) ([]*entity.Episode, pagination.Metadata, error) {
	all, err := s.Episodes.ListByChannel(ctx, channelID, 0)
	if err != nil {
		return nil, pagination.Metadata{}, fmt.Errorf("episode: list: %w", err)
	}

	filtered := all[:0:0]
	for _, ep := range all {
		if filter.Status != "" && ep.Status != filter.Status {
			continue
		}
		filtered = append(filtered, ep)
	}

	total := int64(len(filtered))
	offset := pagination.CalculateOffset(params.Page, params.Limit)
	page := filtered
	if offset >= len(filtered) {
		page = nil
	} else {
		end := offset + params.Limit
		if end > len(filtered) {
			end = len(filtered)
		}
		page = filtered[offset:end]
	}

	metadata := pagination.Metadata{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.CalculateTotalPages(total, params.Limit),
	}
	return page, metadata, nil
}

// Get returns a single episode, or entity.ErrNotFound if it does not exist.
func (s *Service) Get(ctx context.Context, id string) (*entity.Episode, error) {
	ep, err := s.Episodes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("episode: get: %w", err)
	}
	if ep == nil {
		return nil, entity.ErrNotFound
	}
	return ep, nil
}

// Delete removes an episode row. When deleteFiles is set, its artifacts are
// removed on disk first on a best-effort basis.
func (s *Service) Delete(ctx context.Context, id string, deleteFiles bool) error {
	ep, err := s.Episodes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("episode: delete: get: %w", err)
	}
	if ep == nil {
		return entity.ErrNotFound
	}

	if deleteFiles {
		removeBestEffort(ep.AudioPath)
		removeBestEffort(ep.VideoPath)
	}

	if err := s.Episodes.Delete(ctx, id); err != nil {
		return fmt.Errorf("episode: delete: %w", err)
	}
	return nil
}

// RetryEpisode resets a failed episode and re-enqueues it at priority 5.
// Only valid when the episode's current status is failed; any other status
// returns entity.ErrConflict since retry is not a no-op transition.
func (s *Service) RetryEpisode(ctx context.Context, id string) error {
	ep, err := s.Episodes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("episode: retry: get: %w", err)
	}
	if ep == nil {
		return entity.ErrNotFound
	}
	if ep.Status != entity.EpisodeStatusFailed {
		return entity.ErrConflict
	}

	ep.RetryCount = 0
	ep.LastError = ""
	ep.Status = entity.EpisodeStatusPending
	ep.UpdatedAt = s.Clock()
	if err := s.Episodes.Update(ctx, ep); err != nil {
		return fmt.Errorf("episode: retry: update: %w", err)
	}

	if _, err := s.Queue.Enqueue(ctx, ep.ID, entity.DefaultPriority); err != nil {
		return fmt.Errorf("episode: retry: enqueue: %w", err)
	}
	return nil
}

func removeBestEffort(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("episode: failed to remove artifact", slog.String("path", path), slog.Any("error", err))
	}
}
