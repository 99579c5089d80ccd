// Package refresh discovers new episodes on a channel's source feed and
// enqueues them for download.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/observability/metrics"
	"channelmirror/internal/repository"
	"channelmirror/internal/usecase/pipeline"
	"channelmirror/internal/usecase/queue"

	"github.com/google/uuid"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

// Service refreshes channels against their Fetcher and enqueues newly
// discovered episodes.
type Service struct {
	Channels repository.ChannelRepository
	Episodes repository.EpisodeRepository
	Fetcher  pipeline.Fetcher
	Queue    *queue.Service
	Clock    Clock
}

func NewService(channels repository.ChannelRepository, episodes repository.EpisodeRepository, fetcher pipeline.Fetcher, queueSvc *queue.Service) *Service {
	return &Service{Channels: channels, Episodes: episodes, Fetcher: fetcher, Queue: queueSvc, Clock: time.Now}
}

// Stats summarizes the outcome of a RefreshAll run.
type Stats struct {
	Channels  int
	Found     int64
	Inserted  int64
	Duplicate int64
}

// RefreshAll refreshes every enabled channel, isolating per-channel
// failures so one broken feed never stops the rest.
func (s *Service) RefreshAll(ctx context.Context) (*Stats, error) {
	start := s.Clock()
	stats := &Stats{}

	channels, err := s.Channels.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: list enabled channels: %w", err)
	}
	stats.Channels = len(channels)

	for _, ch := range channels {
		if err := s.refreshChannel(ctx, ch, stats); err != nil {
			slog.Warn("refresh: channel failed",
				slog.String("channel_id", ch.ID), slog.Any("error", err))
		}
	}

	metrics.RecordPipelineRunDuration(s.Clock().Sub(start))
	return stats, nil
}

// RefreshChannel refreshes a single channel by id, used by the admin
// `refresh(channel_id)` operation. The caller is expected to run this
// asynchronously; unlike RefreshAll it returns the channel's own error
// rather than swallowing it, since there is no batch of siblings to
// isolate it from.
func (s *Service) RefreshChannel(ctx context.Context, channelID string) error {
	ch, err := s.Channels.Get(ctx, channelID)
	if err != nil {
		return fmt.Errorf("refresh: get channel: %w", err)
	}
	if ch == nil {
		return entity.ErrNotFound
	}
	if !ch.Enabled {
		return nil
	}
	stats := &Stats{Channels: 1}
	return s.refreshChannel(ctx, ch, stats)
}

// refreshChannel fetches ch's feed, filters out already-known episodes via
// a single batch existence check, inserts the rest, and enqueues each.
// Errors are logged by the caller and do not abort other channels.
func (s *Service) refreshChannel(ctx context.Context, ch *entity.Channel, stats *Stats) error {
	channelStart := s.Clock()

	entries, err := s.Fetcher.ListChannelItems(ctx, ch.SourceURL)
	if err != nil {
		metrics.RecordRefreshError(ch.ID, classifyKind(err))
		return fmt.Errorf("list_channel_items: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	externalIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		externalIDs = append(externalIDs, e.ExternalID)
	}
	exists, err := s.Episodes.ExistsByExternalIDBatch(ctx, ch.ID, externalIDs)
	if err != nil {
		metrics.RecordRefreshError(ch.ID, string(entity.ErrorKindUnknown))
		return fmt.Errorf("exists_by_external_id_batch: %w", err)
	}

	var discovered int
	for _, entry := range entries {
		if exists[entry.ExternalID] {
			stats.Duplicate++
			continue
		}
		stats.Found++
		if err := s.insertAndEnqueue(ctx, ch, entry); err != nil {
			slog.Warn("refresh: failed to insert episode",
				slog.String("channel_id", ch.ID),
				slog.String("external_id", entry.ExternalID),
				slog.Any("error", err))
			continue
		}
		stats.Inserted++
		discovered++
	}

	now := s.Clock()
	safeCtx := context.WithoutCancel(ctx)
	if err := s.Channels.TouchRefreshedAt(safeCtx, ch.ID, now); err != nil {
		return fmt.Errorf("touch_refreshed_at: %w", err)
	}

	metrics.RecordRefresh(ch.ID, now.Sub(channelStart), discovered)
	if discovered > 0 {
		metrics.RecordEpisodesDiscovered(ch.ID, discovered)
	}
	return nil
}

func (s *Service) insertAndEnqueue(ctx context.Context, ch *entity.Channel, entry pipeline.FeedEntry) error {
	now := s.Clock()
	episode := &entity.Episode{
		ID:              uuid.NewString(),
		ChannelID:       ch.ID,
		ExternalID:      entry.ExternalID,
		Title:           entry.Title,
		Description:     entry.Description,
		ThumbnailURL:    entry.ThumbnailURL,
		DurationSeconds: entry.DurationSeconds,
		PublishedAt:     entry.PublishedAt,
		Status:          entity.EpisodeStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := episode.Validate(); err != nil {
		return err
	}
	if err := s.Episodes.Create(ctx, episode); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if _, err := s.Queue.Enqueue(ctx, episode.ID, entity.DefaultPriority); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func classifyKind(err error) string {
	var extErr *pipeline.ExternalError
	if asExternalError(err, &extErr) {
		return string(extErr.Kind)
	}
	return string(entity.ErrorKindUnknown)
}

func asExternalError(err error, target **pipeline.ExternalError) bool {
	e, ok := err.(*pipeline.ExternalError)
	if !ok {
		return false
	}
	*target = e
	return true
}
