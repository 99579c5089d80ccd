// Package retention enforces each channel's keep_count by deleting the
// artifacts (never the rows) of completed episodes beyond it.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/observability/metrics"
	"channelmirror/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

type Service struct {
	Channels repository.ChannelRepository
	Episodes repository.EpisodeRepository
	Clock    Clock
}

func NewService(channels repository.ChannelRepository, episodes repository.EpisodeRepository) *Service {
	return &Service{Channels: channels, Episodes: episodes, Clock: time.Now}
}

// RunForChannel deletes artifacts of completed episodes for channelID that
// fall beyond its keep_count, ordered oldest-first. Deletion is best-effort
// and bounded in size (the overflow past keep_count is rarely more than a
// handful of episodes at once), so the small fan-out runs concurrently via
// errgroup.
func (s *Service) RunForChannel(ctx context.Context, channelID string) error {
	channel, err := s.Channels.Get(ctx, channelID)
	if err != nil {
		return fmt.Errorf("retention: get channel: %w", err)
	}
	if channel == nil {
		return nil
	}

	completed, err := s.Episodes.CountByStatus(ctx, channelID, entity.EpisodeStatusCompleted)
	if err != nil {
		return fmt.Errorf("retention: count completed: %w", err)
	}
	overflow := completed - channel.KeepCount
	if overflow <= 0 {
		return nil
	}

	candidates, err := s.Episodes.OldestCompletedByChannel(ctx, channelID, overflow)
	if err != nil {
		return fmt.Errorf("retention: oldest completed: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, episode := range candidates {
		ep := episode
		eg.Go(func() error {
			return s.deleteArtifacts(egCtx, ep)
		})
	}
	return eg.Wait()
}

func (s *Service) deleteArtifacts(ctx context.Context, episode *entity.Episode) error {
	var freed int64
	if episode.AudioPath != "" {
		freed += removeBestEffort(episode.AudioPath, episode.AudioSize)
	}
	if episode.VideoPath != "" {
		freed += removeBestEffort(episode.VideoPath, episode.VideoSize)
	}

	episode.Status = entity.EpisodeStatusDeleted
	episode.AudioPath = ""
	episode.VideoPath = ""
	episode.AudioSize = nil
	episode.VideoSize = nil
	episode.UpdatedAt = s.Clock()

	if err := s.Episodes.Update(ctx, episode); err != nil {
		return fmt.Errorf("retention: update episode %s: %w", episode.ID, err)
	}

	metrics.RecordRetentionDeletion(episode.ChannelID)
	slog.Info("retention: deleted episode artifacts",
		slog.String("channel_id", episode.ChannelID),
		slog.String("episode_id", episode.ID),
		slog.Int64("bytes_freed", freed))
	return nil
}

// removeBestEffort deletes path, logging on failure rather than returning
// an error, and reports the size it freed (0 if the remove failed).
func removeBestEffort(path string, size *int64) int64 {
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("retention: failed to remove artifact", slog.String("path", path), slog.Any("error", err))
		}
		return 0
	}
	if size == nil {
		return 0
	}
	return *size
}
