// Package channel provides the admin use cases for managing mirrored
// channels: listing, creating, updating, deleting, and triggering an
// out-of-cycle refresh.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
	"channelmirror/internal/usecase/refresh"

	"github.com/google/uuid"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

// Service implements the admin channel operations.
type Service struct {
	Channels repository.ChannelRepository
	Episodes repository.EpisodeRepository
	Refresh  *refresh.Service
	Clock    Clock
}

func NewService(channels repository.ChannelRepository, episodes repository.EpisodeRepository, refreshSvc *refresh.Service) *Service {
	return &Service{Channels: channels, Episodes: episodes, Refresh: refreshSvc, Clock: time.Now}
}

// List returns every channel, enabled or not.
func (s *Service) List(ctx context.Context) ([]*entity.Channel, error) {
	channels, err := s.Channels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("channel: list: %w", err)
	}
	return channels, nil
}

// Get returns a single channel, or entity.ErrNotFound if it does not exist.
func (s *Service) Get(ctx context.Context, id string) (*entity.Channel, error) {
	ch, err := s.Channels.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("channel: get: %w", err)
	}
	if ch == nil {
		return nil, entity.ErrNotFound
	}
	return ch, nil
}

// CreateInput is the admin-supplied payload for adding a channel.
type CreateInput struct {
	SourceURL    string
	Title        string
	Description  string
	ThumbnailURL string
	KeepCount    int
	Format       entity.Format
	Enabled      bool
}

// Create validates and inserts a new channel. Returns entity.ErrConflict if
// a channel already mirrors the same source URL.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Channel, error) {
	existing, err := s.Channels.GetBySourceURL(ctx, in.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("channel: create: check existing: %w", err)
	}
	if existing != nil {
		return nil, entity.ErrConflict
	}

	now := s.Clock()
	ch := &entity.Channel{
		ID:           uuid.NewString(),
		SourceURL:    in.SourceURL,
		Title:        in.Title,
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		KeepCount:    in.KeepCount,
		Format:       in.Format,
		Enabled:      in.Enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}
	if err := s.Channels.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("channel: create: %w", err)
	}
	return ch, nil
}

// UpdateInput carries the mutable fields of a channel update. Every field is
// applied as given; callers must populate unchanged fields from a prior Get.
type UpdateInput struct {
	SourceURL    string
	Title        string
	Description  string
	ThumbnailURL string
	KeepCount    int
	Format       entity.Format
	Enabled      bool
}

// Update replaces a channel's mutable fields and validates the result.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*entity.Channel, error) {
	ch, err := s.Channels.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("channel: update: get: %w", err)
	}
	if ch == nil {
		return nil, entity.ErrNotFound
	}

	if in.SourceURL != ch.SourceURL {
		existing, err := s.Channels.GetBySourceURL(ctx, in.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("channel: update: check existing: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, entity.ErrConflict
		}
	}

	ch.SourceURL = in.SourceURL
	ch.Title = in.Title
	ch.Description = in.Description
	ch.ThumbnailURL = in.ThumbnailURL
	ch.KeepCount = in.KeepCount
	ch.Format = in.Format
	ch.Enabled = in.Enabled
	ch.UpdatedAt = s.Clock()

	if err := ch.Validate(); err != nil {
		return nil, err
	}
	if err := s.Channels.Update(ctx, ch); err != nil {
		return nil, fmt.Errorf("channel: update: %w", err)
	}
	return ch, nil
}

// Delete removes a channel row. When deleteFiles is set, every episode's
// on-disk artifacts are removed first on a best-effort basis; removal
// failures are logged but never block the delete.
func (s *Service) Delete(ctx context.Context, id string, deleteFiles bool) error {
	ch, err := s.Channels.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("channel: delete: get: %w", err)
	}
	if ch == nil {
		return entity.ErrNotFound
	}

	if deleteFiles {
		episodes, err := s.Episodes.ListByChannel(ctx, id, 0)
		if err != nil {
			return fmt.Errorf("channel: delete: list episodes: %w", err)
		}
		for _, ep := range episodes {
			removeBestEffort(ep.AudioPath)
			removeBestEffort(ep.VideoPath)
		}
	}

	if err := s.Channels.Delete(ctx, id); err != nil {
		return fmt.Errorf("channel: delete: %w", err)
	}
	return nil
}

// Refresh kicks off an asynchronous refresh of a single channel and returns
// immediately, per the admin refresh(channel_id) contract. The refresh runs
// detached from ctx so a client disconnect never aborts it mid-flight.
func (s *Service) Refresh(ctx context.Context, id string) error {
	ch, err := s.Channels.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("channel: refresh: get: %w", err)
	}
	if ch == nil {
		return entity.ErrNotFound
	}

	safeCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.Refresh.RefreshChannel(safeCtx, id); err != nil {
			slog.Warn("channel: async refresh failed",
				slog.String("channel_id", id), slog.Any("error", err))
		}
	}()
	return nil
}

func removeBestEffort(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("channel: failed to remove artifact", slog.String("path", path), slog.Any("error", err))
	}
}
