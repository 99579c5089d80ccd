// Package status aggregates the admin-facing health and queue views:
// get_status() and get_queue() from the external interface.
package status

import (
	"context"
	"fmt"
	"time"

	"channelmirror/internal/diskusage"
	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

// Service computes the admin status/queue snapshots.
type Service struct {
	Channels    repository.ChannelRepository
	Episodes    repository.EpisodeRepository
	QueueItems  repository.QueueItemRepository
	Version     string
	StorageDir  string
	StartedAt   time.Time
	Clock       Clock
}

func NewService(channels repository.ChannelRepository, episodes repository.EpisodeRepository, queueItems repository.QueueItemRepository, version, storageDir string) *Service {
	now := time.Now()
	return &Service{
		Channels:   channels,
		Episodes:   episodes,
		QueueItems: queueItems,
		Version:    version,
		StorageDir: storageDir,
		StartedAt:  now,
		Clock:      time.Now,
	}
}

// Status is the get_status() snapshot.
type Status struct {
	Version           string
	Uptime            time.Duration
	QueueCounts       map[entity.QueueItemStatus]int
	ActiveDownloads   int
	CompletedTotal    int
	FailedTotal       int
	Storage           diskusage.Usage
}

// recentFailedLimit bounds how many failed queue items get_queue() surfaces;
// the backlog is for triage, not a full audit trail.
const recentFailedLimit = 20

// Get returns the current aggregate status. Completed/failed totals reflect
// every queue item that has ever reached that terminal state, since queue
// rows are never purged on success or terminal failure; this is a superset
// of "since this process started" whenever the worker has survived restarts.
func (s *Service) Get(ctx context.Context) (*Status, error) {
	counts := make(map[entity.QueueItemStatus]int, 6)
	for _, st := range []entity.QueueItemStatus{
		entity.QueueItemStatusPending,
		entity.QueueItemStatusInProgress,
		entity.QueueItemStatusRetrying,
		entity.QueueItemStatusCompleted,
		entity.QueueItemStatusFailed,
		entity.QueueItemStatusCancelled,
	} {
		n, err := s.QueueItems.CountByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("status: count %s: %w", st, err)
		}
		counts[st] = n
	}

	usage, err := diskusage.Stat(s.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("status: disk usage: %w", err)
	}

	return &Status{
		Version:         s.Version,
		Uptime:          s.Clock().Sub(s.StartedAt),
		QueueCounts:     counts,
		ActiveDownloads: counts[entity.QueueItemStatusInProgress],
		CompletedTotal:  counts[entity.QueueItemStatusCompleted],
		FailedTotal:     counts[entity.QueueItemStatusFailed],
		Storage:         usage,
	}, nil
}

// QueueItemView annotates a queue item with its episode and channel titles,
// resolved for display.
type QueueItemView struct {
	Item          *entity.QueueItem
	EpisodeTitle  string
	ChannelID     string
	ChannelTitle  string
}

// Queue is the get_queue() snapshot.
type Queue struct {
	InProgress   []QueueItemView
	RecentFailed []QueueItemView
}

// GetQueue returns every in-progress item and the most recent failed items,
// each annotated with its episode's and channel's titles.
func (s *Service) GetQueue(ctx context.Context) (*Queue, error) {
	inProgress, err := s.QueueItems.ListByStatus(ctx, entity.QueueItemStatusInProgress, 0)
	if err != nil {
		return nil, fmt.Errorf("status: list in_progress: %w", err)
	}
	failed, err := s.QueueItems.ListByStatus(ctx, entity.QueueItemStatusFailed, recentFailedLimit)
	if err != nil {
		return nil, fmt.Errorf("status: list failed: %w", err)
	}

	inProgressViews, err := s.annotate(ctx, inProgress)
	if err != nil {
		return nil, err
	}
	failedViews, err := s.annotate(ctx, failed)
	if err != nil {
		return nil, err
	}

	return &Queue{InProgress: inProgressViews, RecentFailed: failedViews}, nil
}

func (s *Service) annotate(ctx context.Context, items []*entity.QueueItem) ([]QueueItemView, error) {
	views := make([]QueueItemView, 0, len(items))
	for _, item := range items {
		view := QueueItemView{Item: item}

		ep, err := s.Episodes.Get(ctx, item.EpisodeID)
		if err != nil {
			return nil, fmt.Errorf("status: get episode %s: %w", item.EpisodeID, err)
		}
		if ep == nil {
			views = append(views, view)
			continue
		}
		view.EpisodeTitle = ep.Title
		view.ChannelID = ep.ChannelID

		ch, err := s.Channels.Get(ctx, ep.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("status: get channel %s: %w", ep.ChannelID, err)
		}
		if ch != nil {
			view.ChannelTitle = ch.Title
		}
		views = append(views, view)
	}
	return views, nil
}
