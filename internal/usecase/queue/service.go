// Package queue implements the download queue's state machine: enqueue,
// claim, and the terminal transitions a pipeline run drives it through.
package queue

import (
	"context"
	"fmt"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/repository"
	"channelmirror/internal/resilience/retrypolicy"

	"github.com/google/uuid"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

type Service struct {
	Repo  repository.QueueItemRepository
	Clock Clock
}

func NewService(repo repository.QueueItemRepository) *Service {
	return &Service{Repo: repo, Clock: time.Now}
}

// Enqueue creates a queue item for episodeID at the given priority. Fails
// with entity.ErrConflict if a non-terminal item already exists for it.
func (s *Service) Enqueue(ctx context.Context, episodeID string, priority int) (*entity.QueueItem, error) {
	existing, err := s.Repo.GetByEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue: %w", err)
	}
	if existing != nil && existing.Status.IsOpen() {
		return nil, entity.ErrConflict
	}

	now := s.Clock()
	item := &entity.QueueItem{
		ID:          uuid.NewString(),
		EpisodeID:   episodeID,
		Priority:    priority,
		Status:      entity.QueueItemStatusPending,
		MaxAttempts: entity.DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("queue: enqueue: create: %w", err)
	}
	return item, nil
}

// NextDue selects, in priority order, any due retrying item ahead of any
// pending item. Returns nil if none are due.
func (s *Service) NextDue(ctx context.Context) (*entity.QueueItem, error) {
	retryable, err := s.Repo.Retryable(ctx, s.Clock())
	if err != nil {
		return nil, fmt.Errorf("queue: next_due: retryable: %w", err)
	}
	if len(retryable) > 0 {
		return retryable[0], nil
	}

	pending, err := s.Repo.NextPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: next_due: pending: %w", err)
	}
	return pending, nil
}

// Claim transitions pending|retrying -> in_progress. Fails with
// entity.ErrConflict if the item is not in a claimable state.
func (s *Service) Claim(ctx context.Context, queueItemID string) (*entity.QueueItem, error) {
	item, err := s.Repo.Get(ctx, queueItemID)
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	if item == nil {
		return nil, entity.ErrNotFound
	}
	if item.Status != entity.QueueItemStatusPending && item.Status != entity.QueueItemStatusRetrying {
		return nil, entity.ErrConflict
	}

	item.Status = entity.QueueItemStatusInProgress
	item.UpdatedAt = s.Clock()
	if err := s.Repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("queue: claim: update: %w", err)
	}
	return item, nil
}

// MarkCompleted transitions in_progress -> completed.
func (s *Service) MarkCompleted(ctx context.Context, queueItemID string) error {
	item, err := s.Repo.Get(ctx, queueItemID)
	if err != nil {
		return fmt.Errorf("queue: mark_completed: %w", err)
	}
	if item == nil {
		return entity.ErrNotFound
	}
	if item.Status != entity.QueueItemStatusInProgress {
		return entity.ErrConflict
	}

	item.Status = entity.QueueItemStatusCompleted
	item.UpdatedAt = s.Clock()
	return s.Repo.Update(ctx, item)
}

// MarkFailed consults the retry policy and transitions the item either to
// retrying (with a scheduled next_retry_at) or to terminal failed.
func (s *Service) MarkFailed(ctx context.Context, queueItemID string, kind entity.ErrorKind, message string) error {
	item, err := s.Repo.Get(ctx, queueItemID)
	if err != nil {
		return fmt.Errorf("queue: mark_failed: %w", err)
	}
	if item == nil {
		return entity.ErrNotFound
	}

	now := s.Clock()
	if kind == entity.ErrorKindCancelled {
		// Cancellation does not consume an attempt; the item returns to
		// pending so it is immediately claimable again.
		item.Status = entity.QueueItemStatusPending
		item.UpdatedAt = now
		return s.Repo.Update(ctx, item)
	}

	item.Attempts++
	item.LastError = message
	decision := retrypolicy.Decide(item.Attempts, item.MaxAttempts, kind)
	if decision.Retryable {
		nextRetry := now.Add(decision.Delay)
		item.Status = entity.QueueItemStatusRetrying
		item.NextRetryAt = &nextRetry
	} else {
		item.Status = entity.QueueItemStatusFailed
		item.NextRetryAt = nil
	}
	item.UpdatedAt = now
	return s.Repo.Update(ctx, item)
}

// Cancel sets status to cancelled if the item is non-terminal. Idempotent.
func (s *Service) Cancel(ctx context.Context, queueItemID string) error {
	item, err := s.Repo.Get(ctx, queueItemID)
	if err != nil {
		return fmt.Errorf("queue: cancel: %w", err)
	}
	if item == nil {
		return entity.ErrNotFound
	}
	if item.Status.IsTerminal() {
		return nil
	}
	item.Status = entity.QueueItemStatusCancelled
	item.UpdatedAt = s.Clock()
	return s.Repo.Update(ctx, item)
}
