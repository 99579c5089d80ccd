package entity

import "time"

// QueueItemStatus is the lifecycle state of a QueueItem.
type QueueItemStatus string

const (
	QueueItemStatusPending    QueueItemStatus = "pending"
	QueueItemStatusInProgress QueueItemStatus = "in_progress"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusRetrying   QueueItemStatus = "retrying"
	QueueItemStatusFailed     QueueItemStatus = "failed"
	QueueItemStatusCancelled  QueueItemStatus = "cancelled"
)

// IsTerminal reports whether status is one from which no further
// transition is possible (completed, failed, cancelled).
func (s QueueItemStatus) IsTerminal() bool {
	switch s {
	case QueueItemStatusCompleted, QueueItemStatusFailed, QueueItemStatusCancelled:
		return true
	default:
		return false
	}
}

// IsOpen reports whether status counts toward the "at most one open queue
// item per episode" invariant (pending, in_progress, retrying).
func (s QueueItemStatus) IsOpen() bool {
	switch s {
	case QueueItemStatusPending, QueueItemStatusInProgress, QueueItemStatusRetrying:
		return true
	default:
		return false
	}
}

// QueueItem is scheduled download work for an episode.
type QueueItem struct {
	ID          string
	EpisodeID   string
	Priority    int
	Status      QueueItemStatus
	Attempts    int
	MaxAttempts int
	LastError   string
	NextRetryAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	// DefaultPriority is used by refresh-discovered queue items.
	DefaultPriority = 5
	// DefaultMaxAttempts bounds the number of retryable failures before a
	// queue item is terminally failed.
	DefaultMaxAttempts = 5
)

// Validate checks field-level invariants.
func (q *QueueItem) Validate() error {
	if q.EpisodeID == "" {
		return &ValidationError{Field: "episode_id", Message: "episode_id is required"}
	}
	if q.Priority < 1 || q.Priority > 10 {
		return &ValidationError{Field: "priority", Message: "priority must be between 1 and 10"}
	}
	if q.Attempts > q.MaxAttempts {
		return &ValidationError{Field: "attempts", Message: "attempts must not exceed max_attempts"}
	}
	if q.Status == QueueItemStatusRetrying && q.NextRetryAt == nil {
		return &ValidationError{Field: "next_retry_at", Message: "next_retry_at is required while retrying"}
	}
	return nil
}
