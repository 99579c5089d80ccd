package entity

import "time"

// EpisodeStatus is the lifecycle state of an Episode.
type EpisodeStatus string

const (
	EpisodeStatusPending     EpisodeStatus = "pending"
	EpisodeStatusDownloading EpisodeStatus = "downloading"
	EpisodeStatusProcessing  EpisodeStatus = "processing"
	EpisodeStatusCompleted   EpisodeStatus = "completed"
	EpisodeStatusFailed      EpisodeStatus = "failed"
	EpisodeStatusDeleted     EpisodeStatus = "deleted"
)

// Episode is one item discovered on a channel; the unit of download.
type Episode struct {
	ID              string
	ChannelID       string
	ExternalID      string
	Title           string
	Description     string
	ThumbnailURL    string
	DurationSeconds *int
	PublishedAt     *time.Time
	Status          EpisodeStatus
	DownloadedAt    *time.Time
	AudioPath       string
	VideoPath       string
	AudioSize       *int64
	VideoSize       *int64
	RetryCount      int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks field-level invariants that do not depend on store state.
func (e *Episode) Validate() error {
	if e.ChannelID == "" {
		return &ValidationError{Field: "channel_id", Message: "channel_id is required"}
	}
	if e.ExternalID == "" {
		return &ValidationError{Field: "external_id", Message: "external_id is required"}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	return nil
}

// HasArtifact reports whether the episode's completion invariant is
// satisfiable from the row alone (an audio or video path is recorded).
// It does not check the filesystem; callers that need the full invariant
// ("file exists and size matches") must stat the path themselves.
func (e *Episode) HasArtifact() bool {
	return e.AudioPath != "" || e.VideoPath != ""
}
