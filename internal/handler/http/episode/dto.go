// Package episode provides the admin HTTP handlers for inspecting,
// deleting, and retrying individual episodes.
package episode

import (
	"time"

	"channelmirror/internal/domain/entity"
)

// DTO is the wire representation of an episode.
type DTO struct {
	ID              string     `json:"id"`
	ChannelID       string     `json:"channel_id"`
	ExternalID      string     `json:"external_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	Status          string     `json:"status"`
	DownloadedAt    *time.Time `json:"downloaded_at,omitempty"`
	AudioPath       string     `json:"audio_path,omitempty"`
	VideoPath       string     `json:"video_path,omitempty"`
	AudioSize       *int64     `json:"audio_size,omitempty"`
	VideoSize       *int64     `json:"video_size,omitempty"`
	RetryCount      int        `json:"retry_count"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toDTO(e *entity.Episode) DTO {
	return DTO{
		ID:              e.ID,
		ChannelID:       e.ChannelID,
		ExternalID:      e.ExternalID,
		Title:           e.Title,
		Description:     e.Description,
		ThumbnailURL:    e.ThumbnailURL,
		DurationSeconds: e.DurationSeconds,
		PublishedAt:     e.PublishedAt,
		Status:          string(e.Status),
		DownloadedAt:    e.DownloadedAt,
		AudioPath:       e.AudioPath,
		VideoPath:       e.VideoPath,
		AudioSize:       e.AudioSize,
		VideoSize:       e.VideoSize,
		RetryCount:      e.RetryCount,
		LastError:       e.LastError,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}
