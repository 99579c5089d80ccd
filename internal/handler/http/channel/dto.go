package channel

import (
	"time"

	"channelmirror/internal/domain/entity"
)

// DTO is the wire representation of a channel.
type DTO struct {
	ID            string     `json:"id"`
	SourceURL     string     `json:"source_url"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	KeepCount     int        `json:"keep_count"`
	Format        string     `json:"format"`
	Enabled       bool       `json:"enabled"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toDTO(c *entity.Channel) DTO {
	return DTO{
		ID:            c.ID,
		SourceURL:     c.SourceURL,
		Title:         c.Title,
		Description:   c.Description,
		ThumbnailURL:  c.ThumbnailURL,
		KeepCount:     c.KeepCount,
		Format:        string(c.Format),
		Enabled:       c.Enabled,
		LastRefreshAt: c.LastRefreshAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
