package entity

import "time"

// Format is the target media format a channel's episodes are mirrored into.
type Format string

const (
	FormatAudio Format = "audio"
	FormatVideo Format = "video"
	FormatBoth  Format = "both"
)

// Channel is a mirrored external source; it produces a feed.
type Channel struct {
	ID             string
	SourceURL      string
	Title          string
	Description    string
	ThumbnailURL   string
	KeepCount      int
	Format         Format
	Enabled        bool
	LastRefreshAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the invariants the data store must enforce before a write:
// source_url unique (enforced by the store), keep_count >= 1, format is one
// of the three known values.
func (c *Channel) Validate() error {
	if c.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "source_url is required"}
	}
	if err := ValidateURL(c.SourceURL); err != nil {
		return err
	}
	if c.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if c.KeepCount < 1 || c.KeepCount > 1000 {
		return &ValidationError{Field: "keep_count", Message: "keep_count must be between 1 and 1000"}
	}
	switch c.Format {
	case FormatAudio, FormatVideo, FormatBoth:
	default:
		return &ValidationError{Field: "format", Message: "format must be one of audio, video, both"}
	}
	return nil
}
