// Package pipeline executes a single queue item end-to-end: fetch source
// media, transcode it, finalize the episode row, and trigger retention.
package pipeline

import (
	"context"
	"time"

	"channelmirror/internal/domain/entity"
)

// FeedEntry is one item a Fetcher lists or describes, shaped the same way
// whether it comes from list_channel_items or fetch_item_metadata.
type FeedEntry struct {
	ExternalID      string
	Title           string
	Description     string
	ThumbnailURL    string
	DurationSeconds *int
	PublishedAt     *time.Time
}

// Progress is one point-in-time report of fetch or transcode progress.
type Progress struct {
	Bytes    int64
	Total    *int64
	Fraction *float64
}

// ProgressSink receives Progress reports; implementations must not block.
type ProgressSink func(Progress)

// Fetcher lists a channel's items and downloads one item's source media.
// Every operation must return promptly once ctx is cancelled.
type Fetcher interface {
	ListChannelItems(ctx context.Context, sourceURL string) ([]FeedEntry, error)
	FetchItemMetadata(ctx context.Context, externalID string) (FeedEntry, error)
	// FetchItemMedia writes the source media file to outputPath's directory
	// and returns the path it actually wrote (the fetcher may append an
	// extension it only discovers at fetch time).
	FetchItemMedia(ctx context.Context, externalID, outputPath string, sink ProgressSink) (producedPath string, err error)
}

// MediaInfo is the result of probing a media file.
type MediaInfo struct {
	Duration    time.Duration
	VideoCodec  string
	AudioCodec  string
	Width       int
	Height      int
}

// AudioOptions configures an audio transcode.
type AudioOptions struct {
	Format     string
	Bitrate    string
	SampleRate int
	Channels   int
}

// VideoOptions configures a video transcode.
type VideoOptions struct {
	Format            string
	VideoCodec        string
	Preset            string
	CRF               int
	AudioBitrate      string
	AudioSampleRate   int
	AudioChannels     int
	Threads           int
}

// TranscodeResult is returned by a successful transcode.
type TranscodeResult struct {
	ExitCode   int
	Duration   time.Duration
	OutputPath string
	OutputSize int64
}

// Transcoder re-encodes media files and reports on them.
type Transcoder interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	TranscodeAudio(ctx context.Context, input, output string, opts AudioOptions, sink ProgressSink) (TranscodeResult, error)
	TranscodeVideo(ctx context.Context, input, output string, opts VideoOptions, sink ProgressSink) (TranscodeResult, error)
}

// ExternalError wraps an error from a Fetcher or Transcoder call with its
// classified kind, so pipeline code never has to re-derive it.
type ExternalError struct {
	Kind entity.ErrorKind
	Err  error
}

func (e *ExternalError) Error() string { return e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }
