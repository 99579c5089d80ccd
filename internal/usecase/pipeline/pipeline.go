package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"channelmirror/internal/concurrency"
	"channelmirror/internal/domain/entity"
	"channelmirror/internal/observability/metrics"
	"channelmirror/internal/repository"

	"github.com/google/uuid"
)

// Clock returns the current instant; overridable in tests.
type Clock func() time.Time

// RetentionRunner invokes retention for a channel after a successful
// completion. Defined here rather than imported to avoid a dependency
// cycle between pipeline and retention.
type RetentionRunner interface {
	RunForChannel(ctx context.Context, channelID string) error
}

// Config holds the filesystem locations and transcode defaults the
// pipeline needs, loaded once at startup.
type Config struct {
	DownloadDir string
	TempDir     string
	Audio       AudioOptions
	Video       VideoOptions
}

// Pipeline executes a single queue item end-to-end: fetch, transcode,
// finalize, and trigger retention.
type Pipeline struct {
	Channels   repository.ChannelRepository
	Episodes   repository.EpisodeRepository
	Fetcher    Fetcher
	Transcoder Transcoder
	Gate       *concurrency.Gate
	Retention  RetentionRunner
	Config     Config
	Clock      Clock
}

func New(channels repository.ChannelRepository, episodes repository.EpisodeRepository, fetcher Fetcher, transcoder Transcoder, gate *concurrency.Gate, retention RetentionRunner, cfg Config) *Pipeline {
	return &Pipeline{
		Channels:   channels,
		Episodes:   episodes,
		Fetcher:    fetcher,
		Transcoder: transcoder,
		Gate:       gate,
		Retention:  retention,
		Config:     cfg,
		Clock:      time.Now,
	}
}

// Result is the outcome of a single pipeline run.
type Result struct {
	Success    bool
	EpisodeID  string
	Duration   time.Duration
	ErrorKind  entity.ErrorKind
	Err        error
}

// cancelled reports whether ctx has already been cancelled, used between
// steps to distinguish a cancellation from an ordinary failure.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Run executes the pipeline for episodeID. sink receives fetch/transcode
// progress reports; it may be nil.
func (p *Pipeline) Run(ctx context.Context, episodeID string, sink ProgressSink) *Result {
	start := p.Clock()
	result := func() *Result {
		episode, channel, err := p.load(ctx, episodeID)
		if err != nil {
			return p.fail(ctx, nil, episodeID, err)
		}
		if !channel.Enabled {
			return &Result{EpisodeID: episodeID, ErrorKind: entity.ErrorKindCancelled, Err: fmt.Errorf("channel %s is disabled", channel.ID)}
		}

		if short, ok := p.shortCircuit(episode); ok {
			return short
		}

		if err := p.transition(ctx, episode, entity.EpisodeStatusDownloading); err != nil {
			return p.fail(ctx, episode, episodeID, fmt.Errorf("transition to downloading: %w", err))
		}

		if err := p.Gate.Acquire(ctx); err != nil {
			return p.cancelOutcome(ctx, episode, err)
		}
		defer p.Gate.Release()

		srcPath := filepath.Join(p.Config.TempDir, fmt.Sprintf("%s-%s.src", episodeID, uuid.NewString()))
		defer p.cleanupTemp(srcPath)

		if cancelled(ctx) {
			return p.cancelOutcome(ctx, episode, ctx.Err())
		}
		producedSrc, err := p.Fetcher.FetchItemMedia(ctx, episode.ExternalID, srcPath, sink)
		if err != nil {
			if cancelled(ctx) {
				return p.cancelOutcome(ctx, episode, err)
			}
			return p.fail(ctx, episode, episodeID, fmt.Errorf("fetch_item_media: %w", err))
		}

		if err := p.transition(ctx, episode, entity.EpisodeStatusProcessing); err != nil {
			return p.fail(ctx, episode, episodeID, fmt.Errorf("transition to processing: %w", err))
		}

		if cancelled(ctx) {
			return p.cancelOutcome(ctx, episode, ctx.Err())
		}

		audioPath, videoPath, audioSize, videoSize, err := p.transcode(ctx, channel, episode, producedSrc, sink)
		if err != nil {
			if cancelled(ctx) {
				return p.cancelOutcome(ctx, episode, err)
			}
			// transcode only ever returns a non-empty leg path for a leg that
			// actually succeeded; on a "both" second-leg failure that is the
			// first artifact, which must survive (spec: keep it, don't delete).
			return p.fail(ctx, episode, episodeID, fmt.Errorf("transcode: %w", err))
		}

		if err := p.finalize(ctx, episode, audioPath, videoPath, audioSize, videoSize); err != nil {
			return &Result{EpisodeID: episodeID, ErrorKind: entity.ErrorKindFatal, Err: fmt.Errorf("finalize: %w", err)}
		}

		if p.Retention != nil {
			if err := p.Retention.RunForChannel(ctx, channel.ID); err != nil {
				slog.Warn("pipeline: retention failed", slog.String("channel_id", channel.ID), slog.Any("error", err))
			}
		}

		return &Result{Success: true, EpisodeID: episodeID}
	}()

	result.Duration = p.Clock().Sub(start)
	p.record(result)
	return result
}

func (p *Pipeline) load(ctx context.Context, episodeID string) (*entity.Episode, *entity.Channel, error) {
	episode, err := p.Episodes.Get(ctx, episodeID)
	if err != nil {
		return nil, nil, fmt.Errorf("get episode: %w", err)
	}
	if episode == nil {
		return nil, nil, entity.ErrNotFound
	}
	channel, err := p.Channels.Get(ctx, episode.ChannelID)
	if err != nil {
		return nil, nil, fmt.Errorf("get channel: %w", err)
	}
	if channel == nil {
		return nil, nil, entity.ErrNotFound
	}
	return episode, channel, nil
}

// shortCircuit implements the idempotence rule: a re-run for an episode
// whose recorded artifacts already exist on disk with matching sizes is
// treated as already complete.
func (p *Pipeline) shortCircuit(episode *entity.Episode) (*Result, bool) {
	if !episode.HasArtifact() {
		return nil, false
	}
	if episode.AudioPath != "" && !sizeMatches(episode.AudioPath, episode.AudioSize) {
		return nil, false
	}
	if episode.VideoPath != "" && !sizeMatches(episode.VideoPath, episode.VideoSize) {
		return nil, false
	}
	return &Result{Success: true, EpisodeID: episode.ID}, true
}

func sizeMatches(path string, want *int64) bool {
	if want == nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() == *want
}

func (p *Pipeline) transition(ctx context.Context, episode *entity.Episode, status entity.EpisodeStatus) error {
	episode.Status = status
	episode.UpdatedAt = p.Clock()
	if err := p.Episodes.Update(ctx, episode); err != nil {
		if errors.Is(err, entity.ErrConflict) {
			return entity.ErrConflict
		}
		return err
	}
	return nil
}

func (p *Pipeline) transcode(ctx context.Context, channel *entity.Channel, episode *entity.Episode, srcPath string, sink ProgressSink) (audioPath, videoPath string, audioSize, videoSize int64, err error) {
	channelDir := filepath.Join(p.Config.DownloadDir, channel.ID)

	if channel.Format == entity.FormatAudio || channel.Format == entity.FormatBoth {
		out := filepath.Join(channelDir, "audio", episode.ExternalID+"."+p.Config.Audio.Format)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return "", "", 0, 0, fmt.Errorf("mkdir audio dir: %w", err)
		}
		res, terr := p.Transcoder.TranscodeAudio(ctx, srcPath, out, p.Config.Audio, sink)
		if terr != nil {
			return "", "", 0, 0, terr
		}
		audioPath, audioSize = res.OutputPath, res.OutputSize
	}

	if channel.Format == entity.FormatVideo || channel.Format == entity.FormatBoth {
		out := filepath.Join(channelDir, "video", episode.ExternalID+"."+p.Config.Video.Format)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return audioPath, "", audioSize, 0, fmt.Errorf("mkdir video dir: %w", err)
		}
		res, terr := p.Transcoder.TranscodeVideo(ctx, srcPath, out, p.Config.Video, sink)
		if terr != nil {
			// Per the "both" contract: a failing second leg keeps the first
			// artifact and reports overall failure; retention cleans it up
			// later. Do not remove audioPath here.
			return audioPath, "", audioSize, 0, terr
		}
		videoPath, videoSize = res.OutputPath, res.OutputSize
	}

	return audioPath, videoPath, audioSize, videoSize, nil
}

func (p *Pipeline) finalize(ctx context.Context, episode *entity.Episode, audioPath, videoPath string, audioSize, videoSize int64) error {
	now := p.Clock()
	episode.AudioPath = audioPath
	episode.VideoPath = videoPath
	if audioPath != "" {
		episode.AudioSize = &audioSize
	}
	if videoPath != "" {
		episode.VideoSize = &videoSize
	}
	episode.DownloadedAt = &now
	episode.Status = entity.EpisodeStatusCompleted
	episode.LastError = ""
	episode.UpdatedAt = now
	return p.Episodes.Update(ctx, episode)
}

// fail marks episode as failed with last_error/retry_count bumped and
// classifies err into a Result. Used for any error before finalize.
func (p *Pipeline) fail(ctx context.Context, episode *entity.Episode, episodeID string, err error) *Result {
	kind := classify(err)
	if errors.Is(err, entity.ErrNotFound) {
		kind = entity.ErrorKindNotFound
	}
	if errors.Is(err, entity.ErrConflict) {
		kind = entity.ErrorKindConflict
	}

	if episode != nil {
		episode.Status = entity.EpisodeStatusFailed
		episode.LastError = err.Error()
		episode.RetryCount++
		episode.UpdatedAt = p.Clock()
		if uerr := p.Episodes.Update(ctx, episode); uerr != nil {
			slog.Warn("pipeline: failed to persist failure", slog.String("episode_id", episodeID), slog.Any("error", uerr))
		}
	}

	return &Result{EpisodeID: episodeID, ErrorKind: kind, Err: err}
}

// cancelOutcome returns episode to pending (not failed) and does not bump
// retry_count, per the cancellation contract.
func (p *Pipeline) cancelOutcome(ctx context.Context, episode *entity.Episode, cause error) *Result {
	if episode != nil {
		safeCtx := context.WithoutCancel(ctx)
		episode.Status = entity.EpisodeStatusPending
		episode.UpdatedAt = p.Clock()
		if err := p.Episodes.Update(safeCtx, episode); err != nil {
			slog.Warn("pipeline: failed to reset cancelled episode", slog.String("episode_id", episode.ID), slog.Any("error", err))
		}
	}
	return &Result{EpisodeID: episodeIDOf(episode), ErrorKind: entity.ErrorKindCancelled, Err: cause}
}

func episodeIDOf(e *entity.Episode) string {
	if e == nil {
		return ""
	}
	return e.ID
}

func (p *Pipeline) cleanupTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("pipeline: failed to remove temp file", slog.String("path", path), slog.Any("error", err))
	}
}


func (p *Pipeline) record(result *Result) {
	status := "success"
	if !result.Success {
		status = "failure"
		if result.ErrorKind == entity.ErrorKindCancelled {
			status = "cancelled"
		}
	}
	metrics.RecordPipelineRun(status)
}

func classify(err error) entity.ErrorKind {
	var extErr *ExternalError
	if errors.As(err, &extErr) {
		return extErr.Kind
	}
	return entity.ErrorKindUnknown
}
