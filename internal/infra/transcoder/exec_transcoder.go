// Package transcoder implements pipeline.Transcoder by shelling out to an
// external ffmpeg-compatible encoder, in the manner of a command-line media
// tool wrapper: probe first, then transcode with progress parsed from
// stderr.
package transcoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/resilience/circuitbreaker"
	"channelmirror/internal/usecase/pipeline"

	"github.com/sony/gobreaker"
)

// ExecTranscoder drives an ffmpeg-compatible binary for probing and
// transcoding. FFmpegPath and FFprobePath are operator-configured, not
// derived from request input.
type ExecTranscoder struct {
	FFmpegPath     string
	FFprobePath    string
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewExecTranscoder(ffmpegPath, ffprobePath string) *ExecTranscoder {
	return &ExecTranscoder{
		FFmpegPath:     ffmpegPath,
		FFprobePath:    ffprobePath,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("transcode")),
	}
}

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+\.\d+)`)
	streamRe   = regexp.MustCompile(`Stream #\d+:\d+.*?:\s*(Video|Audio):\s*(\w+).*?(?:,\s*(\d+)x(\d+))?`)
	progressRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.\d+)`)
)

// Probe runs ffprobe-style inspection via ffmpeg itself (ffmpeg -i prints
// format info to stderr even without an output), avoiding a second binary
// dependency when ffprobe is unavailable.
func (t *ExecTranscoder) Probe(ctx context.Context, path string) (pipeline.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, t.FFmpegPath, "-hide_banner", "-i", path) // #nosec G204 -- path is server-controlled
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return pipeline.MediaInfo{}, fmt.Errorf("probe: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return pipeline.MediaInfo{}, classifyExecError(err, ctx)
	}

	var info pipeline.MediaInfo
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if m := durationRe.FindStringSubmatch(line); m != nil {
			info.Duration = parseFFmpegDuration(m[1], m[2], m[3])
		}
		if m := streamRe.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "video":
				info.VideoCodec = m[2]
				if m[3] != "" && m[4] != "" {
					if w, err := strconv.Atoi(m[3]); err == nil {
						info.Width = w
					}
					if h, err := strconv.Atoi(m[4]); err == nil {
						info.Height = h
					}
				}
			case "audio":
				info.AudioCodec = m[2]
			}
		}
	}

	// ffmpeg -i with no output always exits non-zero; that's expected and
	// not itself a probe failure as long as we parsed a duration.
	_ = cmd.Wait()
	if info.Duration == 0 && info.VideoCodec == "" && info.AudioCodec == "" {
		return pipeline.MediaInfo{}, &pipeline.ExternalError{
			Kind: entity.ErrorKindFormat,
			Err:  fmt.Errorf("probe: %s: no stream information found", path),
		}
	}
	return info, nil
}

func parseFFmpegDuration(hh, mm, ss string) time.Duration {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.ParseFloat(ss, 64)
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s*float64(time.Second))
}

// TranscodeAudio re-encodes input to an audio-only file at output.
func (t *ExecTranscoder) TranscodeAudio(ctx context.Context, input, output string, opts pipeline.AudioOptions, sink pipeline.ProgressSink) (pipeline.TranscodeResult, error) {
	args := []string{"-hide_banner", "-y", "-i", input, "-vn"}
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	args = append(args, output)
	return t.run(ctx, args, output, sink)
}

// TranscodeVideo re-encodes input to a video file at output.
func (t *ExecTranscoder) TranscodeVideo(ctx context.Context, input, output string, opts pipeline.VideoOptions, sink pipeline.ProgressSink) (pipeline.TranscodeResult, error) {
	args := []string{"-hide_banner", "-y", "-i", input}
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	if opts.Preset != "" {
		args = append(args, "-preset", opts.Preset)
	}
	if opts.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}
	if opts.AudioBitrate != "" {
		args = append(args, "-b:a", opts.AudioBitrate)
	}
	if opts.AudioSampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.AudioSampleRate))
	}
	if opts.AudioChannels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.AudioChannels))
	}
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args, output)
	return t.run(ctx, args, output, sink)
}

func (t *ExecTranscoder) run(ctx context.Context, args []string, output string, sink pipeline.ProgressSink) (pipeline.TranscodeResult, error) {
	result, err := t.circuitBreaker.Execute(func() (interface{}, error) {
		return t.runOnce(ctx, args, output, sink)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return pipeline.TranscodeResult{}, &pipeline.ExternalError{Kind: entity.ErrorKindNetwork, Err: err}
		}
		return pipeline.TranscodeResult{}, err
	}
	return result.(pipeline.TranscodeResult), nil
}

func (t *ExecTranscoder) runOnce(ctx context.Context, args []string, output string, sink pipeline.ProgressSink) (pipeline.TranscodeResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, t.FFmpegPath, args...) // #nosec G204 -- FFmpegPath is operator-configured, args are built from validated options

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return pipeline.TranscodeResult{}, fmt.Errorf("transcode: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return pipeline.TranscodeResult{}, classifyExecError(err, ctx)
	}

	go scanTranscodeProgress(stderr, sink)

	waitErr := cmd.Wait()
	duration := time.Since(start)
	if waitErr != nil {
		if ctx.Err() != nil {
			return pipeline.TranscodeResult{}, &pipeline.ExternalError{Kind: entity.ErrorKindCancelled, Err: ctx.Err()}
		}
		return pipeline.TranscodeResult{}, classifyExecError(waitErr, ctx)
	}

	info, statErr := statSize(output)
	if statErr != nil {
		slog.Warn("transcode: could not stat output", slog.String("path", output), slog.Any("error", statErr))
	}

	return pipeline.TranscodeResult{
		ExitCode:   0,
		Duration:   duration,
		OutputPath: output,
		OutputSize: info,
	}, nil
}

func statSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func scanTranscodeProgress(stderr io.Reader, sink pipeline.ProgressSink) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		m := progressRe.FindStringSubmatch(line)
		if m == nil || sink == nil {
			continue
		}
		elapsed := parseFFmpegDuration(m[1], m[2], m[3])
		sink(pipeline.Progress{Bytes: int64(elapsed.Seconds())})
	}
}

func classifyExecError(err error, ctx context.Context) error {
	if ctx.Err() != nil {
		return &pipeline.ExternalError{Kind: entity.ErrorKindCancelled, Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &pipeline.ExternalError{Kind: entity.ErrorKindUnknown, Err: fmt.Errorf("ffmpeg exited %d: %w", exitErr.ExitCode(), err)}
	}
	return &pipeline.ExternalError{Kind: entity.ErrorKindUnknown, Err: err}
}
