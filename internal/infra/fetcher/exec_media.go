package fetcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"channelmirror/internal/domain/entity"
	"channelmirror/internal/resilience/circuitbreaker"
	"channelmirror/internal/usecase/pipeline"

	"github.com/sony/gobreaker"
)

// ExecMediaFetcher implements FetchItemMedia by shelling out to an external
// command-line downloader. Only the command's contract is specified: given
// an item id and an output path, it writes the source media to disk and
// prints progress lines to stderr that this fetcher parses on a best-effort
// basis. Any downloader matching that contract (e.g. yt-dlp-style tools)
// can be wired in via BinaryPath.
type ExecMediaFetcher struct {
	BinaryPath     string
	ExtraArgs      []string
	circuitBreaker *circuitbreaker.CircuitBreaker
	limiter        *RateLimiter
}

// NewExecMediaFetcher creates a fetcher that invokes binaryPath. Media
// fetches are rate-limited alongside feed fetches so the concurrency gate's
// worker count can never translate into a request burst at the source.
func NewExecMediaFetcher(binaryPath string, extraArgs ...string) *ExecMediaFetcher {
	return &ExecMediaFetcher{
		BinaryPath:     binaryPath,
		ExtraArgs:      extraArgs,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("media-fetch")),
		limiter:        NewRateLimiter(1, 3),
	}
}

var progressLineRe = regexp.MustCompile(`(?i)progress[:=]\s*(\d+(?:\.\d+)?)\s*/\s*(\d+)`)

// FetchItemMedia runs the downloader and streams parsed progress to sink.
// outputPath is passed to the downloader as its target path; the downloader
// may rewrite the extension, so the path it actually reports on its final
// stdout line (if any) is preferred over outputPath.
func (f *ExecMediaFetcher) FetchItemMedia(ctx context.Context, externalID, outputPath string, sink pipeline.ProgressSink) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", &pipeline.ExternalError{Kind: entity.ErrorKindCancelled, Err: err}
	}
	if f.circuitBreaker.IsOpen() {
		return "", &pipeline.ExternalError{Kind: entity.ErrorKindNetwork, Err: gobreaker.ErrOpenState}
	}
	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.fetchItemMedia(ctx, externalID, outputPath, sink)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", &pipeline.ExternalError{Kind: entity.ErrorKindNetwork, Err: err}
		}
		return "", err
	}
	return result.(string), nil
}

func (f *ExecMediaFetcher) fetchItemMedia(ctx context.Context, externalID, outputPath string, sink pipeline.ProgressSink) (string, error) {
	args := append([]string{}, f.ExtraArgs...)
	args = append(args, "--id", externalID, "--output", outputPath)

	cmd := exec.CommandContext(ctx, f.BinaryPath, args...) // #nosec G204 -- BinaryPath is operator-configured, not user input

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("fetch_item_media: stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("fetch_item_media: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", classifyExecError(err)
	}

	var lastLine string
	go scanProgress(stderr, sink)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lastLine = line
			}
		}
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", &pipeline.ExternalError{Kind: entity.ErrorKindCancelled, Err: ctx.Err()}
		}
		return "", classifyExecError(err)
	}

	produced := outputPath
	if lastLine != "" {
		produced = lastLine
	}
	return produced, nil
}

// scanProgress reads stderr lines, extracting "progress: N/TOTAL" style
// markers and forwarding them to sink. Lines that don't match are logged at
// debug level and otherwise ignored.
func scanProgress(r io.Reader, sink pipeline.ProgressSink) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		match := progressLineRe.FindStringSubmatch(line)
		if match == nil {
			slog.Debug("downloader output", slog.String("line", line))
			continue
		}
		bytes, err1 := strconv.ParseInt(match[1], 10, 64)
		total, err2 := strconv.ParseInt(match[2], 10, 64)
		if err1 != nil || err2 != nil || sink == nil {
			continue
		}
		progress := pipeline.Progress{Bytes: bytes, Total: &total}
		if total > 0 {
			fraction := float64(bytes) / float64(total)
			progress.Fraction = &fraction
		}
		sink(progress)
	}
}

func classifyExecError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &pipeline.ExternalError{Kind: entity.ErrorKindUnknown, Err: fmt.Errorf("downloader exited %d: %w", exitErr.ExitCode(), err)}
	}
	return &pipeline.ExternalError{Kind: entity.ErrorKindNetwork, Err: err}
}
