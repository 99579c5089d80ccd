package worker

import (
	"channelmirror/internal/pkg/config"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig holds the configuration shared by the refresh worker and the
// download worker: how often each runs, how much download concurrency is
// allowed, where artifacts land on disk, and the health server port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules to ensure
// the worker can operate safely even with invalid or missing configuration.
//
// Example usage:
//
//	// Use defaults
//	config := DefaultConfig()
//
//	// Load from environment with fallback
//	config, err := LoadConfigFromEnv(logger, metrics)
//	if err != nil {
//	    // This should never happen with fail-open strategy
//	    log.Fatal("Unexpected configuration error: %v", err)
//	}
type WorkerConfig struct {
	// RefreshInterval is how often the refresh worker polls every enabled
	// channel for new episodes.
	// Validation: must be at least 5 minutes
	// Default: 1h
	RefreshInterval time.Duration

	// PollInterval is how long the download worker sleeps after a cycle in
	// which it found nothing to claim, before checking the queue again.
	// Default: 5s
	PollInterval time.Duration

	// MaxConcurrentDownloads bounds the download pipeline's concurrency
	// gate: the number of fetch/transcode runs allowed in flight at once.
	// Range: 1-10
	// Default: 3
	MaxConcurrentDownloads int

	// DownloadDir is the root directory finished artifacts are written
	// under, laid out as <download_dir>/<channel_id>/<audio|video>/.
	// Default: ./data/downloads
	DownloadDir string

	// TempDir is the scratch directory source media is fetched into before
	// transcoding. Files here are removed once a pipeline run finishes.
	// Default: ./data/tmp
	TempDir string

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		RefreshInterval:        1 * time.Hour,
		PollInterval:           5 * time.Second,
		MaxConcurrentDownloads: 3,
		DownloadDir:            "./data/downloads",
		TempDir:                "./data/tmp",
		HealthPort:             9091,
	}
}

// Validate checks if the configuration values are valid.
// This method validates each field using the reusable validators from internal/pkg/config.
// If multiple fields are invalid, all errors are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.RefreshInterval, 5*time.Minute, 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("refresh interval: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll interval: %w", err))
	}

	if err := config.ValidateIntRange(c.MaxConcurrentDownloads, 1, 10); err != nil {
		errs = append(errs, fmt.Errorf("max concurrent downloads: %w", err))
	}

	if c.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("download dir: must not be empty"))
	}

	if c.TempDir == "" {
		errs = append(errs, fmt.Errorf("temp dir: must not be empty"))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - REFRESH_INTERVAL: Duration string, e.g. "1h" (default: 1h, min 5m)
//   - POLL_INTERVAL: Duration string, e.g. "5s" (default: 5s)
//   - MAX_CONCURRENT_DOWNLOADS: Integer 1-10 (default: 3)
//   - DOWNLOAD_DIR: Path (default: ./data/downloads)
//   - TEMP_DIR: Path (default: ./data/tmp)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvDuration("REFRESH_INTERVAL", cfg.RefreshInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 5*time.Minute, 24*time.Hour)
	})
	cfg.RefreshInterval = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("refresh_interval")
		metrics.RecordFallback("refresh_interval", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RefreshInterval"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("POLL_INTERVAL", cfg.PollInterval, config.ValidatePositiveDuration)
	cfg.PollInterval = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("poll_interval")
		metrics.RecordFallback("poll_interval", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "PollInterval"),
				slog.String("warning", warning))
		}
	}

	intResult := config.LoadEnvInt("MAX_CONCURRENT_DOWNLOADS", cfg.MaxConcurrentDownloads, func(v int) error {
		return config.ValidateIntRange(v, 1, 10)
	})
	cfg.MaxConcurrentDownloads = intResult.Value.(int)
	if intResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("max_concurrent_downloads")
		metrics.RecordFallback("max_concurrent_downloads", "default")
		for _, warning := range intResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "MaxConcurrentDownloads"),
				slog.String("warning", warning))
		}
	}

	cfg.DownloadDir = config.LoadEnvString("DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.TempDir = config.LoadEnvString("TEMP_DIR", cfg.TempDir)

	intResult = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = intResult.Value.(int)
	if intResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range intResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
