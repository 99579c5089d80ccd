package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channelmirror/internal/concurrency"
	channelCfg "channelmirror/internal/config"
	"channelmirror/internal/infra/adapter/persistence/sqlite"
	"channelmirror/internal/infra/db"
	"channelmirror/internal/infra/fetcher"
	"channelmirror/internal/infra/transcoder"
	workerPkg "channelmirror/internal/infra/worker"
	"channelmirror/internal/pkg/config"
	"channelmirror/internal/usecase/pipeline"
	"channelmirror/internal/usecase/queue"
	"channelmirror/internal/usecase/refresh"
	"channelmirror/internal/usecase/retention"
	internalWorker "channelmirror/internal/worker"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM channels LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.Duration("refresh_interval", workerConfig.RefreshInterval),
		slog.Duration("poll_interval", workerConfig.PollInterval),
		slog.Int("max_concurrent_downloads", workerConfig.MaxConcurrentDownloads),
		slog.String("download_dir", workerConfig.DownloadDir),
		slog.String("temp_dir", workerConfig.TempDir),
		slog.Int("health_port", workerConfig.HealthPort))

	transcodeConfig := channelCfg.LoadTranscodeConfigFromEnv(logger)

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	if err := os.MkdirAll(workerConfig.DownloadDir, 0o755); err != nil {
		logger.Error("failed to create download directory", slog.Any("error", err))
		os.Exit(1)
	}
	if err := os.MkdirAll(workerConfig.TempDir, 0o755); err != nil {
		logger.Error("failed to create temp directory", slog.Any("error", err))
		os.Exit(1)
	}

	channelRepo := sqlite.NewChannelRepo(database)
	episodeRepo := sqlite.NewEpisodeRepo(database)
	queueItemRepo := sqlite.NewQueueItemRepo(database)

	httpClient := createHTTPClient()
	feedFetcher := fetcher.NewYouTubeFeedFetcher(httpClient)
	mediaFetcher := fetcher.NewExecMediaFetcher(loadBinaryPath(logger, "YT_DLP_PATH", "yt-dlp"))
	compositeFetcher := fetcher.NewCompositeFetcher(feedFetcher, mediaFetcher)

	execTranscoder := transcoder.NewExecTranscoder(
		loadBinaryPath(logger, "FFMPEG_PATH", "ffmpeg"),
		loadBinaryPath(logger, "FFPROBE_PATH", "ffprobe"),
	)

	gate, err := concurrency.NewGate(workerConfig.MaxConcurrentDownloads)
	if err != nil {
		logger.Error("failed to create concurrency gate", slog.Any("error", err))
		os.Exit(1)
	}

	retentionSvc := retention.NewService(channelRepo, episodeRepo)

	queueSvc := queue.NewService(queueItemRepo)
	refreshSvc := refresh.NewService(channelRepo, episodeRepo, compositeFetcher, queueSvc)

	p := pipeline.New(channelRepo, episodeRepo, compositeFetcher, execTranscoder, gate, retentionSvc, pipeline.Config{
		DownloadDir: workerConfig.DownloadDir,
		TempDir:     workerConfig.TempDir,
		Audio:       transcodeConfig.Audio,
		Video:       transcodeConfig.Video,
	})

	refreshWorker := internalWorker.NewRefreshWorker(refreshSvc, workerConfig.RefreshInterval, workerMetrics, logger)
	downloadWorker := internalWorker.NewDownloadWorker(queueSvc, p, workerConfig.PollInterval, workerMetrics, logger)

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	go refreshWorker.Run(ctx)
	downloadWorker.Run(ctx)

	logger.Info("worker stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database, err := db.Open()
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	waitForMigrations(logger, database)
	return database
}

// loadBinaryPath loads a command path from envKey, falling back to
// defaultName (resolved via PATH at exec time).
func loadBinaryPath(logger *slog.Logger, envKey, defaultName string) string {
	path := config.LoadEnvString(envKey, defaultName)
	if path == defaultName {
		logger.Info("using default binary path", slog.String("env", envKey), slog.String("path", defaultName))
	}
	return path
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
