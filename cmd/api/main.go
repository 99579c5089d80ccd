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

	"channelmirror/internal/infra/adapter/persistence/sqlite"
	"channelmirror/internal/infra/db"
	"channelmirror/internal/infra/fetcher"

	"channelmirror/internal/common/pagination"
	hhttp "channelmirror/internal/handler/http"
	hchannel "channelmirror/internal/handler/http/channel"
	hepisode "channelmirror/internal/handler/http/episode"
	hfeed "channelmirror/internal/handler/http/feed"
	hstatus "channelmirror/internal/handler/http/status"
	"channelmirror/internal/pkg/config"
	channelUC "channelmirror/internal/usecase/channel"
	episodeUC "channelmirror/internal/usecase/episode"
	"channelmirror/internal/usecase/queue"
	"channelmirror/internal/usecase/refresh"
	statusUC "channelmirror/internal/usecase/status"
)

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

	apiConf := loadAPIConfig()
	logger.Info("api configuration loaded",
		slog.Int("port", apiConf.Port),
		slog.String("public_url", apiConf.PublicURL),
		slog.String("download_dir", apiConf.DownloadDir))

	if err := os.MkdirAll(apiConf.DownloadDir, 0o755); err != nil {
		logger.Error("failed to create download directory", slog.Any("error", err))
		os.Exit(1)
	}

	channelRepo := sqlite.NewChannelRepo(database)
	episodeRepo := sqlite.NewEpisodeRepo(database)
	queueItemRepo := sqlite.NewQueueItemRepo(database)

	httpClient := createHTTPClient()
	feedFetcher := fetcher.NewYouTubeFeedFetcher(httpClient)
	mediaFetcher := fetcher.NewExecMediaFetcher(loadBinaryPath(logger, "YT_DLP_PATH", "yt-dlp"))
	compositeFetcher := fetcher.NewCompositeFetcher(feedFetcher, mediaFetcher)

	queueSvc := queue.NewService(queueItemRepo)
	refreshSvc := refresh.NewService(channelRepo, episodeRepo, compositeFetcher, queueSvc)

	channelSvc := channelUC.NewService(channelRepo, episodeRepo, refreshSvc)
	episodeSvc := episodeUC.NewService(episodeRepo, channelRepo, queueSvc)
	statusSvc := statusUC.NewService(channelRepo, episodeRepo, queueItemRepo, getVersion(), apiConf.DownloadDir)

	mux := http.NewServeMux()

	hchannel.Register(mux, channelSvc, episodeSvc, refreshSvc, apiConf.Pagination)
	hepisode.Register(mux, episodeSvc)
	hstatus.Register(mux, statusSvc)
	hfeed.Register(mux, channelRepo, episodeRepo, apiConf.PublicURL, apiConf.DownloadDir)

	mux.Handle("GET /healthz", &hhttp.HealthHandler{DB: database, Version: getVersion()})
	mux.Handle("GET /readyz", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /livez", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	handler := hhttp.Logging(logger)(
		hhttp.Recover(logger)(
			hhttp.LimitRequestBody(10 << 20)(
				hhttp.MetricsMiddleware(
					hhttp.Timeout(30 * time.Second)(mux),
				),
			),
		),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", apiConf.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("api server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", slog.Any("error", err))
	}
	logger.Info("api server stopped")
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

// initDatabase opens the database connection and runs migrations.
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
	return database
}

// getVersion returns the build version, defaulting to "dev" when unset.
func getVersion() string {
	return config.LoadEnvString("VERSION", "dev")
}

// apiConfig holds the configuration for the admin HTTP server.
type apiConfig struct {
	Port        int
	PublicURL   string
	DownloadDir string
	Pagination  pagination.Config
}

// loadAPIConfig loads the admin API's configuration from the environment.
func loadAPIConfig() apiConfig {
	return apiConfig{
		Port:        config.LoadEnvInt("API_PORT", 8080, nil).Value.(int),
		PublicURL:   config.LoadEnvString("PUBLIC_URL", "http://localhost:8080"),
		DownloadDir: config.LoadEnvString("DOWNLOAD_DIR", "./data/downloads"),
		Pagination:  pagination.LoadFromEnv(),
	}
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
