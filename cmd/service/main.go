// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"repo-mirror/internal/api"
	"repo-mirror/internal/assistant"
	"repo-mirror/internal/auth"
	"repo-mirror/internal/cache"
	"repo-mirror/internal/config"
	"repo-mirror/internal/github"
	"repo-mirror/internal/gitlab"
	"repo-mirror/internal/model"
	"repo-mirror/internal/store"
	"repo-mirror/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully", "provider", cfg.UpstreamProvider)

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.MigrationsPath, cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	router, appSyncer, err := buildApp(cfg, dbpool, logger)
	if err != nil {
		return err
	}

	// 6. Start the background refresher and the HTTP server
	go appSyncer.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 7. Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// buildApp wires the store, upstream connector, cache, orchestrator and HTTP router.
func buildApp(cfg *config.Config, dbpool *pgxpool.Pool, logger *slog.Logger) (http.Handler, *syncer.Syncer, error) {
	source, err := newSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	repoCache := cache.New[int64, *model.Repository](cfg.CacheTTL)
	appSyncer, err := syncer.NewSyncer(store.New(dbpool, logger), source, repoCache, logger, syncer.RefreshConfig{
		Token:         cfg.ServiceToken,
		RepositoryIDs: cfg.SyncRepositoryIDs,
		Interval:      cfg.SyncInterval,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	ai := assistant.New(assistant.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: &cfg.AITemperature,
	}, appSyncer, logger)

	oauth := auth.NewGitLab(auth.Config{
		BaseURL:      cfg.GitLabBaseURL,
		ClientID:     cfg.GitLabClientID,
		ClientSecret: cfg.GitLabClientSecret,
		RedirectURL:  cfg.GitLabRedirectURI,
	})

	return api.NewRouter(appSyncer, ai, oauth, logger), appSyncer, nil
}

func newSource(cfg *config.Config, logger *slog.Logger) (syncer.Source, error) {
	switch cfg.UpstreamProvider {
	case config.ProviderGitHub:
		client, err := github.NewClient(github.Options{
			BaseURL:         cfg.GitHubBaseURL,
			Timeout:         cfg.UpstreamTimeout,
			MaxRetries:      cfg.UpstreamMaxRetries,
			CommitPageLimit: cfg.CommitPageLimit,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create github client: %w", err)
		}
		return client, nil
	default:
		return gitlab.NewClient(gitlab.Options{
			BaseURL:         cfg.GitLabBaseURL,
			Timeout:         cfg.UpstreamTimeout,
			MaxRetries:      cfg.UpstreamMaxRetries,
			CommitPageLimit: cfg.CommitPageLimit,
		}, logger), nil
	}
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
