package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvlint/internal/config"
	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/logging"
	"github.com/JonMunkholm/csvlint/internal/store"
	"github.com/JonMunkholm/csvlint/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	fetcher, err := newFetcher(cfg)
	if err != nil {
		slog.Error("failed to configure object storage", "error", err)
		os.Exit(1)
	}

	var history core.HistoryStore
	if cfg.Database.Enabled() {
		pool, err := connectDatabase(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		reports := store.New(pool)
		if err := reports.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}
		history = reports
	} else {
		slog.Info("DATABASE_URL not set, report history disabled")
	}

	service := core.NewService(fetcher, history, core.ServiceConfig{
		MaxConcurrent: cfg.Validation.MaxConcurrent,
		MaxWait:       cfg.Validation.MaxWaitTime,
		Timeout:       cfg.Validation.Timeout,
		KeepData:      cfg.Validation.KeepData,
	})

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartPruneScheduler(jobCtx, core.RetentionConfig{
		RetentionDays: cfg.Database.RetentionDays,
		CheckInterval: cfg.Database.PruneInterval,
	})

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight validations to finish (with timeout)
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for validations to complete", "active", status.Active)
			if err := service.WaitForValidations(shutdownCtx); err != nil {
				slog.Warn("validations did not complete in time", "error", err)
			} else {
				slog.Info("all validations completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// newFetcher builds the retrieval layer, adding an S3 client when configured.
func newFetcher(cfg *config.Config) (*fetch.Fetcher, error) {
	fcfg := fetch.Config{
		Timeout:        cfg.Fetch.Timeout,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		MaxFileSize:    cfg.Fetch.MaxFileSize,
		MaxRetries:     cfg.Fetch.MaxRetries,
		RetryBackoff:   cfg.Fetch.RetryBackoff,
		RateLimit:      cfg.Fetch.RateLimit,
		RateBurst:      cfg.Fetch.RateBurst,
		AllowDowngrade: cfg.Fetch.AllowDowngrade,
		UserAgent:      cfg.Fetch.UserAgent,
	}

	opts := []fetch.Option{fetch.WithLogger(slog.Default())}
	if cfg.Storage.Enabled() {
		objects, err := fetch.NewS3Store(fetch.S3Config{
			EndpointURL:     cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKey,
			SecretAccessKey: cfg.Storage.SecretKey,
			Region:          cfg.Storage.Region,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, fetch.WithObjectStore(objects))
		slog.Info("object storage enabled", "endpoint", cfg.Storage.Endpoint)
	}
	return fetch.New(fcfg, opts...), nil
}

// connectDatabase opens and pings a pgx pool.
func connectDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
