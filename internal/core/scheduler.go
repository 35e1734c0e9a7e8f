package core

// scheduler.go runs report history retention in the background.
//
// The pruner deletes reports older than the retention window. It is
// context-aware for graceful shutdown and logs, rather than returns, the
// errors of individual passes.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrPruneUnsupported is returned when the history store cannot delete reports.
var ErrPruneUnsupported = errors.New("history store does not support pruning")

// Pruner is implemented by history stores that can expire reports.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the prune scheduler.
type RetentionConfig struct {
	RetentionDays int           // Days to keep reports; 0 disables pruning
	CheckInterval time.Duration // How often to run (default: 24h)
}

// PruneHistory deletes reports created more than retentionDays ago.
func (s *Service) PruneHistory(ctx context.Context, retentionDays int) (int64, error) {
	if s.store == nil {
		return 0, ErrHistoryDisabled
	}
	pruner, ok := s.store.(Pruner)
	if !ok {
		return 0, ErrPruneUnsupported
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return pruner.Prune(ctx, cutoff)
}

// StartPruneScheduler prunes immediately, then every CheckInterval, until
// ctx is cancelled. It returns at once when retention is disabled.
func (s *Service) StartPruneScheduler(ctx context.Context, cfg RetentionConfig) {
	if cfg.RetentionDays <= 0 || s.store == nil {
		return
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("prune scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval,
	)

	s.runPruneJob(ctx, cfg.RetentionDays)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("prune scheduler stopped")
			return
		case <-ticker.C:
			s.runPruneJob(ctx, cfg.RetentionDays)
		}
	}
}

func (s *Service) runPruneJob(ctx context.Context, retentionDays int) {
	start := time.Now()
	removed, err := s.PruneHistory(ctx, retentionDays)
	if err != nil {
		slog.Error("prune failed", "error", err)
		return
	}
	slog.Info("pruned validation reports",
		"reports_removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
