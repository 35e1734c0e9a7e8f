package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/logging"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

// DefaultValidationTimeout bounds a single run, retrieval included.
const DefaultValidationTimeout = 5 * time.Minute

var (
	// ErrNoSource is returned when a request names no file, URL or data.
	ErrNoSource = errors.New("no source provided")

	// ErrHistoryDisabled is returned by history reads without a store.
	ErrHistoryDisabled = errors.New("report history is disabled")

	// ErrReportNotFound is returned when a report ID is unknown.
	ErrReportNotFound = errors.New("report not found")
)

// HistoryStore persists reports.
type HistoryStore interface {
	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
}

// ServiceConfig tunes the service.
type ServiceConfig struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration

	// KeepData forces Options.KeepData on every run.
	KeepData bool
}

// Service runs validations and keeps their reports.
type Service struct {
	fetcher validator.Fetcher
	store   HistoryStore
	limiter *ValidationLimiter
	timeout time.Duration
	keep    bool
	now     func() time.Time
}

// NewService creates a Service. store may be nil, which disables history.
func NewService(fetcher validator.Fetcher, store HistoryStore, cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	return &Service{
		fetcher: fetcher,
		store:   store,
		limiter: NewValidationLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout: timeout,
		keep:    cfg.KeepData,
		now:     time.Now,
	}
}

// Validate runs one validation and returns its report. A run that fails on
// retrieval still yields a report; an error is returned only when no report
// could be produced (busy, canceled, timed out).
func (s *Service) Validate(ctx context.Context, req Request) (*Report, error) {
	if req.Source.Kind() == fetch.KindBuffer && req.Source.Data == nil {
		return nil, ErrNoSource
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	id := uuid.New()
	logger := logging.WithFields(ctx,
		slog.String("report_id", id.String()),
		slog.String("source", req.Source.String()),
	)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := req.Options
	if s.keep {
		opts.KeepData = true
	}

	start := s.now()
	v := validator.New(opts, req.Dialect, logger)
	err := v.Run(runCtx, s.fetcher, req.Source)
	if err != nil && v.State() != validator.StateFailed {
		logger.Warn("validation incomplete", slog.String("error", err.Error()))
		return nil, fmt.Errorf("validate %s: %w", req.Source, err)
	}

	report := &Report{
		ID:            id,
		Source:        req.Source.String(),
		Valid:         v.Valid(),
		State:         v.State().String(),
		Errors:        nonNil(v.Errors()),
		Warnings:      nonNil(v.Warnings()),
		LineBreaks:    v.LineBreaks(),
		Dialect:       summarizeDialect(v.Dialect()),
		HeaderPresent: v.HeaderPresent(),
		Rows:          v.RowCount(),
		Columns:       v.ColumnCount(),
		Data:          v.Data(),
		BytesRead:     v.BytesRead(),
		Duration:      s.now().Sub(start),
		ClientIP:      IPAddressFromContext(ctx),
		UserAgent:     UserAgentFromContext(ctx),
		CreatedAt:     start.UTC(),
	}
	if opts.RecordFormats {
		report.Formats = v.Formats()
	}

	logger.Info("validation finished",
		slog.Bool("valid", report.Valid),
		slog.String("state", report.State),
		slog.Int("errors", len(report.Errors)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Int("rows", report.Rows),
		slog.Duration("duration", report.Duration),
	)

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report); err != nil {
			// The verdict stands even if history could not be written.
			logger.Error("failed to save report", slog.String("error", err.Error()))
		}
	}

	return report, nil
}

// GetReport loads a stored report.
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.GetReport(ctx, id)
}

// ListReports returns the most recent reports, newest first.
func (s *Service) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListReports(ctx, limit)
}

// HistoryEnabled reports whether reports are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.store != nil
}

// LimiterStatus exposes the concurrency gate for health checks.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForValidations blocks until in-flight runs finish or ctx is done.
func (s *Service) WaitForValidations(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func nonNil(ds []validator.Diagnostic) []validator.Diagnostic {
	if ds == nil {
		return []validator.Diagnostic{}
	}
	return ds
}
