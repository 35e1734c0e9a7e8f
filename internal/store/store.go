// Package store persists validation reports in PostgreSQL.
//
// Each report is stored as one row: summary columns for listing plus the
// full report as JSONB. Queries are built with squirrel using $n
// placeholders.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvlint/internal/core"
)

const table = "validation_reports"

// Schema creates the reports table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS validation_reports (
	id            uuid PRIMARY KEY,
	source        text        NOT NULL,
	valid         boolean     NOT NULL,
	state         text        NOT NULL,
	error_count   integer     NOT NULL,
	warning_count integer     NOT NULL,
	client_ip     text,
	report        jsonb       NOT NULL,
	created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS validation_reports_created_at_idx
	ON validation_reports (created_at DESC);
`

// DBTX is the subset of pgxpool.Pool used by the store.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.HistoryStore.
type Store struct {
	db DBTX
	sb sq.StatementBuilderType
}

// New creates a Store over db.
func New(db DBTX) *Store {
	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the table and index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveReport inserts r. Data rows are not persisted.
func (s *Store) SaveReport(ctx context.Context, r *core.Report) error {
	query, args, err := s.insertQuery(r)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) insertQuery(r *core.Report) (string, []any, error) {
	stored := *r
	stored.Data = nil
	body, err := json.Marshal(&stored)
	if err != nil {
		return "", nil, fmt.Errorf("encode report: %w", err)
	}

	var clientIP pgtype.Text
	if r.ClientIP != "" {
		clientIP = pgtype.Text{String: r.ClientIP, Valid: true}
	}

	query, args, err := s.sb.
		Insert(table).
		Columns("id", "source", "valid", "state", "error_count", "warning_count", "client_ip", "report", "created_at").
		Values(toPgUUID(r.ID), r.Source, r.Valid, r.State, len(r.Errors), len(r.Warnings), clientIP, body, r.CreatedAt).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}

// GetReport loads one report.
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*core.Report, error) {
	query, args, err := s.sb.
		Select("report").
		From(table).
		Where(sq.Eq{"id": toPgUUID(id)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var body []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	var r core.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

// ListReports returns up to limit summaries, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]core.ReportSummary, error) {
	query, args, err := s.listQuery(limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	summaries := make([]core.ReportSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return summaries, nil
}

func (s *Store) listQuery(limit int) (string, []any, error) {
	query, args, err := s.sb.
		Select("id", "source", "valid", "state", "error_count", "warning_count", "created_at").
		From(table).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build list: %w", err)
	}
	return query, args, nil
}

func scanSummary(rows pgx.Rows) (core.ReportSummary, error) {
	var (
		id           pgtype.UUID
		source       string
		valid        bool
		state        string
		errorCount   int32
		warningCount int32
		createdAt    pgtype.Timestamptz
	)
	if err := rows.Scan(&id, &source, &valid, &state, &errorCount, &warningCount, &createdAt); err != nil {
		return core.ReportSummary{}, fmt.Errorf("scan report: %w", err)
	}
	return core.ReportSummary{
		ID:           fromPgUUID(id),
		Source:       source,
		Valid:        valid,
		State:        state,
		ErrorCount:   int(errorCount),
		WarningCount: int(warningCount),
		CreatedAt:    createdAt.Time,
	}, nil
}

// Prune deletes reports created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := s.pruneQuery(cutoff)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) pruneQuery(cutoff time.Time) (string, []any, error) {
	query, args, err := s.sb.
		Delete(table).
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build prune: %w", err)
	}
	return query, args, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func fromPgUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}
