package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvlint/internal/dialect"
	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

// Request describes one validation.
type Request struct {
	Source  fetch.Source
	Options validator.Options

	// Dialect is an optional CSV-DDF mapping.
	Dialect map[string]any
}

// DialectSummary is the resolved dialect in display form.
type DialectSummary struct {
	Delimiter      string `json:"delimiter"`
	QuoteChar      string `json:"quote_char"`
	LineTerminator string `json:"line_terminator"`
	SkipBlanks     bool   `json:"skip_blanks"`
}

func summarizeDialect(d dialect.Dialect) DialectSummary {
	return DialectSummary{
		Delimiter:      string(d.Delimiter),
		QuoteChar:      string(d.QuoteChar),
		LineTerminator: d.LineTerminator,
		SkipBlanks:     d.SkipBlanks,
	}
}

// Report is the outcome of one validation run.
type Report struct {
	ID            uuid.UUID                `json:"id"`
	Source        string                   `json:"source"`
	Valid         bool                     `json:"valid"`
	State         string                   `json:"state"`
	Errors        []validator.Diagnostic   `json:"errors"`
	Warnings      []validator.Diagnostic   `json:"warnings"`
	LineBreaks    string                   `json:"line_breaks"`
	Dialect       DialectSummary           `json:"dialect"`
	HeaderPresent bool                     `json:"header_present"`
	Rows          int                      `json:"rows"`
	Columns       int                      `json:"columns"`
	Formats       []validator.ColumnFormat `json:"formats,omitempty"`
	Data          [][]string               `json:"data,omitempty"`
	BytesRead     int64                    `json:"bytes_read"`
	Duration      time.Duration            `json:"duration_ns"`
	ClientIP      string                   `json:"client_ip,omitempty"`
	UserAgent     string                   `json:"user_agent,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Summary condenses the report for listings.
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:           r.ID,
		Source:       r.Source,
		Valid:        r.Valid,
		State:        r.State,
		ErrorCount:   len(r.Errors),
		WarningCount: len(r.Warnings),
		CreatedAt:    r.CreatedAt,
	}
}

// ReportSummary is a report without its diagnostics.
type ReportSummary struct {
	ID           uuid.UUID `json:"id"`
	Source       string    `json:"source"`
	Valid        bool      `json:"valid"`
	State        string    `json:"state"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}
