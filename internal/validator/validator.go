// Package validator checks delimited text for structural soundness and
// schema quality and reports the findings as errors and warnings.
//
// A Validator performs exactly one run:
//
//	v := validator.New(opts, ddf, logger)
//	err := v.Run(ctx, fetcher, src)
//	if v.Valid() { ... }
//
// Runs stream rows and hold only per-column type sets unless KeepData or
// RecordFormats ask for more.
package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/csvlint/internal/dialect"
	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/tokenize"
)

// ErrIncomplete is returned by Run when the context ends before the last row.
var ErrIncomplete = errors.New("validation incomplete")

// State is the lifecycle position of a run.
type State int

const (
	StateInit State = iota
	StateDialectResolved
	StateHeaderResolved
	StateStreamingRows
	StateConsistencyChecked
	StateDone
	StateFailed
	StateCanceled
)

var stateNames = [...]string{
	StateInit:               "init",
	StateDialectResolved:    "dialect_resolved",
	StateHeaderResolved:     "header_resolved",
	StateStreamingRows:      "streaming_rows",
	StateConsistencyChecked: "consistency_checked",
	StateDone:               "done",
	StateFailed:             "failed",
	StateCanceled:           "canceled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options configure a run. Empty strings and nil pointers mean "not set".
type Options struct {
	Header         *bool
	Delimiter      string
	LineTerminator string
	QuoteChar      string
	SkipBlanks     *bool

	// KeepData retains data rows for Data().
	KeepData bool

	// RecordFormats retains the ordered per-column type history.
	RecordFormats bool
}

// Fetcher opens a source.
type Fetcher interface {
	Fetch(ctx context.Context, src fetch.Source) (*fetch.Resource, error)
}

// Validator owns the state of a single run.
type Validator struct {
	opts    Options
	ddf     map[string]any
	logger  *slog.Logger
	state   State
	dialect dialect.Dialect

	headerPresent bool
	lineBreak     string
	rowCount      int
	firstWidth    int
	bytesRead     int64

	errors   []Diagnostic
	warnings []Diagnostic
	data     [][]string
	formats  *formatTracker
}

// New prepares a run. ddf may be nil. A nil logger discards output.
func New(opts Options, ddf map[string]any, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Validator{
		opts:       opts,
		ddf:        ddf,
		logger:     logger,
		state:      StateInit,
		firstWidth: -1,
		formats:    newFormatTracker(opts.RecordFormats),
	}
}

// Run retrieves src and validates it. Diagnostics never surface as errors;
// Run returns an error only for a fatal failure or ErrIncomplete.
func (v *Validator) Run(ctx context.Context, fetcher Fetcher, src fetch.Source) error {
	if v.state != StateInit {
		return fmt.Errorf("validator already used (state %s)", v.state)
	}

	v.dialect = dialect.Resolve(dialect.Options{
		Delimiter:      v.opts.Delimiter,
		LineTerminator: v.opts.LineTerminator,
		QuoteChar:      v.opts.QuoteChar,
		SkipBlanks:     v.opts.SkipBlanks,
	}, v.ddf)
	v.transition(StateDialectResolved)

	if err := ctx.Err(); err != nil {
		return v.cancel(err)
	}

	res, err := fetcher.Fetch(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return v.cancel(ctx.Err())
		}
		return v.fail(err)
	}
	defer res.Body.Close()

	v.headerPresent = HeaderPresent(ExplicitHeader(v.opts.Header), ContentTypeHeader(res.ContentType))
	v.errors = append(v.errors, headerAmbiguity(v.opts.Header, res.ContentType)...)
	v.transition(StateHeaderResolved)

	body, counter := tokenize.WrapForStreaming(res.Body, res.Size)
	reader := tokenize.NewReader(body, v.dialect)

	v.transition(StateStreamingRows)
	err = v.streamRows(ctx, reader)
	v.bytesRead = counter.BytesRead()
	v.lineBreak = reader.LineBreak()
	if err != nil {
		if errors.Is(err, ErrIncomplete) || ctx.Err() != nil {
			return v.cancel(ctx.Err())
		}
		return v.fail(err)
	}

	v.CheckConsistency()
	v.transition(StateConsistencyChecked)

	v.transition(StateDone)
	v.logger.Debug("validation finished",
		slog.String("source", src.String()),
		slog.Int("rows", v.rowCount),
		slog.Int("errors", len(v.errors)),
		slog.Int("warnings", len(v.warnings)),
	)
	return nil
}

func (v *Validator) streamRows(ctx context.Context, reader *tokenize.Reader) error {
	for {
		if ctx.Err() != nil {
			return ErrIncomplete
		}

		rowIndex := reader.Row()
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}

		var perr *tokenize.ParseError
		if errors.As(err, &perr) {
			v.errors = append(v.errors, quoteDiagnostic(perr))
		} else if err != nil {
			return err
		}
		v.rowCount++

		v.processRow(row, rowIndex)
	}
}

func (v *Validator) processRow(row []string, rowIndex int) {
	if len(row) == 0 {
		if !v.dialect.SkipBlanks {
			v.errors = append(v.errors, newDiagnostic(KindBlankRows, CategoryStructure).atRow(rowIndex))
		}
		return
	}

	if v.firstWidth < 0 {
		v.firstWidth = len(row)
	} else if len(row) != v.firstWidth {
		v.errors = append(v.errors, newDiagnostic(KindRaggedRows, CategoryStructure).atRow(rowIndex))
	}

	// Only physical row 0 is a header. When it is blank the file is treated
	// as headerless and the first non-blank row is data.
	if rowIndex == 0 && v.headerPresent {
		v.ValidateHeader(row)
		return
	}

	v.BuildFormats(row, rowIndex)
	if v.opts.KeepData {
		v.data = append(v.data, row)
	}
}

func quoteDiagnostic(perr *tokenize.ParseError) Diagnostic {
	kind := KindStrayQuote
	if perr.Kind == tokenize.UnclosedQuote {
		kind = KindUnclosedQuote
	}
	return newDiagnostic(kind, CategoryStructure).atRow(perr.Row).atColumn(perr.Column)
}

// fail records a fatal failure as the run's only error.
func (v *Validator) fail(err error) error {
	kind := classifyFatal(err)
	v.logger.Warn("validation failed",
		slog.String("type", string(kind)),
		slog.String("error", err.Error()),
	)
	v.errors = []Diagnostic{newDiagnostic(kind, CategoryStructure)}
	v.warnings = nil
	v.data = nil
	v.transition(StateFailed)
	return err
}

func (v *Validator) cancel(cause error) error {
	v.data = nil
	v.transition(StateCanceled)
	if cause == nil {
		return ErrIncomplete
	}
	return fmt.Errorf("%w: %w", ErrIncomplete, cause)
}

func classifyFatal(err error) Kind {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return KindNotFound
	case errors.Is(err, fetch.ErrTooManyRedirects):
		return KindTooManyRedirects
	case errors.Is(err, fetch.ErrInsecureRedirect):
		return KindInsecureRedirect
	case errors.Is(err, fetch.ErrTooLarge):
		return KindSourceTooLarge
	case errors.Is(err, tokenize.ErrInvalidEncoding):
		return KindInvalidEncoding
	default:
		return KindUnreachableSource
	}
}

func (v *Validator) transition(to State) {
	v.logger.Debug("validator state", slog.String("from", v.state.String()), slog.String("to", to.String()))
	v.state = to
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Valid reports whether the run finished with no errors. Failed and
// canceled runs are never valid.
func (v *Validator) Valid() bool {
	return v.state == StateDone && len(v.errors) == 0
}

// Errors returns the error diagnostics in detection order.
func (v *Validator) Errors() []Diagnostic { return v.errors }

// Warnings returns the warning diagnostics in detection order.
func (v *Validator) Warnings() []Diagnostic { return v.warnings }

// Data returns the data rows, excluding the header, when KeepData was set.
func (v *Validator) Data() [][]string { return v.data }

// State returns the lifecycle state.
func (v *Validator) State() State { return v.state }

// Dialect returns the resolved dialect.
func (v *Validator) Dialect() dialect.Dialect { return v.dialect }

// HeaderPresent reports the resolved header presence.
func (v *Validator) HeaderPresent() bool { return v.headerPresent }

// RowCount returns the number of rows read, including header and blank rows.
func (v *Validator) RowCount() int { return v.rowCount }

// ColumnCount returns the width of the first non-blank row.
func (v *Validator) ColumnCount() int {
	if v.firstWidth < 0 {
		return 0
	}
	return v.firstWidth
}

// BytesRead returns the bytes consumed from the source.
func (v *Validator) BytesRead() int64 { return v.bytesRead }

// LineBreaks returns the row terminator in use: the configured one, or the
// one detected in the input, or "\n" when the input had none.
func (v *Validator) LineBreaks() string {
	if v.lineBreak != "" {
		return v.lineBreak
	}
	if !v.dialect.AutoDetectLineTerminator() {
		return v.dialect.LineTerminator
	}
	return "\n"
}
