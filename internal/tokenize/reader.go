// Package tokenize splits delimited text into rows according to a resolved
// dialect.
//
// encoding/csv is not used because it fixes the quote character to '"' and
// only understands "\n" and "\r\n" terminators, while dialects may name any
// quote rune and any literal terminator. The tokenizer also reports quoting
// problems per row instead of aborting the whole read.
package tokenize

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/csvlint/internal/dialect"
)

// ErrInvalidEncoding is returned when the input is not valid UTF-8.
// It is fatal: the reader cannot continue after returning it.
var ErrInvalidEncoding = errors.New("invalid UTF-8 encoding")

// ParseErrorKind classifies a recoverable quoting problem.
type ParseErrorKind string

const (
	UnclosedQuote ParseErrorKind = "unclosed_quote"
	StrayQuote    ParseErrorKind = "stray_quote"
)

// ParseError describes a quoting problem in a single row. The row is still
// returned alongside the error, and reading may continue.
type ParseError struct {
	Row    int // 0-based row index
	Column int // 0-based column index where the problem was found
	Kind   ParseErrorKind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %d: %s", e.Row, e.Column, e.Kind)
}

type fieldState int

const (
	fieldStart fieldState = iota
	unquoted
	quoted
	afterQuote
)

// Reader reads rows from a delimited text stream.
//
// With auto-detection the first terminator seen fixes the row terminator for
// the rest of the stream. Once "\r\n" is chosen, a later bare "\n" is field
// content, so mixed line endings surface as ragged rows downstream.
type Reader struct {
	br      *bufio.Reader
	dialect dialect.Dialect

	term   string // active row terminator; empty until detected
	detect bool
	row    int
	done   bool

	field strings.Builder
}

// NewReader returns a Reader over r configured by d.
func NewReader(r io.Reader, d dialect.Dialect) *Reader {
	tr := &Reader{
		br:      bufio.NewReader(r),
		dialect: d,
		detect:  d.AutoDetectLineTerminator(),
	}
	if !tr.detect {
		tr.term = d.LineTerminator
	}
	return tr
}

// LineBreak returns the row terminator in effect. With auto-detection it is
// empty until the first terminator has been read.
func (r *Reader) LineBreak() string {
	return r.term
}

// Row returns the index the next row will receive.
func (r *Reader) Row() int {
	return r.row
}

// Read returns the next row.
//
// A blank line yields an empty, non-nil slice. A *ParseError accompanies a
// row with quoting problems; the row is still usable. io.EOF is returned
// once the input is exhausted. Any other error, including
// ErrInvalidEncoding, ends the stream.
func (r *Reader) Read() ([]string, error) {
	if r.done {
		return nil, io.EOF
	}

	var (
		fields  []string
		perr    *ParseError
		state   = fieldStart
		started bool
	)
	r.field.Reset()

	flagErr := func(kind ParseErrorKind) {
		if perr == nil {
			perr = &ParseError{Row: r.row, Column: len(fields), Kind: kind}
		}
	}
	finish := func() ([]string, error) {
		r.row++
		if perr != nil {
			return fields, perr
		}
		return fields, nil
	}

	for {
		c, size, err := r.br.ReadRune()
		if err != nil {
			if err != io.EOF {
				r.done = true
				return nil, fmt.Errorf("read row %d: %w", r.row, err)
			}
			r.done = true
			if !started {
				return nil, io.EOF
			}
			if state == quoted {
				flagErr(UnclosedQuote)
			}
			fields = append(fields, r.field.String())
			return finish()
		}
		if c == utf8.RuneError && size == 1 {
			r.done = true
			return nil, fmt.Errorf("row %d: %w", r.row, ErrInvalidEncoding)
		}
		started = true

		if state != quoted {
			ok, err := r.atTerminator(c)
			if err != nil {
				r.done = true
				return nil, fmt.Errorf("read row %d: %w", r.row, err)
			}
			if ok {
				if state == fieldStart && len(fields) == 0 {
					fields = []string{}
					return finish()
				}
				fields = append(fields, r.field.String())
				return finish()
			}
		}

		switch state {
		case fieldStart:
			switch c {
			case r.dialect.QuoteChar:
				state = quoted
			case r.dialect.Delimiter:
				fields = append(fields, "")
			default:
				r.field.WriteRune(c)
				state = unquoted
			}

		case unquoted:
			switch c {
			case r.dialect.Delimiter:
				fields = append(fields, r.field.String())
				r.field.Reset()
				state = fieldStart
			case r.dialect.QuoteChar:
				flagErr(StrayQuote)
				r.field.WriteRune(c)
			default:
				r.field.WriteRune(c)
			}

		case quoted:
			if c != r.dialect.QuoteChar {
				r.field.WriteRune(c)
				continue
			}
			next, _, err := r.br.ReadRune()
			if err == nil && next == r.dialect.QuoteChar {
				r.field.WriteRune(c)
				continue
			}
			if err == nil {
				_ = r.br.UnreadRune()
			}
			state = afterQuote

		case afterQuote:
			if c == r.dialect.Delimiter {
				fields = append(fields, r.field.String())
				r.field.Reset()
				state = fieldStart
				continue
			}
			flagErr(StrayQuote)
			r.field.WriteRune(c)
			state = unquoted
		}
	}
}

// atTerminator reports whether c begins the row terminator and, if so,
// consumes the rest of it.
func (r *Reader) atTerminator(c rune) (bool, error) {
	if r.term == "" {
		if !r.detect {
			return false, nil
		}
		switch c {
		case '\n':
			r.term = "\n"
			return true, nil
		case '\r':
			next, err := r.br.Peek(1)
			if err == nil && next[0] == '\n' {
				if _, err := r.br.Discard(1); err != nil {
					return false, err
				}
				r.term = "\r\n"
				return true, nil
			}
			r.term = "\r"
			return true, nil
		}
		return false, nil
	}

	first, size := utf8.DecodeRuneInString(r.term)
	if c != first {
		return false, nil
	}
	rest := r.term[size:]
	if rest == "" {
		return true, nil
	}
	next, err := r.br.Peek(len(rest))
	if err != nil || string(next) != rest {
		return false, nil
	}
	if _, err := r.br.Discard(len(rest)); err != nil {
		return false, err
	}
	return true, nil
}

// ReadAll reads every remaining row. Quoting problems are collected rather
// than returned; the first fatal error stops the read.
func (r *Reader) ReadAll() ([][]string, []*ParseError, error) {
	var (
		rows [][]string
		errs []*ParseError
	)
	for {
		row, err := r.Read()
		var perr *ParseError
		switch {
		case err == io.EOF:
			return rows, errs, nil
		case errors.As(err, &perr):
			errs = append(errs, perr)
		case err != nil:
			return rows, errs, err
		}
		rows = append(rows, row)
	}
}
