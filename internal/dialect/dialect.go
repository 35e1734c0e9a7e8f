// Package dialect resolves the tokenizer configuration used for a validation run.
//
// A Dialect is built by layering three sources, lowest precedence first:
//
//  1. Built-in defaults (comma, auto-detected line endings, double quote)
//  2. Caller-supplied Options
//  3. A CSV Dialect Description Format (DDF) mapping
//
// Resolution never fails. Missing or unusable values fall through to the
// next lower source, so any input (including none) yields a usable Dialect.
package dialect

import (
	"fmt"
	"unicode/utf8"
)

// AutoDetect is the LineTerminator value that asks the tokenizer to detect
// the row terminator from the first row it reads.
const AutoDetect = "auto"

// DDF keys recognized by Resolve. Everything else in a DDF mapping is ignored.
const (
	KeyDelimiter      = "delimiter"
	KeyLineTerminator = "lineTerminator"
	KeyQuoteChar      = "quoteChar"
)

// Dialect is the resolved tokenizer configuration. Treat it as immutable.
type Dialect struct {
	Delimiter      rune
	LineTerminator string // AutoDetect or a literal terminator such as "\r\n"
	QuoteChar      rune
	SkipBlanks     bool
}

// Options are the caller-supplied tokenizer settings. Empty strings and nil
// pointers mean "not set".
type Options struct {
	Delimiter      string
	LineTerminator string
	QuoteChar      string
	SkipBlanks     *bool
}

// Default returns the built-in dialect.
func Default() Dialect {
	return Dialect{
		Delimiter:      ',',
		LineTerminator: AutoDetect,
		QuoteChar:      '"',
		SkipBlanks:     false,
	}
}

// Resolve merges defaults, opts and the DDF mapping into a Dialect.
// DDF values take precedence over opts. ddf may be nil.
func Resolve(opts Options, ddf map[string]any) Dialect {
	d := Default()

	d.apply(opts.Delimiter, opts.LineTerminator, opts.QuoteChar)
	if opts.SkipBlanks != nil {
		d.SkipBlanks = *opts.SkipBlanks
	}

	d.apply(stringValue(ddf, KeyDelimiter), stringValue(ddf, KeyLineTerminator), stringValue(ddf, KeyQuoteChar))

	return d
}

// apply overrides fields for every non-empty value.
func (d *Dialect) apply(delimiter, lineTerminator, quoteChar string) {
	if r, ok := firstRune(delimiter); ok {
		d.Delimiter = r
	}
	if lineTerminator != "" {
		d.LineTerminator = lineTerminator
	}
	if r, ok := firstRune(quoteChar); ok {
		d.QuoteChar = r
	}
}

// AutoDetectLineTerminator reports whether the row terminator is detected
// from the input.
func (d Dialect) AutoDetectLineTerminator() bool {
	return d.LineTerminator == "" || d.LineTerminator == AutoDetect
}

// String renders the dialect for logs.
func (d Dialect) String() string {
	return fmt.Sprintf("Dialect{Delimiter: %q, LineTerminator: %q, QuoteChar: %q, SkipBlanks: %v}",
		d.Delimiter, d.LineTerminator, d.QuoteChar, d.SkipBlanks)
}

// firstRune returns the first rune of s. Multi-character values are
// truncated rather than rejected.
func firstRune(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	return r, true
}

// stringValue reads a string-valued key from a DDF mapping. Non-string
// values are treated as unset.
func stringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
