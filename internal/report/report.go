// Package report writes validation reports as text, JSON or HTML.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/validator"
	"github.com/JonMunkholm/csvlint/internal/web/templates"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatHTML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or html)", s)
	}
}

// Write renders reports in the given format.
func Write(ctx context.Context, w io.Writer, format Format, reports []*core.Report) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, reports)
	case FormatHTML:
		return templates.ReportsPage(reports).Render(ctx, w)
	default:
		return writeText(w, reports)
	}
}

func writeJSON(w io.Writer, reports []*core.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func writeText(w io.Writer, reports []*core.Report) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := WriteText(w, r); err != nil {
			return err
		}
	}
	return nil
}

// WriteText renders one report for a terminal.
func WriteText(w io.Writer, r *core.Report) error {
	word, _ := templates.Verdict(r)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", r.Source, strings.ToUpper(word))
	fmt.Fprintf(&b, "  rows %d, columns %d, header %v, line breaks %q\n",
		r.Rows, r.Columns, r.HeaderPresent, r.LineBreaks)

	writeDiagnostics(&b, "error", r.Errors)
	writeDiagnostics(&b, "warning", r.Warnings)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDiagnostics(b *strings.Builder, severity string, ds []validator.Diagnostic) {
	for _, d := range ds {
		msg := core.Describe(d.Type)
		fmt.Fprintf(b, "  %s %s [%s] %s", severity, msg.Code, d.Type, msg.Message)
		if loc := location(d); loc != "" {
			fmt.Fprintf(b, " (%s)", loc)
		}
		b.WriteString("\n")
	}
}

func location(d validator.Diagnostic) string {
	var parts []string
	if d.Row != nil {
		parts = append(parts, fmt.Sprintf("row %d", *d.Row))
	}
	if d.Column != nil {
		parts = append(parts, fmt.Sprintf("column %d", *d.Column))
	}
	if len(d.Columns) > 0 {
		cols := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			cols[i] = fmt.Sprint(c)
		}
		parts = append(parts, "columns "+strings.Join(cols, ","))
	}
	return strings.Join(parts, ", ")
}
