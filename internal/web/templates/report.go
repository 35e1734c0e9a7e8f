// Package templates renders HTML views as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

// writer accumulates the first write error so components can emit markup
// without checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) rawf(format string, args ...any) {
	w.raw(fmt.Sprintf(format, args...))
}

const pageHead = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`

const pageStyle = `<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #cbd2d9;padding:.3rem .6rem;text-align:left}
.valid{color:#196c2e}.invalid{color:#a61b1b}.incomplete{color:#8d6708}
.alert{border:1px solid #a61b1b;padding:1rem;background:#fdecea}
code{background:#f0f4f8;padding:0 .2rem}
</style>`

func page(title string, body func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(pageHead)
		w.text(title)
		w.raw("</title>")
		w.raw(pageStyle)
		w.raw("</head><body>")
		body(w)
		w.raw("</body></html>")
		return w.err
	})
}

// Verdict returns the display word and CSS class for a report.
func Verdict(r *core.Report) (string, string) {
	switch {
	case r.State != validator.StateDone.String() && r.State != validator.StateFailed.String():
		return "Incomplete", "incomplete"
	case r.Valid:
		return "Valid", "valid"
	default:
		return "Invalid", "invalid"
	}
}

// ReportPage renders a full page for one report.
func ReportPage(r *core.Report) templ.Component {
	return page("Validation report: "+r.Source, func(w *writer) {
		renderReport(w, r)
	})
}

// ReportPartial renders a report without the page shell (for HTMX swaps).
func ReportPartial(r *core.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		renderReport(w, r)
		return w.err
	})
}

// ReportsPage renders several reports on one page (CLI batch output).
func ReportsPage(reports []*core.Report) templ.Component {
	return page(fmt.Sprintf("Validation reports (%d)", len(reports)), func(w *writer) {
		for _, r := range reports {
			renderReport(w, r)
		}
	})
}

func renderReport(w *writer, r *core.Report) {
	word, class := Verdict(r)

	w.raw(`<section class="report"><h1>`)
	w.text(r.Source)
	w.rawf(`</h1><p class="%s"><strong>`, class)
	w.text(word)
	w.raw("</strong></p>")

	w.raw("<table><tbody>")
	summaryRow(w, "Report", r.ID.String())
	summaryRow(w, "Rows", fmt.Sprint(r.Rows))
	summaryRow(w, "Columns", fmt.Sprint(r.Columns))
	summaryRow(w, "Header", fmt.Sprint(r.HeaderPresent))
	summaryRow(w, "Line breaks", fmt.Sprintf("%q", r.LineBreaks))
	summaryRow(w, "Delimiter", fmt.Sprintf("%q", r.Dialect.Delimiter))
	summaryRow(w, "Bytes", fmt.Sprint(r.BytesRead))
	summaryRow(w, "Checked", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	w.raw("</tbody></table>")

	diagnosticTable(w, "Errors", r.Errors)
	diagnosticTable(w, "Warnings", r.Warnings)
	w.raw("</section>")
}

func summaryRow(w *writer, label, value string) {
	w.raw("<tr><th>")
	w.text(label)
	w.raw("</th><td>")
	w.text(value)
	w.raw("</td></tr>")
}

func diagnosticTable(w *writer, title string, ds []validator.Diagnostic) {
	w.raw("<h2>")
	w.text(fmt.Sprintf("%s (%d)", title, len(ds)))
	w.raw("</h2>")
	if len(ds) == 0 {
		return
	}

	w.raw("<table><thead><tr><th>Code</th><th>Type</th><th>Category</th><th>Row</th><th>Column</th><th>Message</th></tr></thead><tbody>")
	for _, d := range ds {
		msg := core.Describe(d.Type)
		w.raw("<tr><td>")
		w.text(msg.Code)
		w.raw("</td><td><code>")
		w.text(string(d.Type))
		w.raw("</code></td><td>")
		w.text(string(d.Category))
		w.raw("</td><td>")
		w.text(position(d.Row))
		w.raw("</td><td>")
		w.text(columns(d))
		w.raw("</td><td>")
		w.text(msg.Message + ". " + msg.Action + ".")
		w.raw("</td></tr>")
	}
	w.raw("</tbody></table>")
}

func position(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

func columns(d validator.Diagnostic) string {
	if d.Column != nil {
		return fmt.Sprint(*d.Column)
	}
	parts := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ", ")
}

// ReportList renders recent report summaries.
func ReportList(summaries []core.ReportSummary) templ.Component {
	return page("Recent validations", func(w *writer) {
		w.raw("<h1>Recent validations</h1>")
		if len(summaries) == 0 {
			w.raw("<p>No reports yet.</p>")
			return
		}
		w.raw("<table><thead><tr><th>Source</th><th>Verdict</th><th>Errors</th><th>Warnings</th><th>Checked</th></tr></thead><tbody>")
		for _, s := range summaries {
			verdict, class := "Invalid", "invalid"
			if s.Valid {
				verdict, class = "Valid", "valid"
			}
			w.raw(`<tr><td><a href="/reports/`)
			w.text(s.ID.String())
			w.raw(`">`)
			w.text(s.Source)
			w.rawf(`</a></td><td class="%s">`, class)
			w.text(verdict)
			w.rawf("</td><td>%d</td><td>%d</td><td>", s.ErrorCount, s.WarningCount)
			w.text(s.CreatedAt.Format("2006-01-02 15:04:05"))
			w.raw("</td></tr>")
		}
		w.raw("</tbody></table>")
	})
}

// ErrorAlert renders a user-facing error box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div class="alert" role="alert"><strong>`)
		w.text(message)
		w.raw("</strong>")
		if action != "" {
			w.raw("<p>")
			w.text(action)
			w.raw("</p>")
		}
		if code != "" {
			w.raw("<small>Code: ")
			w.text(code)
			w.raw("</small>")
		}
		w.raw("</div>")
		return w.err
	})
}
