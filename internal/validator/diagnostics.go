package validator

import "fmt"

// Category groups diagnostics by the layer that produced them.
type Category string

const (
	CategoryStructure Category = "structure"
	CategorySchema    Category = "schema"
	CategoryContext   Category = "context"
	CategoryContent   Category = "content"
)

// Kind identifies a diagnostic.
type Kind string

const (
	// Header detection
	KindNoHeader      Kind = "no_header"
	KindNoContentType Kind = "no_content_type"

	// Header quality
	KindDuplicateColumnName Kind = "duplicate_column_name"
	KindEmptyColumnName     Kind = "empty_column_name"

	// Column consistency
	KindInconsistentValues Kind = "inconsistent_values"

	// Row structure
	KindRaggedRows    Kind = "ragged_rows"
	KindBlankRows     Kind = "blank_rows"
	KindUnclosedQuote Kind = "unclosed_quote"
	KindStrayQuote    Kind = "stray_quote"

	// Fatal retrieval and decoding failures
	KindNotFound          Kind = "not_found"
	KindUnreachableSource Kind = "unreachable_source"
	KindTooManyRedirects  Kind = "too_many_redirects"
	KindInsecureRedirect  Kind = "insecure_redirect"
	KindSourceTooLarge    Kind = "source_too_large"
	KindInvalidEncoding   Kind = "invalid_encoding"
)

// Diagnostic is a single finding. Row and Column are 0-based and nil when
// the finding is not tied to a position.
type Diagnostic struct {
	Type     Kind     `json:"type"`
	Category Category `json:"category"`
	Row      *int     `json:"row,omitempty"`
	Column   *int     `json:"column,omitempty"`
	Columns  []int    `json:"columns,omitempty"`
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s (%s)", d.Type, d.Category)
	if d.Row != nil {
		s += fmt.Sprintf(" row %d", *d.Row)
	}
	if d.Column != nil {
		s += fmt.Sprintf(" column %d", *d.Column)
	}
	if len(d.Columns) > 0 {
		s += fmt.Sprintf(" columns %v", d.Columns)
	}
	return s
}

// Fatal reports whether the diagnostic ends a run.
func (d Diagnostic) Fatal() bool {
	switch d.Type {
	case KindNotFound, KindUnreachableSource, KindTooManyRedirects,
		KindInsecureRedirect, KindSourceTooLarge, KindInvalidEncoding:
		return true
	}
	return false
}

func intPtr(i int) *int { return &i }

func newDiagnostic(kind Kind, category Category) Diagnostic {
	return Diagnostic{Type: kind, Category: category}
}

func (d Diagnostic) atRow(row int) Diagnostic {
	d.Row = intPtr(row)
	return d
}

func (d Diagnostic) atColumn(col int) Diagnostic {
	d.Column = intPtr(col)
	return d
}

func (d Diagnostic) withColumns(cols []int) Diagnostic {
	d.Columns = cols
	return d
}
