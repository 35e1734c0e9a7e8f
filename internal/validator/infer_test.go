package validator

import (
	"testing"

	"github.com/go-test/deep"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		cell string
		want CellType
	}{
		{"foo", TypeString},
		{"1", TypeNumeric},
		{"12", TypeNumeric},
		{"3.1476", TypeNumeric},
		{"-42", TypeNumeric},
		{"+0.5", TypeNumeric},
		{"http://www.example.com", TypeURI},
		{"https://example.com/a?b=c", TypeURI},
		{"FTP://files.example.com/x", TypeURI},
		{"2013-01-01T13:00:00Z", TypeDateTimeISO8601},
		{"2013-01-01T13:00:00.123+01:00", TypeDateTimeISO8601},
		{"2013-01-01T13:00:00", TypeDateTimeISO8601},
		{"2013-01-01", TypeDateDB},
		{"13:00:00", TypeDateTimeHMS},
		{"$2345", TypeString},
		{"1,000", TypeString},
		{"1.", TypeString},
		{".5", TypeString},
		{"http://", TypeString},
		{"mailto:someone@example.com", TypeString},
		{" 1", TypeString},
		{"", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			if got := InferType(tt.cell); got != tt.want {
				t.Errorf("InferType(%q) = %s, want %s", tt.cell, got, tt.want)
			}
		})
	}
}

func TestCellType_Names(t *testing.T) {
	for _, name := range []string{"string", "numeric", "uri", "dateTime_iso8601", "date_db", "dateTime_hms"} {
		typ, err := ParseCellType(name)
		if err != nil {
			t.Fatalf("ParseCellType(%q) error = %v", name, err)
		}
		if typ.String() != name {
			t.Errorf("round trip %q -> %q", name, typ.String())
		}
	}
	if _, err := ParseCellType("boolean"); err == nil {
		t.Error("ParseCellType(boolean) expected error")
	}
}

// =============================================================================
// BuildFormats / CheckConsistency
// =============================================================================

func historyOf(v *Validator) [][]CellType {
	var out [][]CellType
	for _, cf := range v.Formats() {
		out = append(out, cf.History)
	}
	return out
}

func TestBuildFormats(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want [][]CellType
	}{
		{
			name: "empty row is ignored",
			rows: [][]string{{}},
			want: nil,
		},
		{
			name: "ints and floats are both numeric",
			rows: [][]string{{"12", "3.1476"}},
			want: [][]CellType{{TypeNumeric}, {TypeNumeric}},
		},
		{
			name: "single column",
			rows: [][]string{{"foo"}, {"bar"}, {"baz"}},
			want: [][]CellType{{TypeString, TypeString, TypeString}},
		},
		{
			name: "blank row then values",
			rows: [][]string{{}, {"foo", "1", "$2345"}},
			want: [][]CellType{{TypeString}, {TypeNumeric}, {TypeString}},
		},
		{
			name: "blank cells keep column positions",
			rows: [][]string{{"", "1"}, {"a", " "}},
			want: [][]CellType{{TypeString}, {TypeNumeric}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Options{RecordFormats: true}, nil, nil)
			for i, row := range tt.rows {
				v.BuildFormats(row, i)
			}
			if diff := deep.Equal(historyOf(v), tt.want); diff != nil {
				t.Errorf("formats mismatch: %v", diff)
			}
		})
	}
}

func TestBuildFormats_HistoryOnlyWhenRequested(t *testing.T) {
	v := New(Options{}, nil, nil)
	v.BuildFormats([]string{"1", "a"}, 1)
	v.BuildFormats([]string{"x", "b"}, 2)

	formats := v.Formats()
	if len(formats) != 2 {
		t.Fatalf("Formats() len = %d, want 2", len(formats))
	}
	if formats[0].History != nil {
		t.Errorf("History = %v, want nil", formats[0].History)
	}
	if diff := deep.Equal(formats[0].Types, []CellType{TypeString, TypeNumeric}); diff != nil {
		t.Errorf("Types mismatch: %v", diff)
	}
}

func TestCheckConsistency(t *testing.T) {
	// Columns are given top to bottom; rows are built across them.
	columns := [][]string{
		{"foo", "bar", "baz"},
		{"foo", "1", "bar"},
		{"1", "2", "3"},
	}

	v := New(Options{}, nil, nil)
	for row := 0; row < 3; row++ {
		cells := make([]string, len(columns))
		for col := range columns {
			cells[col] = columns[col][row]
		}
		v.BuildFormats(cells, row+1)
	}
	v.CheckConsistency()

	var inconsistent []Diagnostic
	for _, w := range v.Warnings() {
		if w.Type == KindInconsistentValues {
			inconsistent = append(inconsistent, w)
		}
	}
	if len(inconsistent) != 1 {
		t.Fatalf("inconsistent_values warnings = %d, want 1", len(inconsistent))
	}

	w := inconsistent[0]
	if w.Category != CategorySchema {
		t.Errorf("Category = %s, want %s", w.Category, CategorySchema)
	}
	if w.Column == nil || *w.Column != 1 {
		t.Errorf("Column = %v, want 1", w.Column)
	}
	if w.Row == nil || *w.Row != 2 {
		t.Errorf("Row = %v, want 2", w.Row)
	}
}
