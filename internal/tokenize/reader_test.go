package tokenize

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/JonMunkholm/csvlint/internal/dialect"
)

// =============================================================================
// Row splitting
// =============================================================================

func TestReader_ReadAll(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		dialect dialect.Dialect
		want    [][]string
		wantLB  string
	}{
		{
			name:    "simple lf",
			input:   "a,b,c\n1,2,3\n",
			dialect: dialect.Default(),
			want:    [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
			wantLB:  "\n",
		},
		{
			name:    "crlf detected",
			input:   "a,b\r\n1,2\r\n",
			dialect: dialect.Default(),
			want:    [][]string{{"a", "b"}, {"1", "2"}},
			wantLB:  "\r\n",
		},
		{
			name:    "bare cr detected",
			input:   "a,b\r1,2",
			dialect: dialect.Default(),
			want:    [][]string{{"a", "b"}, {"1", "2"}},
			wantLB:  "\r",
		},
		{
			name:    "bare lf after crlf stays in field",
			input:   "a,b\r\n1,2\n3,4\r\n",
			dialect: dialect.Default(),
			want:    [][]string{{"a", "b"}, {"1", "2\n3", "4"}},
			wantLB:  "\r\n",
		},
		{
			name:    "no trailing terminator",
			input:   "a,b\n1,2",
			dialect: dialect.Default(),
			want:    [][]string{{"a", "b"}, {"1", "2"}},
			wantLB:  "\n",
		},
		{
			name:    "quoted fields with embedded delimiter and newline",
			input:   "\"a,b\",\"line\nbreak\"\n",
			dialect: dialect.Default(),
			want:    [][]string{{"a,b", "line\nbreak"}},
			wantLB:  "\n",
		},
		{
			name:    "doubled quote escapes",
			input:   `"say ""hi""",x` + "\n",
			dialect: dialect.Default(),
			want:    [][]string{{`say "hi"`, "x"}},
			wantLB:  "\n",
		},
		{
			name:    "empty fields",
			input:   ",,\n",
			dialect: dialect.Default(),
			want:    [][]string{{"", "", ""}},
			wantLB:  "\n",
		},
		{
			name:    "blank line yields empty row",
			input:   "a\n\nb\n",
			dialect: dialect.Default(),
			want:    [][]string{{"a"}, {}, {"b"}},
			wantLB:  "\n",
		},
		{
			name:    "custom delimiter and quote",
			input:   "'a;b';c\n",
			dialect: dialect.Dialect{Delimiter: ';', QuoteChar: '\'', LineTerminator: dialect.AutoDetect},
			want:    [][]string{{"a;b", "c"}},
			wantLB:  "\n",
		},
		{
			name:    "explicit multi-character terminator",
			input:   "a,b||1,2||",
			dialect: dialect.Dialect{Delimiter: ',', QuoteChar: '"', LineTerminator: "||"},
			want:    [][]string{{"a", "b"}, {"1", "2"}},
			wantLB:  "||",
		},
		{
			name:    "explicit lf leaves cr in data",
			input:   "a,b\r\n",
			dialect: dialect.Dialect{Delimiter: ',', QuoteChar: '"', LineTerminator: "\n"},
			want:    [][]string{{"a", "b\r"}},
			wantLB:  "\n",
		},
		{
			name:    "empty input",
			input:   "",
			dialect: dialect.Default(),
			want:    nil,
			wantLB:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), tt.dialect)
			got, perrs, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if len(perrs) != 0 {
				t.Errorf("ReadAll() parse errors = %v, want none", perrs)
			}
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Errorf("ReadAll() rows mismatch: %v", diff)
			}
			if r.LineBreak() != tt.wantLB {
				t.Errorf("LineBreak() = %q, want %q", r.LineBreak(), tt.wantLB)
			}
		})
	}
}

// =============================================================================
// Quoting problems
// =============================================================================

func TestReader_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows int
		wantErrs []ParseError
	}{
		{
			name:     "unclosed quote at eof",
			input:    "a,b\n1,\"2\n3,4\n",
			wantRows: 2,
			wantErrs: []ParseError{{Row: 1, Column: 1, Kind: UnclosedQuote}},
		},
		{
			name:     "stray quote in unquoted field",
			input:    "a,b\"c\n1,2\n",
			wantRows: 2,
			wantErrs: []ParseError{{Row: 0, Column: 1, Kind: StrayQuote}},
		},
		{
			name:     "text after closing quote",
			input:    "\"a\"b,c\n",
			wantRows: 1,
			wantErrs: []ParseError{{Row: 0, Column: 0, Kind: StrayQuote}},
		},
		{
			name:     "one error per row",
			input:    "a\"\"b\"\n",
			wantRows: 1,
			wantErrs: []ParseError{{Row: 0, Column: 0, Kind: StrayQuote}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), dialect.Default())
			rows, perrs, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("ReadAll() rows = %d, want %d", len(rows), tt.wantRows)
			}
			got := make([]ParseError, len(perrs))
			for i, pe := range perrs {
				got[i] = *pe
			}
			if diff := deep.Equal(got, tt.wantErrs); diff != nil {
				t.Errorf("ReadAll() parse errors mismatch: %v", diff)
			}
		})
	}
}

func TestReader_InvalidEncoding(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\n\xff\xfe,c\n"), dialect.Default())

	if _, err := r.Read(); err != nil {
		t.Fatalf("first Read() error = %v", err)
	}
	_, err := r.Read()
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("second Read() error = %v, want ErrInvalidEncoding", err)
	}
	if _, err := r.Read(); err == nil {
		t.Error("Read() after fatal error should not succeed")
	}
}

// =============================================================================
// Streaming readers
// =============================================================================

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"with bom", "\xEF\xBB\xBFa,b\n", "a,b\n"},
		{"without bom", "a,b\n", "a,b\n"},
		{"short input", "a", "a"},
		{"bom only", "\xEF\xBB\xBF", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			buf := make([]byte, 2)
			r := NewBOMSkippingReader(strings.NewReader(tt.input))
			for {
				n, err := r.Read(buf)
				sb.Write(buf[:n])
				if err != nil {
					break
				}
			}
			if sb.String() != tt.want {
				t.Errorf("got %q, want %q", sb.String(), tt.want)
			}
		})
	}
}

func TestWrapForStreaming_CountsRawBytes(t *testing.T) {
	input := "\xEF\xBB\xBFh1,h2\nx,y\n"
	wrapped, counter := WrapForStreaming(strings.NewReader(input), int64(len(input)))

	rows, _, err := NewReader(wrapped, dialect.Default()).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if diff := deep.Equal(rows, [][]string{{"h1", "h2"}, {"x", "y"}}); diff != nil {
		t.Errorf("rows mismatch: %v", diff)
	}
	if counter.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead() = %d, want %d", counter.BytesRead(), len(input))
	}
	if counter.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", counter.Progress())
	}
}
