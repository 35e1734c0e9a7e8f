package validator

import (
	"testing"

	"github.com/go-test/deep"
)

func boolPtr(b bool) *bool { return &b }

func TestHeaderPresent(t *testing.T) {
	tests := []struct {
		name        string
		explicit    *bool
		contentType string
		want        bool
	}{
		{"defaults to true", nil, "", true},
		{"explicit true", boolPtr(true), "", true},
		{"explicit false", boolPtr(false), "", false},
		{"content type absent", nil, "text/csv; header=absent", false},
		{"content type present", nil, "text/csv; header=present", true},
		{"content type without param", nil, "text/csv; charset=utf-8", true},
		{"explicit beats content type", boolPtr(true), "text/csv; header=absent", true},
		{"unknown value abstains", nil, "text/csv; header=maybe", true},
		{"malformed content type abstains", nil, "text/csv; header", true},
		{"case insensitive value", nil, "text/csv; header=ABSENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeaderPresent(ExplicitHeader(tt.explicit), ContentTypeHeader(tt.contentType))
			if got != tt.want {
				t.Errorf("HeaderPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderAmbiguity(t *testing.T) {
	tests := []struct {
		name        string
		explicit    *bool
		contentType string
		want        []Kind
	}{
		{"explicit option silences", boolPtr(true), "", nil},
		{"header param present", nil, "text/csv; header=present", nil},
		{"content type without header param", nil, "text/csv; charset=utf-8", []Kind{KindNoHeader}},
		{"no content type", nil, "", []Kind{KindNoHeader, KindNoContentType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Kind
			for _, d := range headerAmbiguity(tt.explicit, tt.contentType) {
				if d.Category != CategoryStructure {
					t.Errorf("%s category = %s, want structure", d.Type, d.Category)
				}
				got = append(got, d.Type)
			}
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Errorf("headerAmbiguity() mismatch: %v", diff)
			}
		})
	}
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []Diagnostic
	}{
		{
			name:   "duplicate names",
			header: []string{"minimum", "minimum"},
			want: []Diagnostic{
				{Type: KindDuplicateColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{1}},
			},
		},
		{
			name:   "blank name",
			header: []string{"minimum", ""},
			want: []Diagnostic{
				{Type: KindEmptyColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{1}},
			},
		},
		{
			name:   "many duplicates summarized",
			header: []string{"a", "a", "b", "a", "b"},
			want: []Diagnostic{
				{Type: KindDuplicateColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{1, 3, 4}},
			},
		},
		{
			name:   "case differs is not duplicate",
			header: []string{"Name", "name"},
			want:   nil,
		},
		{
			name:   "whitespace-only is blank",
			header: []string{"  ", "x", "\t"},
			want: []Diagnostic{
				{Type: KindEmptyColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{0, 2}},
			},
		},
		{
			name:   "repeated blanks are duplicates too",
			header: []string{"", ""},
			want: []Diagnostic{
				{Type: KindDuplicateColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{1}},
				{Type: KindEmptyColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{0, 1}},
			},
		},
		{
			name:   "both kinds",
			header: []string{"a", "", "a"},
			want: []Diagnostic{
				{Type: KindDuplicateColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{2}},
				{Type: KindEmptyColumnName, Category: CategorySchema, Row: intPtr(0), Columns: []int{1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Options{}, nil, nil)
			if !v.ValidateHeader(tt.header) {
				t.Error("ValidateHeader() = false, want true")
			}
			if diff := deep.Equal(v.Warnings(), tt.want); diff != nil {
				t.Errorf("Warnings() mismatch: %v", diff)
			}
			if len(v.Errors()) != 0 {
				t.Errorf("Errors() = %v, want none", v.Errors())
			}
		})
	}
}
