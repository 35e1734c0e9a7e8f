package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/csvlint/internal/validator"
)

func TestDescribe(t *testing.T) {
	kinds := []validator.Kind{
		validator.KindNoHeader, validator.KindNoContentType,
		validator.KindDuplicateColumnName, validator.KindEmptyColumnName,
		validator.KindInconsistentValues, validator.KindRaggedRows,
		validator.KindBlankRows, validator.KindUnclosedQuote, validator.KindStrayQuote,
		validator.KindNotFound, validator.KindUnreachableSource,
		validator.KindTooManyRedirects, validator.KindInsecureRedirect,
		validator.KindSourceTooLarge, validator.KindInvalidEncoding,
	}

	seen := make(map[string]validator.Kind)
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			msg := Describe(k)
			if msg.Message == "" || msg.Action == "" {
				t.Errorf("Describe(%s) incomplete: %+v", k, msg)
			}
			if prev, dup := seen[msg.Code]; dup {
				t.Errorf("code %s shared by %s and %s", msg.Code, prev, k)
			}
			seen[msg.Code] = k
		})
	}

	if got := Describe("future_kind"); got.Code != "ERR001" || got.Message != "future kind" {
		t.Errorf("Describe(unknown) = %+v", got)
	}
}

func TestDescribe_CodePrefixes(t *testing.T) {
	tests := []struct {
		kind   validator.Kind
		prefix string
	}{
		{validator.KindNoHeader, "STR"},
		{validator.KindInvalidEncoding, "STR"},
		{validator.KindDuplicateColumnName, "SCH"},
		{validator.KindInconsistentValues, "SCH"},
	}
	for _, tt := range tests {
		if code := Describe(tt.kind).Code; !strings.HasPrefix(code, tt.prefix) {
			t.Errorf("Describe(%s).Code = %s, want prefix %s", tt.kind, code, tt.prefix)
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"busy", ErrTooManyValidations, "REQ001"},
		{"no source", ErrNoSource, "REQ002"},
		{"wrapped not found", fmt.Errorf("load: %w", ErrReportNotFound), "REQ003"},
		{"history disabled", ErrHistoryDisabled, "REQ004"},
		{"body too large", errors.New("http: request body too large"), "REQ007"},
		{"timeout", errors.New("validate x.csv: validation incomplete: context deadline exceeded"), "REQ008"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("RATE LIMIT"), "RATE001"},
		{"unknown", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoSource)
	want := "No file or URL was provided (Code: REQ002). Upload a CSV file or supply a URL"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	ue := NewUserError(ErrTooManyValidations)
	if !errors.Is(ue, ErrTooManyValidations) {
		t.Error("UserError should unwrap to the technical error")
	}
	wrapped := fmt.Errorf("handler: %w", ue)
	got, ok := AsUserError(wrapped)
	if !ok || got.User.Code != "REQ001" {
		t.Errorf("AsUserError() = %+v, %v", got, ok)
	}
	if !IsUserFacing(ErrNoSource) || IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing() misclassified")
	}
}
