package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// CellType is the inferred content type of a single cell.
type CellType int

const (
	TypeString CellType = iota
	TypeNumeric
	TypeURI
	TypeDateTimeISO8601
	TypeDateDB
	TypeDateTimeHMS
)

var cellTypeNames = [...]string{
	TypeString:          "string",
	TypeNumeric:         "numeric",
	TypeURI:             "uri",
	TypeDateTimeISO8601: "dateTime_iso8601",
	TypeDateDB:          "date_db",
	TypeDateTimeHMS:     "dateTime_hms",
}

func (t CellType) String() string {
	if t < 0 || int(t) >= len(cellTypeNames) {
		return fmt.Sprintf("CellType(%d)", int(t))
	}
	return cellTypeNames[t]
}

// MarshalText renders the type by name in JSON output.
func (t CellType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText reads a type name written by MarshalText.
func (t *CellType) UnmarshalText(text []byte) error {
	parsed, err := ParseCellType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseCellType is the inverse of CellType.String.
func ParseCellType(s string) (CellType, error) {
	for i, name := range cellTypeNames {
		if name == s {
			return CellType(i), nil
		}
	}
	return TypeString, fmt.Errorf("unknown cell type %q", s)
}

type inferRule struct {
	pattern *regexp.Regexp
	typ     CellType
}

// inferRules are tried in order; the first match wins. Date forms precede
// numeric so that compact dates are not mistaken for numbers.
var inferRules = []inferRule{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?$`), TypeDateTimeISO8601},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), TypeDateDB},
	{regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`), TypeDateTimeHMS},
	{regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`), TypeNumeric},
	{regexp.MustCompile(`(?i)^(https?|ftps?|sftp|file|wss?)://\S+$`), TypeURI},
}

// InferType classifies a cell. It never fails; anything unrecognized is a string.
func InferType(cell string) CellType {
	for _, rule := range inferRules {
		if rule.pattern.MatchString(cell) {
			return rule.typ
		}
	}
	return TypeString
}

// isBlank reports whether a cell carries no observation.
func isBlank(cell string) bool {
	return strings.TrimSpace(cell) == ""
}
