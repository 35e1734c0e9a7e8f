package validator

import (
	"mime"
	"strings"
)

// HeaderSignal reports whether it has an opinion on header presence and,
// if so, what that opinion is.
type HeaderSignal func() (present bool, ok bool)

// ExplicitHeader is the caller's own setting. A nil pointer abstains.
func ExplicitHeader(header *bool) HeaderSignal {
	return func() (bool, bool) {
		if header == nil {
			return false, false
		}
		return *header, true
	}
}

// ContentTypeHeader reads the header parameter of a media type such as
// "text/csv; header=absent". It abstains when the parameter is missing or
// the value is not recognized.
func ContentTypeHeader(contentType string) HeaderSignal {
	return func() (bool, bool) {
		param, ok := headerParam(contentType)
		if !ok {
			return false, false
		}
		switch strings.ToLower(param) {
		case "present":
			return true, true
		case "absent":
			return false, true
		}
		return false, false
	}
}

// HeaderPresent consults signals in order and returns the first opinion.
// With no opinion the header is assumed present.
func HeaderPresent(signals ...HeaderSignal) bool {
	for _, s := range signals {
		if present, ok := s(); ok {
			return present
		}
	}
	return true
}

// headerParam extracts the header parameter from a media type.
func headerParam(contentType string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	v, ok := params["header"]
	return v, ok
}

// headerAmbiguity returns the diagnostics raised when the caller did not
// say whether a header exists. contentType is empty when the source had none.
func headerAmbiguity(explicit *bool, contentType string) []Diagnostic {
	if explicit != nil {
		return nil
	}
	if contentType == "" {
		return []Diagnostic{
			newDiagnostic(KindNoHeader, CategoryStructure),
			newDiagnostic(KindNoContentType, CategoryStructure),
		}
	}
	if _, ok := headerParam(contentType); !ok {
		return []Diagnostic{newDiagnostic(KindNoHeader, CategoryStructure)}
	}
	return nil
}

// ValidateHeader checks header cells for duplicates and blanks. The two checks
// are independent, so repeated blank names count as duplicates too. It records
// at most one warning of each kind, listing the offending columns, and always
// returns true.
func (v *Validator) ValidateHeader(header []string) bool {
	var (
		seen       = make(map[string]int, len(header))
		duplicates []int
		empty      []int
	)

	for i, name := range header {
		if _, ok := seen[name]; ok {
			duplicates = append(duplicates, i)
		} else {
			seen[name] = i
		}
		if strings.TrimSpace(name) == "" {
			empty = append(empty, i)
		}
	}

	if len(duplicates) > 0 {
		v.warnings = append(v.warnings,
			newDiagnostic(KindDuplicateColumnName, CategorySchema).atRow(0).withColumns(duplicates))
	}
	if len(empty) > 0 {
		v.warnings = append(v.warnings,
			newDiagnostic(KindEmptyColumnName, CategorySchema).atRow(0).withColumns(empty))
	}

	return true
}
