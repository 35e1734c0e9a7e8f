package fetch

import (
	"errors"
	"fmt"
)

// Retrieval failures. All are fatal to a validation run.
var (
	ErrNotFound          = errors.New("source not found")
	ErrUnreachable       = errors.New("source unreachable")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrInsecureRedirect  = errors.New("redirect from https to http refused")
	ErrTooLarge          = errors.New("source exceeds maximum size")
	ErrObjectStoreAbsent = errors.New("object storage is not configured")
)

// StatusError records a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Unwrap classifies the status so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == 404 || e.StatusCode == 410 {
		return ErrNotFound
	}
	return ErrUnreachable
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == 429
	}
	// Policy errors and size limits do not improve with another attempt.
	if errors.Is(err, ErrTooManyRedirects) || errors.Is(err, ErrInsecureRedirect) ||
		errors.Is(err, ErrTooLarge) || errors.Is(err, ErrNotFound) {
		return false
	}
	return errors.Is(err, ErrUnreachable)
}
