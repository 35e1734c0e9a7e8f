// Package core provides the service layer for CSV validation.
//
// It wraps the validation engine with the concerns a caller needs around a
// single run, independent of any transport. The HTTP server and the csvlint
// command both go through [Service].
//
// # Architecture
//
// The package is organized around a few pieces:
//
//   - Service: runs one validation per [Request] and returns a [Report].
//   - ValidationLimiter: a semaphore bounding concurrent runs, with a
//     maximum wait before [ErrTooManyValidations].
//   - HistoryStore: optional persistence for reports. Without one, history
//     reads return [ErrHistoryDisabled].
//   - Prune scheduler: deletes reports older than the retention window.
//
// # Running a Validation
//
//	svc := core.NewService(fetcher, store, core.ServiceConfig{
//	    MaxConcurrent: 5,
//	    MaxWait:       30 * time.Second,
//	})
//	report, err := svc.Validate(ctx, core.Request{
//	    Source: fetch.ParseSource("https://example.com/data.csv"),
//	})
//
// A run that fails to retrieve its source still produces a report carrying
// one fatal diagnostic. Validate returns an error only when no report exists:
// the limiter is full, the context was canceled, or the run timed out.
//
// # Error Handling
//
// Diagnostics and request errors are mapped to user-facing messages with
// [Describe] and [MapError]. Each has a code for support reference:
//
//   - STR001-STR099: structure diagnostics
//   - SCH001-SCH099: schema diagnostics
//   - REQ001-REQ009: request errors (no source, bad body, too large)
//   - RATE001: rate limited
//
// # Request Metadata
//
// Client IP and User-Agent travel in the context ([ContextWithIPAddress],
// [ContextWithUserAgent]) and are recorded on the report.
package core
