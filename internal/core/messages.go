package core

// messages.go maps diagnostics and request errors to user-facing text.
//
// # Diagnostic Codes
//
// Structure problems (STR001-STR099):
//
//	STR001 - no_header: header presence was not declared
//	STR002 - no_content_type: the source was served without a Content-Type
//	STR003 - ragged_rows: a row has a different number of fields than the first row
//	STR004 - blank_rows: a row is empty
//	STR005 - unclosed_quote: a quoted field is never closed
//	STR006 - stray_quote: a quote appears inside an unquoted field
//	STR010 - not_found: the source does not exist
//	STR011 - unreachable_source: the source could not be retrieved
//	STR012 - too_many_redirects: the redirect chain is too long
//	STR013 - insecure_redirect: an https source redirected to http
//	STR014 - source_too_large: the source exceeds the size limit
//	STR015 - invalid_encoding: the source is not UTF-8
//
// Schema problems (SCH001-SCH099):
//
//	SCH001 - duplicate_column_name
//	SCH002 - empty_column_name
//	SCH003 - inconsistent_values
//
// # Request Errors
//
// Request-level failures use REQ, RATE and ERR codes and are matched by
// pattern in [MapError].

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvlint/internal/validator"
)

// UserMessage contains user-friendly error information.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var diagnosticMessages = map[validator.Kind]UserMessage{
	validator.KindNoHeader: {
		Message: "The file does not say whether it has a header row",
		Action:  "Serve it as text/csv with header=present or header=absent, or set the header option",
		Code:    "STR001",
	},
	validator.KindNoContentType: {
		Message: "The file was served without a Content-Type",
		Action:  "Configure the server to send text/csv",
		Code:    "STR002",
	},
	validator.KindRaggedRows: {
		Message: "Row has a different number of fields than the first row",
		Action:  "Make every row the same width",
		Code:    "STR003",
	},
	validator.KindBlankRows: {
		Message: "Row is blank",
		Action:  "Remove empty lines or enable skip blanks",
		Code:    "STR004",
	},
	validator.KindUnclosedQuote: {
		Message: "A quoted field is never closed",
		Action:  "Add the missing closing quote",
		Code:    "STR005",
	},
	validator.KindStrayQuote: {
		Message: "A quote character appears inside an unquoted field",
		Action:  "Quote the whole field and double any embedded quotes",
		Code:    "STR006",
	},
	validator.KindNotFound: {
		Message: "The file could not be found",
		Action:  "Check the path or URL",
		Code:    "STR010",
	},
	validator.KindUnreachableSource: {
		Message: "The file could not be retrieved",
		Action:  "Check that the server is reachable and try again",
		Code:    "STR011",
	},
	validator.KindTooManyRedirects: {
		Message: "The URL redirected too many times",
		Action:  "Link directly to the file",
		Code:    "STR012",
	},
	validator.KindInsecureRedirect: {
		Message: "A secure URL redirected to an insecure one",
		Action:  "Serve the file over https end to end",
		Code:    "STR013",
	},
	validator.KindSourceTooLarge: {
		Message: "The file exceeds the maximum size",
		Action:  "Split the file into smaller parts",
		Code:    "STR014",
	},
	validator.KindInvalidEncoding: {
		Message: "The file is not valid UTF-8",
		Action:  "Save the file with UTF-8 encoding",
		Code:    "STR015",
	},
	validator.KindDuplicateColumnName: {
		Message: "Column names are not unique",
		Action:  "Rename the duplicated columns",
		Code:    "SCH001",
	},
	validator.KindEmptyColumnName: {
		Message: "Some columns have no name",
		Action:  "Give every column a header",
		Code:    "SCH002",
	},
	validator.KindInconsistentValues: {
		Message: "Column mixes different kinds of values",
		Action:  "Check the column for typos or mixed formats",
		Code:    "SCH003",
	},
}

// Describe returns the user-facing text for a diagnostic type.
func Describe(kind validator.Kind) UserMessage {
	if msg, ok := diagnosticMessages[kind]; ok {
		return msg
	}
	return UserMessage{
		Message: strings.ReplaceAll(string(kind), "_", " "),
		Action:  "See the validation documentation",
		Code:    "ERR001",
	}
}

// errorPattern maps an error substring to a user-friendly message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is checked in order; the first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "too many concurrent validations",
		msg: UserMessage{
			Message: "The validator is busy",
			Action:  "Please wait a moment and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "no source provided",
		msg: UserMessage{
			Message: "No file or URL was provided",
			Action:  "Upload a CSV file or supply a URL",
			Code:    "REQ002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "Check the report ID",
			Code:    "REQ003",
		},
	},
	{
		pattern: "history is disabled",
		msg: UserMessage{
			Message: "Report history is not available",
			Action:  "Configure a database to keep reports",
			Code:    "REQ004",
		},
	},
	{
		pattern: "invalid report id",
		msg: UserMessage{
			Message: "Invalid report ID",
			Action:  "Check the report ID",
			Code:    "REQ005",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and try again",
			Code:    "REQ006",
		},
	},
	{
		pattern: "http: request body too large",
		msg: UserMessage{
			Message: "The upload exceeds the maximum size",
			Action:  "Split the file into smaller parts",
			Code:    "REQ007",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Validation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "REQ008",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ009",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Matching is case-insensitive; the first matching pattern wins.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}

// AsUserError extracts a UserError from an error chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
