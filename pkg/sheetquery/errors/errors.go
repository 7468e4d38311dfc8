// Package errors defines the error taxonomy shared by the cache, the query
// engine and the API layer. Every error carries a Kind so callers can map it
// to a response without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	// KindValidation is malformed or missing input.
	KindValidation Kind = "VALIDATION"
	// KindRange is well-formed input outside the schema bounds.
	KindRange Kind = "RANGE"
	// KindUnknownSheet is a sheet name that is not configured.
	KindUnknownSheet Kind = "UNKNOWN_SHEET"
	// KindNotBuilt is a configured sheet with no snapshot yet.
	KindNotBuilt Kind = "NOT_BUILT"
	// KindSourceUnavailable is a missing file, failed retrieval or undecodable workbook.
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"
	// KindInternal is anything else.
	KindInternal Kind = "INTERNAL"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrRange             = &Error{Kind: KindRange}
	ErrUnknownSheet      = &Error{Kind: KindUnknownSheet}
	ErrNotBuilt          = &Error{Kind: KindNotBuilt}
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
)

// ErrSheetNotFound indicates the workbook has no worksheet with the configured name.
var ErrSheetNotFound = errors.New("sheet not found in workbook")

// Error is the structured error returned by sheetquery components.
type Error struct {
	Kind    Kind
	Message string
	Sheet   string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Sheet != "" {
		msg = fmt.Sprintf("sheet %q: %s", e.Sheet, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Validation returns a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Range returns a KindRange error. The message should state the valid bounds.
func Range(format string, args ...interface{}) *Error {
	return &Error{Kind: KindRange, Message: fmt.Sprintf(format, args...)}
}

// UnknownSheet returns a KindUnknownSheet error for name.
func UnknownSheet(name string) *Error {
	return &Error{Kind: KindUnknownSheet, Message: "unknown sheet", Sheet: name}
}

// NotBuilt returns a KindNotBuilt error for name.
func NotBuilt(name string) *Error {
	return &Error{Kind: KindNotBuilt, Message: "sheet store not built yet", Sheet: name}
}

// SourceUnavailable wraps cause as a KindSourceUnavailable error.
func SourceUnavailable(message string, cause error) *Error {
	return &Error{Kind: KindSourceUnavailable, Message: message, Cause: cause}
}

// Internal wraps cause as a KindInternal error.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
