// Package ragerr defines the error kinds produced by the ingestion and retrieval pipeline.
//
// Callers branch on Kind, never on message text. Message is always safe to show to an end
// user; the wrapped library error is only meant for logs.
package ragerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	UnsupportedFormat       Kind = "unsupported_format"
	UnsupportedLegacyFormat Kind = "unsupported_legacy_format"
	NotFound                Kind = "not_found"
	EmptyInput              Kind = "empty_input"
	CapabilityUnavailable   Kind = "capability_unavailable"
	EmptyExtraction         Kind = "empty_extraction"
	DecodeFailure           Kind = "decode_failure"
	SessionNotFound         Kind = "session_not_found"

	InvalidArgument   Kind = "invalid_argument"
	EmbeddingFailure  Kind = "embedding_failure"
	GenerationFailure Kind = "generation_failure"
)

// Error is the single error type returned across the ingestion boundary.
type Error struct {
	Kind    Kind
	Message string
	// Detail carries structured, user-safe extras (e.g. the supported extension list).
	Detail map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without an underlying cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps err for logging.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// With attaches a detail value and returns the same error.
func (e *Error) With(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// KindOf reports the Kind of err, or "" when err is not (and does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As returns the *Error inside err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
