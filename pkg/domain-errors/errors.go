// Package domainerrors provides coded errors for the duplicate-check domain.
// Codes classify failures so transport layers can map them to status codes and
// callers can tell retryable upstream faults from permanent input errors.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// Input errors: the caller sent something we will never accept.
	CodeBadRequest        Code = "bad_request"
	CodeInvalidPhone      Code = "invalid_phone"
	CodeInvalidEmail      Code = "invalid_email"
	CodeInvalidDate       Code = "invalid_date"
	CodeInvalidPostalCode Code = "invalid_postal_code"

	// Pipeline errors.
	CodeEmbeddingError      Code = "embedding_error"
	CodeUpstreamTimeout     Code = "upstream_timeout"
	CodeModelSchemaMismatch Code = "model_schema_mismatch"
	CodeTrainingError       Code = "training_error"

	CodeNotFound Code = "not_found"
	CodeInternal Code = "internal"
)

// Error is a domain error carrying a classification code.
type Error struct {
	code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// CodeOf returns the error's code, or CodeInternal for unclassified errors.
func (e *Error) CodeOf() Code { return e.code }

// New creates a coded domain error.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf creates a coded domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &Error{code: code, msg: msg, err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// CodeOf extracts the code from err, falling back to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// Retryable reports whether the failure class is worth retrying. Only upstream
// faults qualify; input and schema errors are permanent.
func Retryable(err error) bool {
	return CodeOf(err) == CodeUpstreamTimeout
}
