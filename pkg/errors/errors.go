// Package errors provides the unified error type and factory functions for
// IBEX-Mapper. Every layer (domain, application, infrastructure, interfaces)
// returns *AppError so that callers can branch on a typed ErrorCode instead of
// matching message strings, and so the CLI and HTTP surfaces can map failures
// to exit codes and status codes consistently.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stack capture
// ─────────────────────────────────────────────────────────────────────────────

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout IBEX-Mapper.
// It supports Go 1.13+ wrapping so errors.Is / errors.As / errors.Unwrap work
// across layers.
//
// Usage:
//
//	return errors.New(errors.CodeMaxLMismatch, "coefficient table exceeds cached degree")
//	return errors.Wrap(err, errors.CodeStorageFailure, "failed to persist basis blob")
//	return errors.MalformedGeoPoint("latitude out of range").WithDetail("lat=91")
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (offending values, keys, paths).
	Detail string

	// Cause is the underlying error that triggered this AppError.
	Cause error

	// Stack contains the call-stack captured at creation. It is not part of
	// Error() output.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>". The detail segment is omitted when empty
// and the cause is appended after " caused by " when present.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(" caused by ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithDetailf is WithDetail with fmt.Sprintf formatting.
func (e *AppError) WithDetailf(format string, args ...interface{}) *AppError {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with fmt.Sprintf formatting of the message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline.
//
// When err is already an *AppError and code is CodeUnknown the original code is
// preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// Wrapf is Wrap with fmt.Sprintf formatting of the message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
//
//	if errors.IsCode(err, errors.CodeMaxLMismatch) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// CodeOK is returned for nil and CodeUnknown when no *AppError is present.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsNotFound reports whether err's chain carries a not-found code.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case CodeNotFound, CodeBlobNotFound, CodeFeatureNotFound:
		return true
	}
	return false
}

// IsValidation reports whether err's chain carries a code that describes bad
// caller input. Validation failures are never retried.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeInvalidParam, CodeValidation,
		CodeMaxLMismatch, CodeNonPositiveDimension, CodeMalformedGeoPoint,
		CodeMalformedTable, CodeEmptyTable,
		CodeFeatureInvalid, CodeConfigInvalid:
		return true
	}
	return false
}

// Is and As are re-exported so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// ─────────────────────────────────────────────────────────────────────────────
// Convenience constructors for the validation taxonomy
// ─────────────────────────────────────────────────────────────────────────────

// MaxLMismatch reports a coefficient table whose degree exceeds the cached basis.
func MaxLMismatch(fileMaxL, cacheMaxL int) *AppError {
	return &AppError{
		Code:    CodeMaxLMismatch,
		Message: "coefficient table degree exceeds configured max_l_to_cache",
		Detail:  fmt.Sprintf("file_max_l=%d max_l_to_cache=%d", fileMaxL, cacheMaxL),
		Stack:   captureStack(1),
	}
}

// NonPositiveDimension reports a grid resolution or degree that is not positive.
func NonPositiveDimension(name string, value int) *AppError {
	return &AppError{
		Code:    CodeNonPositiveDimension,
		Message: name + " must be positive",
		Detail:  fmt.Sprintf("%s=%d", name, value),
		Stack:   captureStack(1),
	}
}

// DimensionTooLarge reports a grid resolution or degree above its configured
// ceiling. It shares MAP_002 with NonPositiveDimension.
func DimensionTooLarge(name string, value, limit int) *AppError {
	return &AppError{
		Code:    CodeNonPositiveDimension,
		Message: fmt.Sprintf("%s must not exceed %d", name, limit),
		Detail:  fmt.Sprintf("%s=%d limit=%d", name, value, limit),
		Stack:   captureStack(1),
	}
}

// MalformedGeoPoint reports a longitude/latitude pair outside its domain.
func MalformedGeoPoint(message string) *AppError {
	return &AppError{
		Code:    CodeMalformedGeoPoint,
		Message: message,
		Stack:   captureStack(1),
	}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidParam,
		Message: message,
		Stack:   captureStack(1),
	}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Stack:   captureStack(1),
	}
}
