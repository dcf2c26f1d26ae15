// Package errors provides coded errors shared by the backtest engine, the job
// dispatcher and the HTTP API.
//
// Codes are grouped by the layer that raises them:
//   - General (1-99)
//   - Validation and configuration (100-199)
//   - Candle sources (200-299)
//   - Indicators (300-399)
//   - Classifier and model files (400-499)
//   - Backtest and training runs (500-599)
//   - Jobs and the event hub (600-699)
//   - Transport (700-799)
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInsufficientCandles, "need %d candles, got %d", 300, n)
//	if errors.HasCode(err, errors.ErrCodeJobNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is an error carrying an ErrorCode.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap attaches a code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf attaches a code and formatted message to cause.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is wraps the standard errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps the standard errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error in err's chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientCandlesError is returned when a run has fewer candles than it needs.
type InsufficientCandlesError struct {
	Required   int
	Actual     int
	Instrument string
}

func NewInsufficientCandlesError(required, actual int, instrument string) *InsufficientCandlesError {
	return &InsufficientCandlesError{
		Required:   required,
		Actual:     actual,
		Instrument: instrument,
	}
}

func (e *InsufficientCandlesError) Error() string {
	return fmt.Sprintf("not enough candles for %s: need %d, got %d", e.Instrument, e.Required, e.Actual)
}

// IsInsufficientCandlesError reports whether err's chain holds an InsufficientCandlesError.
func IsInsufficientCandlesError(err error) bool {
	var target *InsufficientCandlesError

	return errors.As(err, &target)
}
