// Package errors provides the error taxonomy shared by acquisition and the study engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors
var (
	ErrDataUnavailable  = errors.New("price data unavailable")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrNoEvents         = errors.New("no events found in the specified date range")
	ErrInsufficientData = errors.New("insufficient price data")
	ErrUnsupported      = errors.New("operation not supported by provider")
	ErrSymbolRequired   = errors.New("symbol is required")
)

const dateLayout = "2006-01-02"

// DataUnavailableError is returned when every acquisition tier came back empty.
type DataUnavailableError struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Reason string
	Cause  error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("no data returned for %s from %s to %s", e.Symbol,
		e.Start.Format(dateLayout), e.End.Format(dateLayout))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

// NewDataUnavailable creates a DataUnavailableError with the default transient-failure guidance.
func NewDataUnavailable(symbol string, start, end time.Time, cause error) *DataUnavailableError {
	return &DataUnavailableError{
		Symbol: symbol,
		Start:  start,
		End:    end,
		Reason: "this is likely transient (rate limiting or a provider outage); retry in a few moments",
		Cause:  cause,
	}
}

// InvalidRangeError is returned before any I/O when a requested range is unusable.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s",
		e.Start.Format(dateLayout), e.End.Format(dateLayout), e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// NewInvalidRange creates an InvalidRangeError.
func NewInvalidRange(start, end time.Time, reason string) *InvalidRangeError {
	return &InvalidRangeError{Start: start, End: end, Reason: reason}
}

// ProviderError wraps a failure reported by an upstream price provider.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
