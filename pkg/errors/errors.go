package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Ledger-specific errors

var (
	// ErrPositionNotFound indicates no live position exists for a trade number
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidQuantity indicates a close for more contracts than held
	ErrInvalidQuantity = errors.New("invalid contract quantity")

	// ErrPositionClosed indicates an operation against a closed position
	ErrPositionClosed = errors.New("position already closed")

	// ErrDuplicateTradeNumber indicates an open reusing a live trade number
	ErrDuplicateTradeNumber = errors.New("trade number already live")
)

// Quote provider errors

var (
	// ErrQuoteUnavailable indicates no usable bid/ask for a contract series
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrRateLimitExceeded indicates the quote provider rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Row-store errors

var (
	// ErrStoreUnavailable indicates the backing store cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreConsistency indicates the backing store violates a ledger
	// invariant (e.g. two live rows sharing a trade number)
	ErrStoreConsistency = errors.New("store consistency violation")

	// ErrRowOutOfRange indicates a row number outside the stored range
	ErrRowOutOfRange = errors.New("row number out of range")

	// ErrUnknownColumn indicates a column name outside the sheet layout
	ErrUnknownColumn = errors.New("unknown column")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
