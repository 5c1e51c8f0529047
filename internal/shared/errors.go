// Package shared contains the portal's error model: sentinel errors, the
// closed set of failure shapes accepted at the transport boundary, the
// classifier and the normalized AppError record.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common domain errors that can be used across the application
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates that the remote side rejected the request as invalid
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput indicates that local input checks failed before any remote call
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the request is understood but forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvariantViolated indicates that a business rule was violated
	ErrInvariantViolated = errors.New("invariant violated")

	// ErrDependencyFailure indicates that an external dependency could not be reached
	ErrDependencyFailure = errors.New("dependency failure")
)

// categoryToSentinel maps error categories to their corresponding sentinel errors.
var categoryToSentinel = map[Category]error{
	CategoryNetwork:        ErrDependencyFailure,
	CategoryAuthentication: ErrUnauthorized,
	CategoryAuthorization:  ErrForbidden,
	CategoryValidation:     ErrValidation,
	CategoryBusinessLogic:  ErrInvariantViolated,
	CategorySystem:         ErrInternal,
	CategoryUserInput:      ErrInvalidInput,
}

// SentinelOf returns the sentinel error for the given Category.
// For unknown categories it returns nil.
//
// AppError matches its category sentinel with errors.Is:
//
//	if errors.Is(err, shared.ErrUnauthorized) {
//	    // redirect to login
//	}
func SentinelOf(c Category) error {
	return categoryToSentinel[c]
}

// Wrap wraps an error with additional context.
// It returns a new error that formats as "context: err".
// If err is nil, Wrap returns nil.
// If context is empty, returns the original error.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(format, args...)
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Invariant checks a condition and returns an error if it's false.
// The message mentions the business rule so the classifier files it under
// BUSINESS_LOGIC.
func Invariant(condition bool, message string) error {
	if condition {
		return nil
	}
	return fmt.Errorf("%w: business rule: %s", ErrInvariantViolated, message)
}

// IsCanceled reports whether the error indicates a canceled context.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled)
}

// IsTimeout reports whether the error indicates a timeout.
// It checks for context.DeadlineExceeded, net.Error timeouts, and our ErrTimeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
