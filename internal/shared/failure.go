package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeNetworkError is the code attached to failures where the remote side
// could not be reached at all.
const CodeNetworkError = "NETWORK_ERROR"

// Failure is the closed set of failure shapes the classifier understands.
// Raw errors are converted exactly once, by AsFailure, where they are first
// caught; everything downstream works with one of RemoteError, InputError
// or PlainError.
type Failure interface {
	error
	// Status is the HTTP status reported by the remote side, 0 if none.
	Status() int
	// Code is the machine readable code, empty if none.
	Code() string
	// Message is the human readable message inspected by the classifier.
	Message() string

	failure()
}

var (
	_ Failure = (*RemoteError)(nil)
	_ Failure = (*InputError)(nil)
	_ Failure = (*PlainError)(nil)
)

// RemoteError is a failure reported by the HTTP layer: either a non-2xx
// response or a transport error (Code == CodeNetworkError).
type RemoteError struct {
	status  int
	code    string
	message string
	cause   error
}

// NewRemoteError creates a RemoteError. An empty message falls back to the
// status text.
func NewRemoteError(status int, code, message string, cause error) *RemoteError {
	if message == "" && status > 0 {
		message = http.StatusText(status)
	}
	return &RemoteError{status: status, code: code, message: message, cause: cause}
}

// NewNetworkError creates a RemoteError for a request that never got a response.
func NewNetworkError(cause error) *RemoteError {
	msg := "network request failed"
	if cause != nil {
		msg = "network request failed: " + cause.Error()
	}
	return &RemoteError{code: CodeNetworkError, message: msg, cause: cause}
}

func (e *RemoteError) Error() string {
	switch {
	case e.status > 0 && e.code != "":
		return fmt.Sprintf("remote %d %s: %s", e.status, e.code, e.message)
	case e.status > 0:
		return fmt.Sprintf("remote %d: %s", e.status, e.message)
	case e.code != "":
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return e.message
	}
}

// Is maps remote statuses onto the sentinels: 404 is ErrNotFound, 408 and
// 504 are ErrTimeout.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.status == http.StatusNotFound
	case ErrTimeout:
		return e.status == http.StatusRequestTimeout || e.status == http.StatusGatewayTimeout
	}
	return false
}

func (e *RemoteError) Unwrap() error   { return e.cause }
func (e *RemoteError) Status() int     { return e.status }
func (e *RemoteError) Code() string    { return e.code }
func (e *RemoteError) Message() string { return e.message }
func (e *RemoteError) failure()        {}

// InputError is a failure of local input checks. It never reaches the network.
type InputError struct {
	field   string
	message string
}

// NewInputError creates an InputError for the given field.
func NewInputError(field, message string) *InputError {
	return &InputError{field: field, message: message}
}

func (e *InputError) Error() string {
	if e.field == "" {
		return e.message
	}
	return e.field + ": " + e.message
}

// Field returns the name of the offending input field.
func (e *InputError) Field() string { return e.field }

// Is makes errors.Is(err, ErrInvalidInput) hold for every InputError.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InputError) Status() int     { return 0 }
func (e *InputError) Code() string    { return "" }
func (e *InputError) Message() string { return e.Error() }
func (e *InputError) failure()        {}

// PlainError carries any other error. Only its message is visible to the
// classifier.
type PlainError struct {
	cause error
}

func (e *PlainError) Error() string   { return e.cause.Error() }
func (e *PlainError) Unwrap() error   { return e.cause }
func (e *PlainError) Status() int     { return 0 }
func (e *PlainError) Code() string    { return "" }
func (e *PlainError) Message() string { return e.cause.Error() }
func (e *PlainError) failure()        {}

// AsFailure converts err into one of the known failure shapes.
// It returns nil for a nil error.
func AsFailure(err error) Failure {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.origin != nil {
		return appErr.origin
	}
	var f Failure
	if errors.As(err, &f) {
		return f
	}
	return &PlainError{cause: err}
}
