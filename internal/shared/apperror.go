package shared

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrorContext describes where and when an AppError was created.
type ErrorContext struct {
	UserID         string         `json:"userId,omitempty"`
	SessionID      string         `json:"sessionId"`
	UserAgent      string         `json:"userAgent"`
	URL            string         `json:"url"`
	Timestamp      time.Time      `json:"timestamp"`
	StackTrace     string         `json:"stackTrace,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

func (c ErrorContext) clone() ErrorContext {
	if c.AdditionalData != nil {
		c.AdditionalData = cloneMap(c.AdditionalData)
	}
	return c
}

// cloneMap copies m along with the maps and slices nested in it.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	case map[string]string:
		return maps.Clone(v)
	}
	return v
}

// AppError is the normalized record of a failure. It is immutable: all
// fields are set by NewAppError and exposed through getters.
type AppError struct {
	id          string
	message     string
	code        string
	category    Category
	severity    Severity
	ctx         ErrorContext
	retryable   bool
	userMessage string
	origin      Failure
}

// NewAppError classifies err and attaches ctx. A zero Timestamp is set to
// the current time. If err already is an *AppError it is returned as is.
// NewAppError returns nil for a nil error.
func NewAppError(err error, ctx ErrorContext) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	f := AsFailure(err)
	cl := Classify(f)
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now()
	}
	return &AppError{
		id:          uuid.NewString(),
		message:     f.Message(),
		code:        f.Code(),
		category:    cl.Category,
		severity:    cl.Severity,
		ctx:         ctx.clone(),
		retryable:   cl.Retryable,
		userMessage: cl.UserMessage,
		origin:      f,
	}
}

func (e *AppError) Error() string {
	return string(e.category) + ": " + e.message
}

// Unwrap returns the failure the AppError was built from.
func (e *AppError) Unwrap() error {
	if e.origin == nil {
		return nil
	}
	return e.origin
}

// Is reports whether target is the sentinel of the error's category.
func (e *AppError) Is(target error) bool {
	s := SentinelOf(e.category)
	return s != nil && target == s
}

func (e *AppError) ID() string            { return e.id }
func (e *AppError) Message() string       { return e.message }
func (e *AppError) Code() string          { return e.code }
func (e *AppError) Category() Category    { return e.category }
func (e *AppError) Severity() Severity    { return e.severity }
func (e *AppError) Retryable() bool       { return e.retryable }
func (e *AppError) UserMessage() string   { return e.userMessage }
func (e *AppError) Context() ErrorContext { return e.ctx.clone() }

// Status returns the HTTP status of the originating failure, 0 if none.
func (e *AppError) Status() int {
	if e.origin == nil {
		return 0
	}
	return e.origin.Status()
}

type appErrorJSON struct {
	ID          string       `json:"id"`
	Message     string       `json:"message"`
	Code        string       `json:"code,omitempty"`
	Category    Category     `json:"category"`
	Severity    Severity     `json:"severity"`
	Context     ErrorContext `json:"context"`
	Retryable   bool         `json:"isRetryable"`
	UserMessage string       `json:"userMessage"`
}

// MarshalJSON encodes the record in the shape expected by the error sink.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(appErrorJSON{
		ID:          e.id,
		Message:     e.message,
		Code:        e.code,
		Category:    e.category,
		Severity:    e.severity,
		Context:     e.ctx,
		Retryable:   e.retryable,
		UserMessage: e.userMessage,
	})
}
