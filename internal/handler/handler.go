// Package handler is the single funnel for failures. Every error that
// reaches the user passes through Handler: it is classified into an
// AppError, reported, announced with a severity scaled notification and,
// for asynchronous operations, retried first.
//
// A Handler is built once at startup and passed to whatever needs it.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"grievance/internal/metrics"
	"grievance/internal/notify"
	"grievance/internal/reporting"
	"grievance/internal/session"
	"grievance/internal/shared"
	"grievance/pkg/retry"
)

// Deps are the collaborators of a Handler. Retry is required.
type Deps struct {
	Reporter reporting.Reporter
	Notifier notify.Notifier
	Retry    *retry.Coordinator
	Session  session.Provider
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Handler classifies, reports and announces failures.
type Handler struct {
	reporter reporting.Reporter
	notifier notify.Notifier
	retry    *retry.Coordinator
	session  session.Provider
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, *shared.AppError) {}

// New creates a Handler. Missing optional deps fall back to no-op or
// default implementations.
func New(d Deps) (*Handler, error) {
	if d.Retry == nil {
		return nil, errors.New("handler: retry coordinator is required")
	}
	h := &Handler{
		reporter: d.Reporter,
		notifier: d.Notifier,
		retry:    d.Retry,
		session:  d.Session,
		log:      d.Logger,
		metrics:  d.Metrics,
		now:      time.Now,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.reporter == nil {
		h.reporter = nopReporter{}
	}
	if h.notifier == nil {
		h.notifier = notify.NewLog(h.log)
	}
	if h.session == nil {
		h.session = session.NewMemory()
	}
	return h, nil
}

// HandleError turns err into an AppError, reports it and notifies the user.
// It returns nil for a nil error. An err that already is an *AppError is
// reported and announced again without being rebuilt.
func (h *Handler) HandleError(ctx context.Context, err error, opts ...ContextOption) *shared.AppError {
	return h.handle(ctx, err, false, opts...)
}

func (h *Handler) handle(ctx context.Context, err error, exhausted bool, opts ...ContextOption) *shared.AppError {
	if err == nil {
		return nil
	}

	appErr, ok := err.(*shared.AppError)
	if !ok {
		appErr = shared.NewAppError(err, h.errorContext(ctx, opts))
	}

	h.metrics.Error(string(appErr.Category()), appErr.Severity().String())
	h.log.LogAttrs(ctx, logLevel(appErr.Severity()), "error handled",
		slog.String("error_id", appErr.ID()),
		slog.String("category", string(appErr.Category())),
		slog.String("severity", appErr.Severity().String()),
		slog.Bool("retryable", appErr.Retryable()),
		slog.Bool("retries_exhausted", exhausted),
		slog.String("message", appErr.Message()),
	)

	h.reporter.Report(ctx, appErr)

	policy := notify.PolicyFor(appErr.Severity())
	if exhausted {
		// The operation gave up on its own; the user has to act.
		policy = notify.Persistent
	}
	h.notifier.Notify(ctx, policy, Title(appErr.Category()), appErr.UserMessage())
	return appErr
}

// AsyncOptions configure HandleAsync.
type AsyncOptions struct {
	// OperationID scopes the retry budget. Empty gets a fresh id per call.
	OperationID string
	// Retryable set to false disables retries whatever the classification.
	Retryable *bool
	// MaxRetries overrides the coordinator default when set. Zero means a
	// single attempt.
	MaxRetries *int
	// Context is attached to the AppError as additional data.
	Context map[string]any
}

// Bool returns a pointer to v, for AsyncOptions.Retryable.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for AsyncOptions.MaxRetries.
func Int(v int) *int { return &v }

// HandleAsync runs op through the retry coordinator. Retryable failures are
// retried with exponential backoff; the terminal failure is handled with
// HandleError and returned as an *shared.AppError.
//
// When ctx is canceled the context error is returned unhandled: an abandoned
// operation is not a failure to announce.
func (h *Handler) HandleAsync(ctx context.Context, op func(ctx context.Context) error, o AsyncOptions) error {
	isRetryable := retry.IsRetryableFunc(shared.IsRetryable)
	if o.Retryable != nil && !*o.Retryable {
		isRetryable = retry.Never
	}

	err := h.retry.Execute(ctx, retry.Options{
		OperationID: o.OperationID,
		MaxRetries:  o.MaxRetries,
		IsRetryable: isRetryable,
	}, op)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && shared.IsCanceled(err) {
		return err
	}

	opts := []ContextOption{WithData(o.Context)}
	if o.OperationID != "" {
		opts = append(opts, WithValue("operationId", o.OperationID))
	}

	var exceeded *retry.RetriesExceededError
	if errors.As(err, &exceeded) {
		opts = append(opts, WithValue("attempts", exceeded.Attempts))
		return h.handle(ctx, exceeded.LastError, true, opts...)
	}
	return h.handle(ctx, err, false, opts...)
}

// Do is HandleAsync for operations returning a value.
func Do[T any](ctx context.Context, h *Handler, op func(ctx context.Context) (T, error), o AsyncOptions) (T, error) {
	var out T
	err := h.HandleAsync(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, o)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Title is the notification heading for a category.
func Title(c shared.Category) string {
	switch c {
	case shared.CategoryNetwork:
		return "Connection problem"
	case shared.CategoryAuthentication:
		return "Session expired"
	case shared.CategoryAuthorization:
		return "Access denied"
	case shared.CategoryValidation:
		return "Invalid request"
	case shared.CategoryBusinessLogic:
		return "Request rejected"
	case shared.CategoryUserInput:
		return "Check your input"
	default:
		return "Unexpected error"
	}
}

func logLevel(s shared.Severity) slog.Level {
	switch s {
	case shared.SeverityCritical, shared.SeverityHigh:
		return slog.LevelError
	case shared.SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
