package handler

import (
	"context"
	"maps"

	"grievance/internal/shared"
)

// ContextOption adds details to the ErrorContext of a new AppError.
type ContextOption func(*shared.ErrorContext)

// WithValue sets one additional data entry.
func WithValue(key string, value any) ContextOption {
	return func(c *shared.ErrorContext) {
		if c.AdditionalData == nil {
			c.AdditionalData = make(map[string]any)
		}
		c.AdditionalData[key] = value
	}
}

// WithData merges data into the additional data.
func WithData(data map[string]any) ContextOption {
	return func(c *shared.ErrorContext) {
		if len(data) == 0 {
			return
		}
		if c.AdditionalData == nil {
			c.AdditionalData = make(map[string]any, len(data))
		}
		maps.Copy(c.AdditionalData, data)
	}
}

// WithLabel names the place the error originated from.
func WithLabel(label string) ContextOption {
	return WithValue("context", label)
}

// WithStackTrace attaches a stack trace.
func WithStackTrace(stack string) ContextOption {
	return func(c *shared.ErrorContext) { c.StackTrace = stack }
}

type requestKey struct{}

type requestInfo struct {
	url       string
	userAgent string
}

// WithRequest returns ctx carrying the URL and user agent of the request
// being served. Errors handled under ctx record both.
func WithRequest(ctx context.Context, url, userAgent string) context.Context {
	return context.WithValue(ctx, requestKey{}, requestInfo{url: url, userAgent: userAgent})
}

func (h *Handler) errorContext(ctx context.Context, opts []ContextOption) shared.ErrorContext {
	ec := shared.ErrorContext{
		UserID:    h.session.UserID(ctx),
		SessionID: h.session.SessionID(ctx),
		Timestamp: h.now(),
	}
	if ri, ok := ctx.Value(requestKey{}).(requestInfo); ok {
		ec.URL = ri.url
		ec.UserAgent = ri.userAgent
	}
	for _, o := range opts {
		o(&ec)
	}
	return ec
}
