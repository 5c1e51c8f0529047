package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"grievance/internal/shared"
)

// PanicError is the error recorded for a recovered panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recover handles a panic of the calling goroutine. Use it deferred:
//
//	defer h.Recover(ctx)
func (h *Handler) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		h.handlePanic(ctx, r)
	}
}

func (h *Handler) handlePanic(ctx context.Context, r any) *shared.AppError {
	return h.HandleError(ctx, &PanicError{Value: r},
		WithStackTrace(string(debug.Stack())),
		WithLabel("panic"),
	)
}

// Go runs fn in a new goroutine. A returned error or a panic is handled;
// context cancellation is not.
func (h *Handler) Go(ctx context.Context, fn func(ctx context.Context) error) {
	go func() {
		defer h.Recover(ctx)
		if err := fn(ctx); err != nil && !(ctx.Err() != nil && shared.IsCanceled(err)) {
			h.HandleError(ctx, err, WithLabel("background"))
		}
	}()
}

// JobErrorHook returns a callback for scheduler job failures.
func (h *Handler) JobErrorHook(ctx context.Context) func(job string, err error) {
	return func(job string, err error) {
		h.HandleError(ctx, err, WithLabel("job:"+job))
	}
}

// GinRecovery is gin middleware that handles panics of later handlers and
// errors they attached with c.Error without rendering a response.
func (h *Handler) GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			appErr := h.handlePanic(c.Request.Context(), r)
			status, body := Response(appErr)
			c.AbortWithStatusJSON(status, body)
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		ctx := c.Request.Context()
		var last *shared.AppError
		for _, ge := range c.Errors {
			last = h.HandleError(ctx, ge.Err, WithLabel("http"))
		}
		if !c.Writer.Written() {
			status, body := Response(last)
			c.AbortWithStatusJSON(status, body)
		}
	}
}
