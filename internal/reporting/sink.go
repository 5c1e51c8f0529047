package reporting

import (
	"context"
	"log/slog"
	"time"

	"grievance/internal/shared"
)

const (
	ErrorsPath = "/api/errors/"
	LogsPath   = "/api/logs/"
)

// Poster is the part of the HTTP client the sinks need.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// HTTPSink posts error batches to the portal API.
type HTTPSink struct {
	client  Poster
	timeout time.Duration
}

// NewHTTPSink creates an HTTPSink. A non-positive timeout defaults to 10s.
func NewHTTPSink(client Poster, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSink{client: client, timeout: timeout}
}

type errorBatch struct {
	Errors []*shared.AppError `json:"errors"`
}

// Send implements Sink.
func (s *HTTPSink) Send(ctx context.Context, batch []*shared.AppError) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Post(ctx, ErrorsPath, errorBatch{Errors: batch}, nil)
}

// Name implements the optional sink naming used in metrics.
func (s *HTTPSink) Name() string { return "http" }

// LocalSink writes batches to the local log.
type LocalSink struct {
	log *slog.Logger
}

// NewLocalSink creates a LocalSink writing through l.
func NewLocalSink(l *slog.Logger) *LocalSink {
	if l == nil {
		l = slog.Default()
	}
	return &LocalSink{log: l}
}

// Send implements Sink.
func (s *LocalSink) Send(ctx context.Context, batch []*shared.AppError) error {
	for _, e := range batch {
		s.log.WarnContext(ctx, "error report",
			slog.String("id", e.ID()),
			slog.String("category", string(e.Category())),
			slog.String("severity", e.Severity().String()),
			slog.String("message", e.Message()),
		)
	}
	return nil
}

// Name implements the optional sink naming used in metrics.
func (s *LocalSink) Name() string { return "local" }
