package reporting

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// LogEntry is the body posted to the log endpoint.
type LogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// LogSink posts log entries to the portal API.
type LogSink struct {
	client  Poster
	timeout time.Duration
}

// NewLogSink creates a LogSink. The client must not itself log through a
// RemoteLogHandler feeding this sink.
func NewLogSink(client Poster, timeout time.Duration) *LogSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LogSink{client: client, timeout: timeout}
}

// Send posts one entry.
func (s *LogSink) Send(ctx context.Context, e LogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Post(ctx, LogsPath, e, nil)
}

// ContextFunc extracts request scoped metadata, such as the session id,
// attached to every forwarded entry.
type ContextFunc func(ctx context.Context) map[string]any

// RemoteLogOptions configures RemoteLogHandler.
type RemoteLogOptions struct {
	// Level is the minimum forwarded level (default: warn).
	Level slog.Leveler
	// QueueSize bounds the number of pending entries (default: 256).
	QueueSize int
	Context   ContextFunc
}

type logCore struct {
	sink    *LogSink
	queue   chan LogEntry
	level   slog.Leveler
	ctxFn   ContextFunc
	dropped atomic.Int64
}

// RemoteLogHandler is a slog.Handler that forwards records to a LogSink.
// Handle never blocks: entries are queued and delivered by Run, and are
// dropped when the queue is full or delivery fails.
type RemoteLogHandler struct {
	core   *logCore
	attrs  []slog.Attr
	prefix string
}

// NewRemoteLogHandler creates a handler forwarding to sink.
func NewRemoteLogHandler(sink *LogSink, o RemoteLogOptions) *RemoteLogHandler {
	if o.Level == nil {
		o.Level = slog.LevelWarn
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	return &RemoteLogHandler{core: &logCore{
		sink:  sink,
		queue: make(chan LogEntry, o.QueueSize),
		level: o.Level,
		ctxFn: o.Context,
	}}
}

// Enabled implements slog.Handler.
func (h *RemoteLogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.core.level.Level()
}

// Handle implements slog.Handler.
func (h *RemoteLogHandler) Handle(ctx context.Context, r slog.Record) error {
	e := LogEntry{
		Level:     levelName(r.Level),
		Message:   r.Message,
		Timestamp: r.Time.UTC(),
	}
	if n := len(h.attrs) + r.NumAttrs(); n > 0 {
		e.Data = make(map[string]any, n)
		for _, a := range h.attrs {
			putAttr(e.Data, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			putAttr(e.Data, h.prefix, a)
			return true
		})
	}
	if h.core.ctxFn != nil {
		e.Context = h.core.ctxFn(ctx)
	}

	select {
	case h.core.queue <- e:
	default:
		h.core.dropped.Add(1)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RemoteLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

// WithGroup implements slog.Handler.
func (h *RemoteLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

// Run delivers queued entries until ctx is done, then drains what is left.
func (h *RemoteLogHandler) Run(ctx context.Context) error {
	for {
		select {
		case e := <-h.core.queue:
			h.deliver(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-h.core.queue:
					h.deliver(e)
				default:
					return nil
				}
			}
		}
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (h *RemoteLogHandler) Dropped() int64 {
	return h.core.dropped.Load()
}

func (h *RemoteLogHandler) deliver(e LogEntry) {
	// Failures are dropped: logging them would feed this handler again.
	_ = h.core.sink.Send(context.Background(), e)
}

func putAttr(m map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			putAttr(m, prefix+a.Key+".", ga)
		}
		return
	}
	switch x := v.Any().(type) {
	case error:
		m[prefix+a.Key] = x.Error()
	case time.Duration:
		m[prefix+a.Key] = x.String()
	default:
		m[prefix+a.Key] = x
	}
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
