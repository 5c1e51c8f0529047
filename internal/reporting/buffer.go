// Package reporting buffers normalized errors and ships them to the remote
// error and log sinks. Nothing in this package ever returns a delivery
// failure to its caller: reporting must not produce new errors to report.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"grievance/internal/metrics"
	"grievance/internal/shared"
)

const (
	DefaultCapacity  = 100
	DefaultThreshold = 10
)

// Sink receives batches of errors.
type Sink interface {
	Send(ctx context.Context, batch []*shared.AppError) error
}

// Reporter accepts errors for delivery.
type Reporter interface {
	Report(ctx context.Context, e *shared.AppError)
}

// Buffer is a bounded FIFO of errors flushed to a Sink.
//
// Report appends an error, dropping the oldest entry when the capacity is
// exceeded. A CRITICAL error is additionally sent at once as a batch of one
// and stays buffered. When the buffer reaches the threshold its contents
// are sent as one batch and the buffer is emptied.
type Buffer struct {
	mu        sync.Mutex
	items     []*shared.AppError
	capacity  int
	threshold int

	sink    Sink
	name    string
	log     *slog.Logger
	metrics *metrics.Metrics
	async   bool
	wg      sync.WaitGroup
}

// Option configures Buffer.
type Option func(*Buffer)

// WithCapacity sets the maximum number of buffered errors.
func WithCapacity(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithThreshold sets the size that triggers a flush. Zero or less disables
// size-triggered flushing; Flush must then be called explicitly.
func WithThreshold(n int) Option {
	return func(b *Buffer) { b.threshold = n }
}

// WithLogger sets the logger used for swallowed delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics records deliveries and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Buffer) { b.metrics = m }
}

// WithAsync sends batches from a background goroutine so Report never waits
// on the network. Wait blocks until in-flight sends finish.
func WithAsync() Option {
	return func(b *Buffer) { b.async = true }
}

// NewBuffer creates a Buffer delivering to sink.
func NewBuffer(sink Sink, opts ...Option) *Buffer {
	b := &Buffer{
		capacity:  DefaultCapacity,
		threshold: DefaultThreshold,
		sink:      sink,
		name:      sinkName(sink),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Report implements Reporter.
func (b *Buffer) Report(ctx context.Context, e *shared.AppError) {
	if e == nil {
		return
	}

	b.mu.Lock()
	b.items = append(b.items, e)
	if over := len(b.items) - b.capacity; over > 0 {
		b.items = append([]*shared.AppError(nil), b.items[over:]...)
	}
	var batch []*shared.AppError
	if b.threshold > 0 && len(b.items) >= b.threshold {
		batch = b.items
		b.items = nil
	}
	b.mu.Unlock()

	if e.Severity() == shared.SeverityCritical {
		b.send(ctx, []*shared.AppError{e})
	}
	if batch != nil {
		b.send(ctx, batch)
	}
}

// Flush sends whatever is buffered as one batch.
func (b *Buffer) Flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.items
	b.items = nil
	b.mu.Unlock()

	if len(batch) > 0 {
		b.send(ctx, batch)
	}
}

// Len returns the number of buffered errors.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Snapshot returns a copy of the buffered errors, oldest first.
func (b *Buffer) Snapshot() []*shared.AppError {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*shared.AppError(nil), b.items...)
}

// Wait blocks until every asynchronous send has returned.
func (b *Buffer) Wait() {
	b.wg.Wait()
}

func (b *Buffer) send(ctx context.Context, batch []*shared.AppError) {
	if b.sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if !b.async {
		b.deliver(ctx, batch)
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.deliver(ctx, batch)
	}()
}

func (b *Buffer) deliver(ctx context.Context, batch []*shared.AppError) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.SinkFailed(b.name)
			b.log.Error("error sink panicked", slog.String("sink", b.name), slog.Any("panic", r))
		}
	}()
	if err := b.sink.Send(ctx, batch); err != nil {
		b.metrics.SinkFailed(b.name)
		b.log.Warn("error report not delivered",
			slog.String("sink", b.name),
			slog.Int("batch", len(batch)),
			slog.Any("error", err),
		)
		return
	}
	b.metrics.Sent(b.name)
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
