package reporting_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/metrics"
	"grievance/internal/reporting"
	"grievance/internal/shared"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]*shared.AppError
	err     error
	panics  bool
}

func (s *recordingSink) Send(_ context.Context, batch []*shared.AppError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("sink exploded")
	}
	s.batches = append(s.batches, batch)
	return s.err
}

func (s *recordingSink) Batches() [][]*shared.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*shared.AppError(nil), s.batches...)
}

func (s *recordingSink) Name() string { return "recording" }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func lowError(i int) *shared.AppError {
	return shared.NewAppError(fmt.Errorf("minor glitch %d", i), shared.ErrorContext{})
}

func TestBuffer_ThresholdFlush(t *testing.T) {
	sink := &recordingSink{}
	buf := reporting.NewBuffer(sink, reporting.WithLogger(quiet()))
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		e := lowError(i)
		require.NotEqual(t, shared.SeverityCritical, e.Severity())
		buf.Report(ctx, e)

		switch i {
		case 9:
			assert.Empty(t, sink.Batches(), "no flush before the 10th error")
		case 10:
			require.Len(t, sink.Batches(), 1)
			assert.Equal(t, 0, buf.Len())
		}
	}

	batches := sink.Batches()
	require.Len(t, batches, 2)
	for _, b := range batches {
		assert.Len(t, b, 10)
	}
	assert.Equal(t, "minor glitch 11", batches[1][0].Message())
}

func TestBuffer_CriticalSentImmediately(t *testing.T) {
	sink := &recordingSink{}
	buf := reporting.NewBuffer(sink, reporting.WithLogger(quiet()))

	e := shared.NewAppError(errors.New("fatal database corruption"), shared.ErrorContext{})
	require.Equal(t, shared.SeverityCritical, e.Severity())

	buf.Report(context.Background(), e)

	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, e.ID(), batches[0][0].ID())
	assert.Equal(t, 1, buf.Len(), "critical error stays buffered")
}

func TestBuffer_CapacityEvictsOldest(t *testing.T) {
	sink := &recordingSink{}
	buf := reporting.NewBuffer(sink,
		reporting.WithLogger(quiet()),
		reporting.WithCapacity(100),
		reporting.WithThreshold(0),
	)
	ctx := context.Background()

	var all []*shared.AppError
	for i := 1; i <= 101; i++ {
		e := lowError(i)
		all = append(all, e)
		buf.Report(ctx, e)
	}

	snap := buf.Snapshot()
	require.Len(t, snap, 100)
	assert.Equal(t, all[1].ID(), snap[0].ID(), "position 2 becomes the head")
	assert.Equal(t, all[100].ID(), snap[99].ID())
	for _, e := range snap {
		assert.NotEqual(t, all[0].ID(), e.ID())
	}
	assert.Empty(t, sink.Batches())
}

func TestBuffer_SinkFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name string
		sink *recordingSink
	}{
		{name: "error", sink: &recordingSink{err: errors.New("sink down")}},
		{name: "panic", sink: &recordingSink{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			buf := reporting.NewBuffer(tt.sink,
				reporting.WithLogger(quiet()),
				reporting.WithMetrics(m),
				reporting.WithThreshold(1),
			)

			assert.NotPanics(t, func() {
				buf.Report(context.Background(), lowError(1))
			})
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("recording")))
			assert.Equal(t, 0, buf.Len())
		})
	}
}

func TestBuffer_Flush(t *testing.T) {
	sink := &recordingSink{}
	buf := reporting.NewBuffer(sink, reporting.WithLogger(quiet()))
	ctx := context.Background()

	buf.Flush(ctx)
	assert.Empty(t, sink.Batches(), "empty buffer sends nothing")

	for i := 0; i < 3; i++ {
		buf.Report(ctx, lowError(i))
	}
	buf.Flush(ctx)

	batches := sink.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, 0, buf.Len())
}

func TestBuffer_Async(t *testing.T) {
	sink := &recordingSink{}
	buf := reporting.NewBuffer(sink,
		reporting.WithLogger(quiet()),
		reporting.WithAsync(),
		reporting.WithThreshold(2),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf.Report(ctx, lowError(1))
	buf.Report(ctx, lowError(2))
	buf.Wait()

	require.Len(t, sink.Batches(), 1, "a canceled caller context does not stop delivery")
}

func TestBuffer_NilReportIgnored(t *testing.T) {
	buf := reporting.NewBuffer(&recordingSink{})
	buf.Report(context.Background(), nil)
	assert.Equal(t, 0, buf.Len())
}
