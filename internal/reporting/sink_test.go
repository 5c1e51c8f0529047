package reporting_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/platform/httpclient"
	"grievance/internal/reporting"
	"grievance/internal/shared"
)

type capturedRequest struct {
	path string
	body map[string]any
}

func captureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{path: r.URL.Path, body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestHTTPSink_Send(t *testing.T) {
	srv, requests := captureServer(t, http.StatusAccepted)
	client := httpclient.New(httpclient.WithLogger(quiet()), httpclient.WithBaseURL(srv.URL))
	sink := reporting.NewHTTPSink(client, time.Second)

	e := shared.NewAppError(errors.New("fatal database corruption"), shared.ErrorContext{SessionID: "s-1"})
	require.NoError(t, sink.Send(context.Background(), []*shared.AppError{e}))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/errors/", reqs[0].path)

	list, ok := reqs[0].body["errors"].([]any)
	require.True(t, ok, "body must be {\"errors\": [...]}")
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, e.ID(), first["id"])
	assert.Equal(t, "CRITICAL", first["severity"])
	assert.Equal(t, "SYSTEM", first["category"])
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError)
	client := httpclient.New(httpclient.WithLogger(quiet()), httpclient.WithBaseURL(srv.URL))
	sink := reporting.NewHTTPSink(client, time.Second)

	err := sink.Send(context.Background(), []*shared.AppError{lowError(1)})
	require.Error(t, err)

	buf := reporting.NewBuffer(sink, reporting.WithLogger(quiet()), reporting.WithThreshold(1))
	assert.NotPanics(t, func() { buf.Report(context.Background(), lowError(2)) })
}

type ctxKey struct{}

func TestRemoteLogHandler(t *testing.T) {
	srv, requests := captureServer(t, http.StatusOK)
	client := httpclient.New(httpclient.WithLogger(quiet()), httpclient.WithBaseURL(srv.URL))

	h := reporting.NewRemoteLogHandler(reporting.NewLogSink(client, time.Second), reporting.RemoteLogOptions{
		Level: slog.LevelWarn,
		Context: func(ctx context.Context) map[string]any {
			if v, ok := ctx.Value(ctxKey{}).(string); ok {
				return map[string]any{"sessionId": v}
			}
			return nil
		},
	})
	l := slog.New(h).With(slog.String("component", "repository"))

	ctx := context.WithValue(context.Background(), ctxKey{}, "sess-9")
	l.InfoContext(ctx, "ignored below level")
	l.WithGroup("req").WarnContext(ctx, "slow upstream", slog.Duration("took", 2*time.Second), slog.Any("error", errors.New("boom")))

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Run(runCtx))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/logs/", reqs[0].path)

	body := reqs[0].body
	assert.Equal(t, "warn", body["level"])
	assert.Equal(t, "slow upstream", body["message"])
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "repository", data["component"])
	assert.Equal(t, "2s", data["req.took"])
	assert.Equal(t, "boom", data["req.error"])

	assert.Equal(t, map[string]any{"sessionId": "sess-9"}, body["context"])
}

func TestRemoteLogHandler_DropsOnOverflow(t *testing.T) {
	client := httpclient.New(httpclient.WithLogger(quiet()), httpclient.WithBaseURL("http://127.0.0.1:1"))
	h := reporting.NewRemoteLogHandler(reporting.NewLogSink(client, time.Millisecond), reporting.RemoteLogOptions{
		QueueSize: 2,
	})
	l := slog.New(h)

	for i := 0; i < 5; i++ {
		l.Error("burst")
	}
	assert.Equal(t, int64(3), h.Dropped())
}

func TestLocalSink_Send(t *testing.T) {
	var out bytes.Buffer
	sink := reporting.NewLocalSink(slog.New(slog.NewJSONHandler(&out, nil)))

	e := shared.NewAppError(errors.New("network unreachable"), shared.ErrorContext{})
	require.NoError(t, sink.Send(context.Background(), []*shared.AppError{e}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "error report", line["msg"])
	assert.Equal(t, e.ID(), line["id"])
	assert.Equal(t, "NETWORK", line["category"])
	assert.Equal(t, "local", sink.Name())
}
