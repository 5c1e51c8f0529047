package httpclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/platform/httpclient"
	"grievance/internal/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type complaint struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestClient_JSONVerbs(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotCT string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(complaint{ID: "42", Title: "Broken lamp"})
	}))
	defer srv.Close()

	c := httpclient.New(
		httpclient.WithLogger(quietLogger()),
		httpclient.WithBaseURL(srv.URL+"/api/"),
		httpclient.WithToken(func(context.Context) string { return "tok" }),
	)
	ctx := context.Background()

	var out complaint
	require.NoError(t, c.Get(ctx, "complaints/42?x=1", &out))
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/api/complaints/42?x=1", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "42", out.ID)

	require.NoError(t, c.Post(ctx, "/complaints/", map[string]string{"title": "t"}, &out))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/complaints/", gotPath)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "t", gotBody["title"])

	require.NoError(t, c.Patch(ctx, "complaints/42", map[string]string{"status": "closed"}, nil))
	assert.Equal(t, http.MethodPatch, gotMethod)

	require.NoError(t, c.Put(ctx, "complaints/42", map[string]string{}, nil))
	assert.Equal(t, http.MethodPut, gotMethod)

	require.NoError(t, c.Delete(ctx, "complaints/42", nil))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestClient_JSON_RemoteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantMsg    string
		retryable  bool
		wantCatgry shared.Category
	}{
		{
			name:       "json body with code and message",
			status:     http.StatusUnprocessableEntity,
			body:       `{"code":"invalid_title","message":"title is required"}`,
			wantCode:   "invalid_title",
			wantMsg:    "title is required",
			wantCatgry: shared.CategoryValidation,
		},
		{
			name:       "detail field",
			status:     http.StatusForbidden,
			body:       `{"detail":"not allowed"}`,
			wantMsg:    "not allowed",
			wantCatgry: shared.CategoryAuthorization,
		},
		{
			name:       "plain text body falls back to status text",
			status:     http.StatusServiceUnavailable,
			body:       "upstream down",
			wantMsg:    "Service Unavailable",
			retryable:  true,
			wantCatgry: shared.CategorySystem,
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			wantMsg:    "Unauthorized",
			wantCatgry: shared.CategoryAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := httpclient.New(httpclient.WithLogger(quietLogger()), httpclient.WithBaseURL(srv.URL))
			err := c.Get(context.Background(), "/x", nil)
			require.Error(t, err)

			var re *shared.RemoteError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.Status())
			assert.Equal(t, tt.wantCode, re.Code())
			assert.Equal(t, tt.wantMsg, re.Message())
			assert.Equal(t, tt.retryable, shared.IsRetryable(err))
			assert.Equal(t, tt.wantCatgry, shared.Categorize(err))
		})
	}
}

func TestClient_JSON_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := httpclient.New(httpclient.WithLogger(quietLogger()), httpclient.WithBaseURL(addr))
	err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)

	var re *shared.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, shared.CodeNetworkError, re.Code())
	assert.True(t, shared.IsRetryable(err))
	assert.Equal(t, shared.CategoryNetwork, shared.Categorize(err))
}

func TestClient_JSON_ContextCanceledPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithLogger(quietLogger()), httpclient.WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Get(ctx, "/slow", nil)
	require.ErrorIs(t, err, context.Canceled)
	var re *shared.RemoteError
	assert.False(t, errors.As(err, &re))
}

func TestClient_JSON_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.WithLogger(quietLogger()), httpclient.WithBaseURL(srv.URL))
	var out complaint
	require.NoError(t, c.Delete(context.Background(), "/complaints/1", &out))
	assert.Empty(t, out.ID)
}

func TestClient_DefaultHeaders(t *testing.T) {
	var accept, custom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		custom = r.Header.Get("X-Client")
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c := httpclient.New(
		httpclient.WithLogger(quietLogger()),
		httpclient.WithHeaders(map[string]string{"X-Client": "portal"}),
	)
	require.NoError(t, c.Get(context.Background(), srv.URL, nil))
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "portal", custom)
}

func TestClient_URLRedactor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	var logs bytes.Buffer
	c := httpclient.New(
		httpclient.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		httpclient.WithURLRedactor(httpclient.StripQuery),
	)
	require.NoError(t, c.Get(context.Background(), srv.URL+"/api/profiles/?token=secret", nil))

	assert.Contains(t, logs.String(), "/api/profiles/")
	assert.NotContains(t, logs.String(), "secret")
}

func TestStripQuery(t *testing.T) {
	u, err := url.Parse("https://user:pw@api.example/api/complaints/?search=lamp")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example/api/complaints/", httpclient.StripQuery(u))
}
