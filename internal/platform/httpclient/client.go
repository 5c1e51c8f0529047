package httpclient

import (
	"context"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strings"
	"time"
)

// TokenFunc returns the bearer token for an outgoing request. An empty token
// sends no Authorization header.
type TokenFunc func(ctx context.Context) string

// Client wraps http.Client with a base URL, default headers, a bearer token
// and request logging. It never retries: retry decisions belong to the
// callers, which classify the failure first.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	baseURL     *url.URL
	headers     map[string]string
	token       TokenFunc
	urlRedactor func(*url.URL) string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		if t > 0 {
			c.hc.Timeout = t
		}
	}
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBaseURL resolves relative request paths against raw.
// Invalid values are ignored.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		u, err := url.Parse(strings.TrimRight(raw, "/") + "/")
		if err == nil && u.Scheme != "" {
			c.baseURL = u
		}
	}
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithToken sets the bearer token source.
func WithToken(f TokenFunc) Option {
	return func(c *Client) { c.token = f }
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:     slog.Default(),
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// resolve joins path with the base URL. Absolute URLs are used as is.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() || c.baseURL == nil {
		return ref, nil
	}
	return c.baseURL.ResolveReference(&url.URL{
		Path:     strings.TrimLeft(ref.Path, "/"),
		RawQuery: ref.RawQuery,
	}), nil
}

// StripQuery renders u without user info and query string.
func StripQuery(u *url.URL) string {
	cp := *u
	cp.User = nil
	cp.RawQuery = ""
	cp.ForceQuery = false
	return cp.String()
}

func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// Do sends req with default headers and logging. Responses are returned
// regardless of status; only transport failures produce an error.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	r := req.Clone(ctx)
	for k, v := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	if c.token != nil && r.Header.Get("Authorization") == "" {
		if tok := c.token(ctx); tok != "" {
			r.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	u := c.redactURL(r.URL)
	st := time.Now()
	resp, err := c.hc.Do(r)
	dur := time.Since(st)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Duration("dur", dur), slog.Any("error", err))
		return nil, err
	}
	c.log.Debug("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur))
	return resp, nil
}
