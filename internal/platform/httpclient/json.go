package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"

	"grievance/internal/shared"
)

// maxErrorBody caps how much of an error response body is inspected.
const maxErrorBody = 64 << 10

// Get sends a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.JSON(ctx, stdhttp.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.JSON(ctx, stdhttp.MethodPost, path, body, out)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.JSON(ctx, stdhttp.MethodPatch, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.JSON(ctx, stdhttp.MethodPut, path, body, out)
}

// Delete sends a DELETE request. out may be nil.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.JSON(ctx, stdhttp.MethodDelete, path, nil, out)
}

// JSON performs one JSON round trip.
//
// A non-2xx response becomes a *shared.RemoteError carrying the status and,
// when the body is a JSON object, its "code" and "message" (or "detail").
// A transport failure becomes a network RemoteError. Context cancellation
// is returned unchanged. A nil out discards the response body.
func (c *Client) JSON(ctx context.Context, method, path string, body, out any) error {
	u, err := c.resolve(path)
	if err != nil {
		return shared.NewInputError("path", err.Error())
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return shared.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == stdhttp.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", method, c.redactURL(u), err)
	}
	return nil
}

type errorBody struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

func decodeError(resp *stdhttp.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if len(raw) == 0 || json.Unmarshal(raw, &eb) != nil {
		return shared.NewRemoteError(resp.StatusCode, "", "", nil)
	}

	msg := eb.Message
	if msg == "" {
		msg = eb.Detail
	}
	if msg == "" {
		msg = eb.Error
	}

	var code string
	switch v := eb.Code.(type) {
	case string:
		code = v
	case float64:
		code = fmt.Sprintf("%g", v)
	}
	return shared.NewRemoteError(resp.StatusCode, code, msg, nil)
}
