// Package httpx provides the shared HTTP request wrapper used by every API
// client in the pipeline: JSON in/out, a per-call timeout and a bounded
// retry loop for transient failures.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultAttempts = 3

// StatusError is returned for non-2xx responses that are not retried away.
// Body carries the (trimmed) response body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client wraps http.Client with retry/backoff semantics. Network errors,
// 429 and 5xx responses are retried with exponential backoff; other status
// codes surface immediately as *StatusError.
type Client struct {
	hc       *http.Client
	attempts int
}

// New creates a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		attempts: defaultAttempts,
	}
}

// DoJSON issues a request with an optional JSON body and decodes the JSON
// response into out (unless out is nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, header http.Header, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}

	h := cloneHeader(header)
	if payload != nil {
		h.Set("Content-Type", "application/json")
	}

	data, err := c.Do(ctx, method, url, h, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do issues a request with a raw body and returns the raw response body.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(300*(1<<(attempt-1))) * time.Millisecond
			log.Debug().Str("url", url).Dur("backoff", wait).Msg("Retrying HTTP request")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, r)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			se := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = se
				continue
			}
			return nil, se
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
