// Package client implements the HTTP client for the Whereabouts API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

const defaultTimeout = 30 * time.Second

// Client talks to one Whereabouts server. It is safe for sequential use;
// commands construct one per invocation.
type Client struct {
	base     string
	hc       *http.Client
	token    string
	deviceID string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithToken sets the bearer token for authenticated calls.
func WithToken(tok string) Option {
	return func(c *Client) { c.token = tok }
}

// WithDeviceID attaches the device id to every request so the server can
// record when this device was last seen.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// New constructs a client for the given base URL, e.g. "https://wa.example.com".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after login.
func (c *Client) SetToken(tok string) { c.token = tok }

// do runs one API call with retries on connection-level failures. HTTP error
// responses are mapped to sentinels and never retried.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	backoff := retry.WithJitter(50*time.Millisecond,
		retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, in, out)
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusToErr(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusToErr maps HTTP error responses back to the shared sentinels, so
// callers branch with errors.Is the same way services do.
func statusToErr(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, errs.ErrValidation)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, errs.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, errs.ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, errs.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, errs.ErrConflict)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, errs.ErrRateLimited)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
}

// isRetryable reports whether the failure happened below HTTP: refused or
// reset connections, DNS hiccups, truncated responses. Context cancellation
// and mapped HTTP errors are final.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
