// Package api is the single choke point for calls to the mess-management
// backend. It attaches the bearer token to every request and performs the
// one-shot refresh-and-retry protocol on authorization failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusmess/messmate/internal/errs"
	"github.com/campusmess/messmate/internal/tokenstore"
)

// DefaultBaseURL matches the backend's local development address.
const DefaultBaseURL = "http://localhost:8000/api"

// Client wraps outbound HTTP calls. One shared instance lives for the whole
// process; per-request state (the retry attempt counter) is local to each
// call, so concurrent requests never leak retries into each other.
type Client struct {
	baseURL string
	httpc   *http.Client
	store   *tokenstore.Store
	log     *zap.Logger

	// expired is invoked after an irrecoverable refresh failure, once the
	// token store has been cleared. It forces navigation back to the
	// unauthenticated entry point.
	expired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithSessionExpiredHook registers the callback run when a refresh attempt
// fails and the session is forcibly ended.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.expired = fn }
}

// New constructs the shared client.
func New(baseURL string, store *tokenstore.Store, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		store:   store,
		log:     log,
		expired: func() {},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, 0)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, 0)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out, 0)
}

// Patch issues an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out, 0)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, 0)
}

// do performs one attempt of an authenticated request. attempt counts prior
// tries of the same logical call: refresh-and-retry happens only at
// attempt 0, so a request is retried at most once no matter how many 401s
// the server keeps returning.
func (c *Client) do(ctx context.Context, method, path string, body, out any, attempt int) error {
	token := ""
	if pair, ok := c.store.Get(); ok {
		token = pair.Access
	}

	resp, raw, err := c.roundTrip(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
		if err := c.refresh(ctx); err != nil {
			_ = c.store.Clear()
			c.expired()
			return fmt.Errorf("%w: %v", errs.ErrSessionExpired, err)
		}
		return c.do(ctx, method, path, body, out, attempt+1)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, raw)
	}
	return decodeInto(raw, out)
}

// roundTrip builds, sends, and fully reads one HTTP exchange.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (*http.Response, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	c.log.Debug("api",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)
	return resp, raw, nil
}

// refresh exchanges the stored refresh token for a new access token and
// persists it. The refresh token itself is left unchanged. Called at most
// once per original request.
func (c *Client) refresh(ctx context.Context) error {
	pair, ok := c.store.Get()
	if !ok {
		return errs.ErrUnauthorized
	}

	var got struct {
		Access string `json:"access"`
	}
	if err := c.public(ctx, http.MethodPost, "/auth/token/refresh/",
		map[string]string{"refresh": pair.Refresh}, &got); err != nil {
		return err
	}
	if got.Access == "" {
		return fmt.Errorf("refresh response missing access token")
	}

	c.log.Info("access token refreshed")
	return c.store.Set(tokenstore.TokenPair{Access: got.Access, Refresh: pair.Refresh})
}

// public performs an unauthenticated request: no bearer header, no
// refresh-retry. Used for login, registration, and the refresh call itself.
func (c *Client) public(ctx context.Context, method, path string, body, out any) error {
	resp, raw, err := c.roundTrip(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, raw)
	}
	return decodeInto(raw, out)
}

// decodeInto unmarshals a 2xx body. A body that does not match the expected
// shape is a malformed-response error, surfaced to the caller.
func decodeInto(raw []byte, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
