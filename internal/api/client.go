// Package api is a typed client for the blog REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/quill/internal/otel"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client talks to the blog backend. Safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	events  otel.Scope
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the default http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit caps outbound requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithEvents emits an api.request event per call.
func WithEvents(l *otel.Logger) Option {
	return func(c *Client) { c.events = l.For("api") }
}

// New creates a client rooted at baseURL, e.g. "http://localhost:5000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		tokens: StaticToken(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do performs one request. body is JSON-encoded when non-nil; out receives
// the decoded 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.emit(method, path, reqID, 0, time.Since(start), err)
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s cancelled: %w", method, path, ctx.Err())
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.emit(method, path, reqID, resp.StatusCode, time.Since(start), err)
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Body: string(data)}
		c.emit(method, path, reqID, resp.StatusCode, time.Since(start), se)
		return se
	}
	c.emit(method, path, reqID, resp.StatusCode, time.Since(start), nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return fmt.Errorf("%s %s: empty body: %w", method, path, ErrMalformed)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrMalformed)
	}
	return nil
}

func (c *Client) emit(method, path, reqID string, status int, dur time.Duration, err error) {
	ev := otel.Event{
		Level:   otel.LevelDebug,
		Kind:    otel.KindAPIRequest,
		QueryID: reqID,
		Status:  status,
		Path:    method + " " + path,
		Dur:     dur,
	}
	if err != nil {
		ev.Level = otel.LevelWarn
		ev.Kind = otel.KindAPIError
		ev.Err = err.Error()
	}
	c.events.Emit(ev)
}
