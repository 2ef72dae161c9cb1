// Package api is the HTTP client for the profession simulator backend.
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
)

// DefaultTimeout bounds one non-streaming request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Credentials supplies the bearer token and is told when the server rejects
// it.
type Credentials interface {
	Token() string
	Invalidate()
}

// Client talks to the backend. Non-streaming calls are bounded by the request
// timeout; streams are bounded only by their context.
type Client struct {
	baseURL    string
	http       *http.Client
	streamHTTP *http.Client
	creds      Credentials
	retry      RetryConfig
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for all requests. Its Timeout,
// if any, is ignored for streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		stream := *hc
		stream.Timeout = 0
		c.streamHTTP = &stream
	}
}

// WithTimeout sets the non-streaming request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithRetry sets the retry policy for idempotent reads.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client for baseURL. creds may be nil for anonymous use.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		streamHTTP: &http.Client{},
		creds:      creds,
		retry:      DefaultRetryConfig(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any, accept string) (*http.Request, bool, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, false, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, false, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)

	authed := false
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			authed = true
		}
	}
	return req, authed, nil
}

// checkResponse turns a non-2xx response into a *StatusError. A 401 on an
// authenticated request invalidates the credentials first.
func (c *Client) checkResponse(req *http.Request, resp *http.Response, authed bool) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serr := &StatusError{
		Method: req.Method,
		Path:   req.URL.Path,
		Code:   resp.StatusCode,
		Detail: parseDetail(body),
	}

	if resp.StatusCode == http.StatusUnauthorized && authed && c.creds != nil {
		c.log.Warn("server rejected credentials", zap.String("path", req.URL.Path))
		c.creds.Invalidate()
	}
	return serr
}

// do performs one JSON round trip, decoding the response into out when it is
// non-nil. GETs are retried on transient failures.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	call := func() error { return c.doOnce(ctx, method, path, in, out) }
	if method == http.MethodGet {
		return c.withRetry(ctx, method+" "+path, call)
	}
	return call()
}

func (c *Client) doOnce(ctx context.Context, method, path string, in, out any) error {
	req, authed, err := c.newRequest(ctx, method, path, in, "application/json")
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if err := c.checkResponse(req, resp, authed); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
