// Package rest provides the HTTP transport shared by all exchange clients.
// It performs a single call given method, path, query, headers and body, and
// returns the status code plus raw body; interpreting exchange-specific error
// envelopes is left to the callers.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultTimeout bounds a single HTTP round trip.
const defaultTimeout = 15 * time.Second

// Request describes one HTTP call against an exchange.
type Request struct {
	// Method is the HTTP method (GET, POST, DELETE).
	Method string
	// Path is the endpoint path, starting with "/".
	Path string
	// Query is the already-encoded query string, without the leading "?".
	Query string
	// Headers are added verbatim to the request.
	Headers map[string]string
	// Body is the raw request body, nil for body-less requests.
	Body []byte
}

// Response is the outcome of a completed HTTP call. A status >= 400 is not
// an error at this layer; adapters turn it into a RemoteError with exchange
// context attached.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// Body is the raw response body.
	Body []byte
}

// OK reports whether the response carries a 2xx status.
func (r Response) OK() bool {
	return r.Status/100 == 2
}

// Transport performs HTTP calls. Implemented by Client and by test doubles.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Client is the default Transport backed by net/http.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for creating a new Client.
type Config struct {
	// BaseURL is the scheme+host prefix for all requests.
	BaseURL string
	// Timeout bounds a single round trip. Zero means the default.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new transport for the given base URL.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one HTTP call. The context controls cancellation and deadline.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	reqURL := c.baseURL + req.Path
	if req.Query != "" {
		reqURL += "?" + req.Query
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug("sending request",
		zap.String("method", req.Method),
		zap.String("path", req.Path))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	return Response{Status: resp.StatusCode, Body: respBody}, nil
}
