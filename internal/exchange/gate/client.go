package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/rest"
)

const (
	// BaseURL is the production Gate.io API endpoint.
	BaseURL = "https://api.gateio.ws"

	exchangeName = "gate"
)

// Client is an HTTP client for the Gate.io apiv4 API.
type Client struct {
	signer    *Signer
	transport rest.Transport
	logger    *zap.Logger
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Gate.io API key.
	APIKey string
	// APISecret is the Gate.io API secret for signing requests.
	APISecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new Gate.io API client. It fails with a ConfigError
// when credentials are missing.
func NewClient(cfg ClientConfig) (*Client, error) {
	signer, err := NewSigner(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return &Client{
		signer: signer,
		transport: rest.NewClient(rest.Config{
			BaseURL: baseURL,
			Timeout: cfg.Timeout,
			Logger:  logger,
		}),
		logger: logger,
	}, nil
}

// SignedRequest sends an authenticated request. The query string enters the
// signing payload exactly as sent, encoded in sorted key order.
func (c *Client) SignedRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var bodyStr string
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyStr = string(b)
		bodyBytes = b
	}

	encoded := query.Encode()
	resp, err := c.transport.Do(ctx, rest.Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   encoded,
		Headers: c.signer.Headers(strings.ToUpper(method), path, encoded, bodyStr),
		Body:    bodyBytes,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}
	return resp.Body, nil
}

// Public sends an unauthenticated request.
func (c *Client) Public(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	resp, err := c.transport.Do(ctx, rest.Request{
		Method: method,
		Path:   path,
		Query:  query.Encode(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}
	return resp.Body, nil
}

// Ping checks connectivity through the public time endpoint of the given
// API section ("spot" or "futures/usdt").
func (c *Client) Ping(ctx context.Context, section string) bool {
	_, err := c.Public(ctx, http.MethodGet, "/api/v4/"+section+"/time", nil)
	return err == nil
}
