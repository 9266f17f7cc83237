package bitfinex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/rest"
)

const (
	// BaseURL is the production Bitfinex API endpoint.
	BaseURL = "https://api.bitfinex.com"

	exchangeName = "bitfinex"
)

// Client is an HTTP client for the Bitfinex v2 API.
type Client struct {
	signer    *Signer
	transport rest.Transport
	logger    *zap.Logger
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Bitfinex API key.
	APIKey string
	// APISecret is the Bitfinex API secret for signing requests.
	APISecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new Bitfinex API client. It fails with a ConfigError
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

// SignedPost sends an authenticated POST with a JSON body. A nil body signs
// and sends an empty payload, which several read endpoints expect.
func (c *Client) SignedPost(ctx context.Context, path string, body any) (json.RawMessage, error) {
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

	resp, err := c.transport.Do(ctx, rest.Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: c.signer.Headers(path, bodyStr),
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

// Ping checks platform status through the public status endpoint.
// Bitfinex reports [1] when operative.
func (c *Client) Ping(ctx context.Context) bool {
	raw, err := c.Public(ctx, http.MethodGet, "/v2/platform/status", nil)
	if err != nil {
		return false
	}
	var status []int
	if err := json.Unmarshal(raw, &status); err != nil {
		return false
	}
	return len(status) > 0 && status[0] == 1
}

// Wallets reads account wallets, a cheap probe validating the credentials.
func (c *Client) Wallets(ctx context.Context) (json.RawMessage, error) {
	return c.SignedPost(ctx, "/v2/auth/r/wallets", map[string]any{})
}
