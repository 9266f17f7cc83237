package coinbase

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
	// BaseURL is the production Coinbase Exchange API endpoint.
	BaseURL = "https://api.exchange.coinbase.com"

	exchangeName = "coinbaseexchange"
)

// Client is an HTTP client for the Coinbase Exchange API.
type Client struct {
	signer    *Signer
	transport rest.Transport
	logger    *zap.Logger
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Coinbase API key.
	APIKey string
	// APISecret is the base64-encoded Coinbase API secret.
	APISecret string
	// Passphrase is the API key passphrase.
	Passphrase string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new Coinbase Exchange client. It fails with a
// ConfigError when credentials are missing or malformed.
func NewClient(cfg ClientConfig) (*Client, error) {
	signer, err := NewSigner(cfg.APIKey, cfg.APISecret, cfg.Passphrase)
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

// SignedRequest sends an authenticated request. The query string, encoded in
// sorted key order, is part of the signed request path so that signature and
// request line never diverge.
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
	signedPath := path
	if encoded != "" {
		signedPath = path + "?" + encoded
	}

	resp, err := c.transport.Do(ctx, rest.Request{
		Method:  method,
		Path:    path,
		Query:   encoded,
		Headers: c.signer.Headers(method, signedPath, bodyStr),
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

// Ping checks connectivity through the public time endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Public(ctx, http.MethodGet, "/time", nil)
	return err == nil
}

// Accounts reads trading accounts, a cheap probe validating the credentials.
func (c *Client) Accounts(ctx context.Context) (json.RawMessage, error) {
	return c.SignedRequest(ctx, http.MethodGet, "/accounts", nil, nil)
}
