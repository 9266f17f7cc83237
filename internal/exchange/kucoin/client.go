package kucoin

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
	// BaseURL is the production KuCoin spot API endpoint.
	BaseURL = "https://api.kucoin.com"
	// FuturesBaseURL is the production KuCoin futures API endpoint.
	FuturesBaseURL = "https://api-futures.kucoin.com"

	exchangeName = "kucoin"

	// successCode is the code KuCoin embeds in every response envelope.
	successCode = "200000"
)

// Client is an HTTP client for the KuCoin REST APIs. Spot and futures share
// the KC-API signing scheme and the response envelope, so one client serves
// both against different base URLs.
type Client struct {
	signer    *Signer
	transport rest.Transport
	logger    *zap.Logger
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the KuCoin API key.
	APIKey string
	// APISecret is the KuCoin API secret.
	APISecret string
	// Passphrase is the KuCoin API passphrase.
	Passphrase string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new KuCoin API client.
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

// envelope is the common KuCoin response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// unwrap strips the envelope, turning a non-success code into a RemoteError.
func unwrap(status int, body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.NewRemoteError(exchangeName, status, body)
	}
	if env.Code != "" && env.Code != successCode {
		return nil, domain.NewRemoteError(exchangeName, status, body)
	}
	return env.Data, nil
}

// SignedRequest sends an authenticated request and returns the data payload.
// The query string participates in the signature appended to the path.
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

	method = strings.ToUpper(method)
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
	return unwrap(resp.Status, resp.Body)
}

// Public sends an unauthenticated request and returns the data payload.
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
	return unwrap(resp.Status, resp.Body)
}

// Ping checks connectivity via the public timestamp endpoint, present on
// both the spot and futures hosts.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Public(ctx, http.MethodGet, "/api/v1/timestamp", nil)
	return err == nil
}
