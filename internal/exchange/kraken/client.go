package kraken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/rest"
)

const (
	// BaseURL is the production Kraken spot API endpoint.
	BaseURL = "https://api.kraken.com"

	exchangeName = "kraken"
)

// Client is an HTTP client for the Kraken spot REST API. Private endpoints
// are form-encoded POSTs with the nonce inside the body.
type Client struct {
	signer    *Signer
	transport rest.Transport
	logger    *zap.Logger
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Kraken API key.
	APIKey string
	// APISecret is the base64-encoded Kraken API secret.
	APISecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewClient creates a new Kraken spot API client.
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

// krakenEnvelope is the common response wrapper. A non-empty error array is
// a failure even on HTTP 200.
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// SignedPost sends a private form-encoded POST and returns the result
// payload with the envelope stripped.
func (c *Client) SignedPost(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	if form == nil {
		form = url.Values{}
	}
	nonce := c.signer.Nonce()
	form.Set("nonce", nonce)
	postdata := form.Encode()

	resp, err := c.transport.Do(ctx, rest.Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: c.signer.Headers(path, nonce, postdata),
		Body:    []byte(postdata),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}

	var env krakenEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}
	if len(env.Error) > 0 {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}
	return env.Result, nil
}

// Ping checks connectivity via the public time endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.transport.Do(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   "/0/public/Time",
	})
	if err != nil || !resp.OK() {
		return false
	}
	var env krakenEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return false
	}
	return len(env.Error) == 0
}

// Balance calls the private balance endpoint, mainly as a credential probe.
func (c *Client) Balance(ctx context.Context) (json.RawMessage, error) {
	return c.SignedPost(ctx, "/0/private/Balance", nil)
}
