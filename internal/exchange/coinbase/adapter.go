package coinbase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
)

var terminalStatuses = []string{"done", "rejected", "canceled", "cancelled"}

// Adapter implements the order-lifecycle contract for Coinbase Exchange spot.
type Adapter struct {
	client *Client
	logger *zap.Logger
}

// Config holds configuration for the Coinbase adapter.
type Config struct {
	// APIKey is the Coinbase API key.
	APIKey string
	// APISecret is the base64-encoded API secret.
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

// NewAdapter creates a Coinbase Exchange adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewClient(ClientConfig{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		Passphrase: cfg.Passphrase,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: client,
		logger: logger.With(zap.String("exchange", exchangeName)),
	}, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string { return exchangeName }

// MarketType returns spot; Coinbase Exchange has no derivatives surface here.
func (a *Adapter) MarketType() domain.MarketType { return domain.MarketSpot }

// Capabilities returns the Coinbase variant tags.
func (a *Adapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SpotOnly:         true,
		CancelByClientID: true,
		QueryByClientID:  true,
	}
}

// Ping probes exchange connectivity.
func (a *Adapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx) }

// nativeSymbol converts "BTC/USDT" to the "BTC-USDT" product id.
func nativeSymbol(pair string) string {
	return strings.ReplaceAll(strings.ToUpper(pair), "/", "-")
}

// PlaceMarketOrder submits a market order.
func (a *Adapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeMarket, req)
}

// PlaceLimitOrder submits a GTC limit order.
func (a *Adapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeLimit, req)
}

func (a *Adapter) submit(ctx context.Context, orderType domain.OrderType, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(exchangeName, orderType); err != nil {
		return domain.OrderResult{}, err
	}

	body := map[string]any{
		"product_id": nativeSymbol(req.Symbol),
		"side":       string(req.Side),
		"type":       string(orderType),
		"size":       req.Quantity.String(),
	}
	if orderType == domain.OrderTypeLimit {
		body["price"] = req.Price.String()
		body["time_in_force"] = "GTC"
		if req.PostOnly {
			body["post_only"] = true
		}
	}
	if req.ClientOrderID != "" {
		body["client_oid"] = req.ClientOrderID
	}

	a.logger.Info("submitting order",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedRequest(ctx, http.MethodPost, "/orders", nil, body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	var resp struct {
		ID        string `json:"id"`
		OrderID   string `json:"order_id"`
		ClientOID string `json:"client_oid"`
	}
	_ = json.Unmarshal(raw, &resp)
	oid := resp.ID
	if oid == "" {
		oid = resp.OrderID
	}
	if oid == "" {
		oid = resp.ClientOID
	}

	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  oid,
		Raw:      raw,
	}, nil
}

// orderPath addresses an order by exchange id or by client id.
func orderPath(ref domain.OrderRef) (string, error) {
	if ref.OrderID != "" {
		return "/orders/" + ref.OrderID, nil
	}
	if ref.ClientOrderID != "" {
		return "/orders/client:" + ref.ClientOrderID, nil
	}
	return "", domain.NewValidationError(exchangeName, "order id or client order id required")
}

// CancelOrder cancels by exchange id or client id.
func (a *Adapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	path, err := orderPath(ref)
	if err != nil {
		return nil, err
	}
	return a.client.SignedRequest(ctx, http.MethodDelete, path, nil, nil)
}

// GetOrder fetches the native order record.
func (a *Adapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	path, err := orderPath(ref)
	if err != nil {
		return nil, err
	}
	return a.client.SignedRequest(ctx, http.MethodGet, path, nil, nil)
}

// WaitForFill polls the order until it fills or terminates. Average price is
// derived as executed_value / filled_size.
func (a *Adapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = terminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		raw, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return orderSnapshot(raw), nil
	}, opts)
}

func orderSnapshot(raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var record struct {
		Status        string `json:"status"`
		FilledSize    string `json:"filled_size"`
		ExecutedValue string `json:"executed_value"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return snap
	}
	snap.Status = record.Status

	filled, errF := decimal.NewFromString(record.FilledSize)
	executed, errE := decimal.NewFromString(record.ExecutedValue)
	if errF != nil || errE != nil {
		return snap
	}
	snap.Filled = filled
	snap.Confidence = fill.ConfidenceExact
	if filled.IsPositive() && executed.IsPositive() {
		snap.AvgPrice = executed.Div(filled)
	}
	return snap
}
