package gate

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

var spotTerminalStatuses = []string{"closed", "cancelled", "canceled"}

// Adapter implements the order-lifecycle contract for Gate.io spot.
type Adapter struct {
	client *Client
	logger *zap.Logger
}

// Config holds configuration for the Gate adapters.
type Config struct {
	// APIKey is the Gate.io API key.
	APIKey string
	// APISecret is the Gate.io API secret.
	APISecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewAdapter creates a Gate spot adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewClient(ClientConfig{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: client,
		logger: logger.With(zap.String("exchange", exchangeName), zap.String("market", "spot")),
	}, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *Adapter) MarketType() domain.MarketType { return domain.MarketSpot }

// Capabilities returns the Gate spot variant tags.
func (a *Adapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{}
}

// Ping probes exchange connectivity.
func (a *Adapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx, "spot") }

// nativeSymbol converts "BTC/USDT" to the "BTC_USDT" currency pair.
func nativeSymbol(pair string) string {
	return strings.ReplaceAll(strings.ToUpper(pair), "/", "_")
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
		"currency_pair": nativeSymbol(req.Symbol),
		"side":          string(req.Side),
		"type":          string(orderType),
		"amount":        req.Quantity.String(),
	}
	if orderType == domain.OrderTypeLimit {
		body["price"] = req.Price.String()
		body["time_in_force"] = "gtc"
	}
	if req.ClientOrderID != "" {
		body["text"] = req.ClientOrderID
	}

	a.logger.Info("submitting order",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedRequest(ctx, http.MethodPost, "/api/v4/spot/orders", nil, body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderIDField(raw),
		Raw:      raw,
	}, nil
}

// orderIDField reads the "id" field, which Gate returns either as a string
// or a number depending on the endpoint.
func orderIDField(raw json.RawMessage) string {
	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	return resp.ID.String()
}

// CancelOrder cancels by exchange order id.
func (a *Adapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "cancel requires an order id")
	}
	return a.client.SignedRequest(ctx, http.MethodDelete, "/api/v4/spot/orders/"+ref.OrderID, nil, nil)
}

// GetOrder fetches the native order record.
func (a *Adapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "get order requires an order id")
	}
	return a.client.SignedRequest(ctx, http.MethodGet, "/api/v4/spot/orders/"+ref.OrderID, nil, nil)
}

// WaitForFill polls the order until it fills or terminates. Average price is
// derived as filled_total / filled_amount.
func (a *Adapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = spotTerminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		raw, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return spotOrderSnapshot(raw), nil
	}, opts)
}

func spotOrderSnapshot(raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var record struct {
		Status       string `json:"status"`
		FilledAmount string `json:"filled_amount"`
		FilledTotal  string `json:"filled_total"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return snap
	}
	snap.Status = record.Status

	filled, errF := decimal.NewFromString(record.FilledAmount)
	total, errT := decimal.NewFromString(record.FilledTotal)
	if errF != nil || errT != nil {
		return snap
	}
	snap.Filled = filled
	snap.Confidence = fill.ConfidenceExact
	if filled.IsPositive() && total.IsPositive() {
		snap.AvgPrice = total.Div(filled)
	}
	return snap
}
