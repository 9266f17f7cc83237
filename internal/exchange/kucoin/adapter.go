package kucoin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
)

// Spot order records expose no status field, only an isActive flag. The
// snapshot maps an inactive order to "done" so the poll loop can treat it
// as terminal.
var spotTerminalStatuses = []string{"done"}

// Adapter implements the order-lifecycle contract for KuCoin spot.
type Adapter struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// Config holds configuration for the KuCoin adapters.
type Config struct {
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

// NewAdapter creates a KuCoin spot adapter.
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
		logger: logger.With(zap.String("exchange", exchangeName), zap.String("market", "spot")),
		now:    time.Now,
	}, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *Adapter) MarketType() domain.MarketType { return domain.MarketSpot }

// Capabilities returns the KuCoin spot variant tags.
func (a *Adapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		CancelByClientID: true,
		QueryByClientID:  true,
	}
}

// Ping probes exchange connectivity.
func (a *Adapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx) }

// nativeSymbol converts "BTC/USDT" to the "BTC-USDT" symbol.
func nativeSymbol(pair string) string {
	return strings.ReplaceAll(strings.ToUpper(pair), "/", "-")
}

// clientOid returns the client order id, defaulting to a millisecond
// timestamp. KuCoin requires clientOid on every order.
func (a *Adapter) clientOid(requested string) string {
	if requested != "" {
		return requested
	}
	return strconv.FormatInt(a.now().UnixMilli(), 10)
}

// PlaceMarketOrder submits a market order. With QuoteSize set on a buy, the
// quantity is sent as funds in quote currency instead of base size.
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

	symbol := nativeSymbol(req.Symbol)
	body := map[string]any{
		"clientOid": a.clientOid(req.ClientOrderID),
		"side":      string(req.Side),
		"symbol":    symbol,
		"type":      string(orderType),
	}
	switch {
	case orderType == domain.OrderTypeLimit:
		body["price"] = req.Price.String()
		body["size"] = req.Quantity.String()
		body["timeInForce"] = "GTC"
	case req.Side == domain.SideBuy && req.QuoteSize:
		body["funds"] = req.Quantity.String()
	default:
		body["size"] = req.Quantity.String()
	}

	a.logger.Info("submitting order",
		zap.String("symbol", symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("type", string(orderType)))

	data, err := a.client.SignedRequest(ctx, http.MethodPost, "/api/v1/orders", nil, body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderIDFromData(data),
		Raw:      data,
	}, nil
}

// orderIDFromData reads the order id from a submit payload, which is either
// an object holding orderId or a bare string.
func orderIDFromData(data json.RawMessage) string {
	var obj struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.OrderID != "" {
		return obj.OrderID
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return ""
}

// CancelOrder cancels by order id, or by client order id when no exchange
// id is known.
func (a *Adapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	switch {
	case ref.OrderID != "":
		return a.client.SignedRequest(ctx, http.MethodDelete, "/api/v1/orders/"+ref.OrderID, nil, nil)
	case ref.ClientOrderID != "":
		return a.client.SignedRequest(ctx, http.MethodDelete, "/api/v1/order/client-order/"+ref.ClientOrderID, nil, nil)
	default:
		return nil, domain.NewValidationError(exchangeName, "an order id or client order id is required")
	}
}

// GetOrder fetches the native order record by either id.
func (a *Adapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	switch {
	case ref.OrderID != "":
		return a.client.SignedRequest(ctx, http.MethodGet, "/api/v1/orders/"+ref.OrderID, nil, nil)
	case ref.ClientOrderID != "":
		return a.client.SignedRequest(ctx, http.MethodGet, "/api/v1/order/client-order/"+ref.ClientOrderID, nil, nil)
	default:
		return nil, domain.NewValidationError(exchangeName, "an order id or client order id is required")
	}
}

// Fills lists executions for an order.
func (a *Adapter) Fills(ctx context.Context, orderID string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("orderId", orderID)
	return a.client.SignedRequest(ctx, http.MethodGet, "/api/v1/fills", query, nil)
}

// WaitForFill polls the order until it fills or goes inactive.
func (a *Adapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = spotTerminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		data, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return spotOrderSnapshot(data), nil
	}, opts)
}

// spotOrderSnapshot extracts fill progress from an order record. dealFunds
// is in quote currency, so the average price is dealFunds over dealSize.
func spotOrderSnapshot(data json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: data}

	var record struct {
		IsActive  bool   `json:"isActive"`
		DealSize  string `json:"dealSize"`
		DealFunds string `json:"dealFunds"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return snap
	}
	if record.IsActive {
		snap.Status = "active"
	} else {
		snap.Status = "done"
	}

	filled, err := decimal.NewFromString(record.DealSize)
	if err != nil {
		return snap
	}
	snap.Filled = filled
	snap.Confidence = fill.ConfidenceExact

	if funds, err := decimal.NewFromString(record.DealFunds); err == nil && filled.IsPositive() {
		snap.AvgPrice = funds.Div(filled)
	}
	return snap
}
