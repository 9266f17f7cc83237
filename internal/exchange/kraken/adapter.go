package kraken

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
)

var spotTerminalStatuses = []string{"closed", "canceled", "cancelled", "expired"}

// Adapter implements the order-lifecycle contract for Kraken spot.
type Adapter struct {
	client *Client
	logger *zap.Logger
}

// Config holds configuration for the Kraken adapters.
type Config struct {
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

// NewAdapter creates a Kraken spot adapter.
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

// Capabilities returns the Kraken spot variant tags.
func (a *Adapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{SpotOnly: true}
}

// Ping probes exchange connectivity.
func (a *Adapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx) }

// nativeSymbol converts "BTC/USDT" to the "XBTUSDT" asset pair. Kraken
// calls bitcoin XBT.
func nativeSymbol(pair string) string {
	s := strings.ReplaceAll(strings.ToUpper(pair), "/", "")
	s = strings.ReplaceAll(s, "BTC", "XBT")
	return s
}

// userref keeps at most nine digits of the client order id, since Kraken's
// userref is a 32-bit integer.
func userref(clientOrderID string) string {
	var digits strings.Builder
	for _, r := range clientOrderID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 9 {
				break
			}
		}
	}
	return digits.String()
}

// PlaceMarketOrder submits a market order.
func (a *Adapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeMarket, req)
}

// PlaceLimitOrder submits a limit order.
func (a *Adapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeLimit, req)
}

func (a *Adapter) submit(ctx context.Context, orderType domain.OrderType, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(exchangeName, orderType); err != nil {
		return domain.OrderResult{}, err
	}

	pair := nativeSymbol(req.Symbol)
	form := url.Values{}
	form.Set("pair", pair)
	form.Set("type", string(req.Side))
	form.Set("ordertype", string(orderType))
	form.Set("volume", req.Quantity.String())
	if orderType == domain.OrderTypeLimit {
		form.Set("price", req.Price.String())
	}
	if ref := userref(req.ClientOrderID); ref != "" {
		form.Set("userref", ref)
	}

	a.logger.Info("submitting order",
		zap.String("pair", pair),
		zap.String("side", string(req.Side)),
		zap.String("volume", req.Quantity.String()),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedPost(ctx, "/0/private/AddOrder", form)
	if err != nil {
		return domain.OrderResult{}, err
	}

	var result struct {
		TxID []string `json:"txid"`
	}
	orderID := ""
	if err := json.Unmarshal(raw, &result); err == nil && len(result.TxID) > 0 {
		orderID = result.TxID[0]
	}
	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderID,
		Raw:      raw,
	}, nil
}

// CancelOrder cancels by transaction id.
func (a *Adapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "cancel requires an order id")
	}
	form := url.Values{}
	form.Set("txid", ref.OrderID)
	return a.client.SignedPost(ctx, "/0/private/CancelOrder", form)
}

// GetOrder fetches a single order record. QueryOrders returns a map keyed
// by txid; the record for the requested id is returned unwrapped.
func (a *Adapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "get order requires an order id")
	}
	form := url.Values{}
	form.Set("txid", ref.OrderID)
	raw, err := a.client.SignedPost(ctx, "/0/private/QueryOrders", form)
	if err != nil {
		return nil, err
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return raw, nil
	}
	if record, ok := byID[ref.OrderID]; ok {
		return record, nil
	}
	return raw, nil
}

// WaitForFill polls the order until it fills or terminates.
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

// spotOrderSnapshot extracts fill progress from a QueryOrders record. Kraken
// reports cost in quote currency, so the average price is cost over volume.
func spotOrderSnapshot(raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var record struct {
		Status  string `json:"status"`
		VolExec string `json:"vol_exec"`
		Cost    string `json:"cost"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return snap
	}
	snap.Status = record.Status

	filled, err := decimal.NewFromString(record.VolExec)
	if err != nil {
		return snap
	}
	snap.Filled = filled
	snap.Confidence = fill.ConfidenceExact

	if cost, err := decimal.NewFromString(record.Cost); err == nil && filled.IsPositive() {
		snap.AvgPrice = cost.Div(filled)
	}
	return snap
}
