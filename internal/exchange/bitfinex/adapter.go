package bitfinex

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
)

// terminalStatuses are matched as substrings: Bitfinex reports statuses like
// "EXECUTED @ 36000.0(0.01)".
var terminalStatuses = []string{"executed", "canceled"}

// Adapter implements the order-lifecycle contract for Bitfinex. The spot
// variant submits EXCHANGE MARKET / EXCHANGE LIMIT orders against the
// exchange wallet; the swap variant submits MARKET / LIMIT orders on
// perpetual instruments (tBTCF0:USTF0 style).
type Adapter struct {
	client *Client
	market domain.MarketType
	logger *zap.Logger
}

// Config holds configuration for the Bitfinex adapter.
type Config struct {
	// APIKey is the Bitfinex API key.
	APIKey string
	// APISecret is the Bitfinex API secret.
	APISecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// MarketType selects spot or swap behavior.
	MarketType domain.MarketType
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewAdapter creates a Bitfinex adapter.
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
	market := cfg.MarketType
	if market == "" {
		market = domain.MarketSpot
	}
	return &Adapter{
		client: client,
		market: market,
		logger: logger.With(zap.String("exchange", exchangeName)),
	}, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *Adapter) MarketType() domain.MarketType { return a.market }

// Capabilities returns the Bitfinex variant tags. Side is encoded in the sign
// of the amount on both markets; reduce-only is not exposed by this order
// surface, closes are plain opposite-side orders.
func (a *Adapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SignedAmount: true,
	}
}

// Ping probes exchange connectivity.
func (a *Adapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx) }

// nativeSymbol converts "BTC/USDT" to tBTCUST (spot) or tBTCF0:USTF0 (swap).
// Symbols already in native form (leading "t") pass through unchanged.
func (a *Adapter) nativeSymbol(pair string) string {
	if strings.HasPrefix(pair, "t") && !strings.Contains(pair, "/") {
		return pair
	}
	base, quote, ok := strings.Cut(strings.ToUpper(pair), "/")
	if !ok {
		base, quote = strings.ToUpper(pair), "USD"
	}
	// Bitfinex names tether "UST".
	if quote == "USDT" {
		quote = "UST"
	}
	if base == "USDT" {
		base = "UST"
	}
	if a.market == domain.MarketSwap {
		return "t" + base + "F0:" + quote + "F0"
	}
	return "t" + base + quote
}

// orderType maps to the wallet-specific Bitfinex order types.
func (a *Adapter) orderType(t domain.OrderType) string {
	native := strings.ToUpper(string(t))
	if a.market == domain.MarketSpot {
		return "EXCHANGE " + native
	}
	return native
}

// signedAmount encodes side into the amount: positive buy, negative sell.
func signedAmount(req domain.OrderRequest) decimal.Decimal {
	if req.Side == domain.SideSell {
		return req.Quantity.Neg()
	}
	return req.Quantity
}

// clientCID sanitizes a client order id into the numeric cid Bitfinex
// accepts: digits only, at most 18 of them, and strictly positive.
func clientCID(id string) (int64, bool) {
	var digits strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
		if digits.Len() == 18 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
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

	body := map[string]any{
		"type":   a.orderType(orderType),
		"symbol": a.nativeSymbol(req.Symbol),
		"amount": signedAmount(req).String(),
	}
	if orderType == domain.OrderTypeLimit {
		body["price"] = req.Price.String()
	}
	if cid, ok := clientCID(req.ClientOrderID); ok {
		body["cid"] = cid
	}

	a.logger.Info("submitting order",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedPost(ctx, "/v2/auth/w/order/submit", body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderIDFromSubmit(raw),
		Raw:      raw,
	}, nil
}

// orderIDFromSubmit digs the order id out of the submit notification, which
// nests the order array at [3][0].
func orderIDFromSubmit(raw json.RawMessage) string {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer) < 4 {
		return ""
	}
	var orders [][]any
	if err := json.Unmarshal(outer[3], &orders); err != nil || len(orders) == 0 || len(orders[0]) == 0 {
		return ""
	}
	if f, ok := orders[0][0].(float64); ok {
		return strconv.FormatInt(int64(f), 10)
	}
	return ""
}

// CancelOrder cancels by the numeric exchange order id. Cancel by client id
// alone is not supported: Bitfinex requires the cid date alongside the cid.
func (a *Adapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	oid, err := strconv.ParseInt(ref.OrderID, 10, 64)
	if err != nil || oid <= 0 {
		return nil, domain.NewValidationError(exchangeName, "cancel requires a numeric order id, got %q", ref.OrderID)
	}
	return a.client.SignedPost(ctx, "/v2/auth/w/order/cancel", map[string]any{"id": oid})
}

// GetOrder fetches the native order record.
func (a *Adapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	oid, err := strconv.ParseInt(ref.OrderID, 10, 64)
	if err != nil || oid <= 0 {
		return nil, domain.NewValidationError(exchangeName, "get order requires a numeric order id, got %q", ref.OrderID)
	}
	return a.client.SignedPost(ctx, "/v2/auth/r/order/"+strconv.FormatInt(oid, 10), nil)
}

// WaitForFill polls the order until it fills or terminates. Filled quantity
// is derived from |original - remaining| on the order array.
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

// orderSnapshot parses a Bitfinex order array into a fill snapshot. The
// array layout: amount remaining at index 6, original amount at 7, status at
// 13, average price at 14.
func orderSnapshot(raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var fields []any
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) < 15 {
		// Read endpoints may wrap the order in a one-element list.
		var nested [][]any
		if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 || len(nested[0]) < 15 {
			return snap
		}
		fields = nested[0]
	}

	if s, ok := fields[13].(string); ok {
		snap.Status = s
	}
	remaining, okRemaining := asFloat(fields[6])
	orig, okOrig := asFloat(fields[7])
	avg, okAvg := asFloat(fields[14])
	if okRemaining && okOrig && okAvg {
		diff := orig - remaining
		if diff < 0 {
			diff = -diff
		}
		snap.Filled = decimal.NewFromFloat(diff)
		snap.AvgPrice = decimal.NewFromFloat(avg)
		snap.Confidence = fill.ConfidenceExact
	}
	return snap
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}
