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
	"tradebridge/internal/exchange/contracts"
	"tradebridge/internal/exchange/fill"
)

var futuresTerminalStatuses = []string{"done", "filled", "canceled", "cancelled"}

// FuturesAdapter implements the order-lifecycle contract for KuCoin USDT
// perpetuals. Order size is a whole contract count converted from base
// quantity through the contract multiplier.
type FuturesAdapter struct {
	client *Client
	cache  *contracts.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewFuturesAdapter creates a KuCoin futures adapter.
func NewFuturesAdapter(cfg Config) (*FuturesAdapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = FuturesBaseURL
	}
	client, err := NewClient(ClientConfig{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		Passphrase: cfg.Passphrase,
		BaseURL:    baseURL,
		Timeout:    cfg.Timeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	a := &FuturesAdapter{
		client: client,
		logger: logger.With(zap.String("exchange", exchangeName), zap.String("market", "swap")),
		now:    time.Now,
	}
	a.cache = contracts.NewCache(a.fetchContract, contracts.DefaultTTL)
	return a, nil
}

// Name returns the exchange identifier.
func (a *FuturesAdapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *FuturesAdapter) MarketType() domain.MarketType { return domain.MarketSwap }

// Capabilities returns the KuCoin futures variant tags.
func (a *FuturesAdapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		ContractSized:    true,
		ReduceOnly:       true,
		CancelByClientID: true,
		QueryByClientID:  true,
	}
}

// Ping probes exchange connectivity.
func (a *FuturesAdapter) Ping(ctx context.Context) bool { return a.client.Ping(ctx) }

// nativeFuturesSymbol maps "BTC/USDT" to the "XBTUSDTM" perpetual. Native
// M-suffixed instrument names pass through unchanged.
func nativeFuturesSymbol(pair string) string {
	s := strings.ToUpper(pair)
	if !strings.Contains(s, "/") && strings.HasSuffix(s, "M") {
		return s
	}
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "BTC", "XBT")
	return s + "M"
}

// fetchContract reads contract metadata from the public active-contracts
// listing, which has no single-instrument variant.
func (a *FuturesAdapter) fetchContract(ctx context.Context, symbol string) (contracts.Metadata, error) {
	data, err := a.client.Public(ctx, http.MethodGet, "/api/v1/contracts/active", nil)
	if err != nil {
		return contracts.Metadata{}, err
	}
	var list []struct {
		Symbol     string      `json:"symbol"`
		Multiplier json.Number `json:"multiplier"`
		LotSize    json.Number `json:"lotSize"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return contracts.Metadata{}, err
	}
	for _, it := range list {
		if !strings.EqualFold(it.Symbol, symbol) {
			continue
		}
		raw := it.Multiplier.String()
		if raw == "" {
			raw = it.LotSize.String()
		}
		mult, err := decimal.NewFromString(raw)
		if err != nil {
			mult = decimal.Zero
		}
		return contracts.Metadata{Multiplier: mult, FetchedAt: time.Now()}, nil
	}
	return contracts.Metadata{}, domain.NewValidationError(exchangeName, "unknown contract %s", symbol)
}

func (a *FuturesAdapter) contractSize(ctx context.Context, symbol string, quantity decimal.Decimal) (int64, error) {
	mult, err := a.cache.Multiplier(ctx, symbol)
	if err != nil {
		return 0, err
	}
	count := contracts.BaseToContracts(quantity, mult)
	if count <= 0 {
		return 0, domain.NewValidationError(exchangeName,
			"size %s converts to zero contracts (multiplier %s)", quantity, mult)
	}
	return count, nil
}

// SetLeverage sets position leverage for a contract.
func (a *FuturesAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 {
		leverage = 1
	}
	_, err := a.client.SignedRequest(ctx, http.MethodPost, "/api/v1/position/leverage", nil, map[string]any{
		"symbol":   nativeFuturesSymbol(symbol),
		"leverage": strconv.Itoa(leverage),
	})
	return err
}

// PlaceMarketOrder submits a market order.
func (a *FuturesAdapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeMarket, req)
}

// PlaceLimitOrder submits a limit order.
func (a *FuturesAdapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeLimit, req)
}

func (a *FuturesAdapter) submit(ctx context.Context, orderType domain.OrderType, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(exchangeName, orderType); err != nil {
		return domain.OrderResult{}, err
	}

	symbol := nativeFuturesSymbol(req.Symbol)
	size, err := a.contractSize(ctx, symbol, req.Quantity)
	if err != nil {
		return domain.OrderResult{}, err
	}

	body := map[string]any{
		"clientOid": clientOidOrNow(req.ClientOrderID, a.now),
		"side":      string(req.Side),
		"symbol":    symbol,
		"type":      string(orderType),
		"size":      size,
	}
	if orderType == domain.OrderTypeLimit {
		body["price"] = req.Price.String()
	}
	if req.ReduceOnly {
		body["reduceOnly"] = true
	}
	if req.PostOnly && orderType == domain.OrderTypeLimit {
		body["postOnly"] = true
	}

	a.logger.Info("submitting order",
		zap.String("symbol", symbol),
		zap.String("side", string(req.Side)),
		zap.Int64("contracts", size),
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

func clientOidOrNow(requested string, now func() time.Time) string {
	if requested != "" {
		return requested
	}
	return strconv.FormatInt(now().UnixMilli(), 10)
}

// CancelOrder cancels by order id, or by client order id when no exchange
// id is known.
func (a *FuturesAdapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	switch {
	case ref.OrderID != "":
		return a.client.SignedRequest(ctx, http.MethodDelete, "/api/v1/orders/"+ref.OrderID, nil, nil)
	case ref.ClientOrderID != "":
		return a.client.SignedRequest(ctx, http.MethodDelete, "/api/v1/orders/client-order/"+ref.ClientOrderID, nil, nil)
	default:
		return nil, domain.NewValidationError(exchangeName, "an order id or client order id is required")
	}
}

// GetOrder fetches the native order record by either id.
func (a *FuturesAdapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	switch {
	case ref.OrderID != "":
		return a.client.SignedRequest(ctx, http.MethodGet, "/api/v1/orders/"+ref.OrderID, nil, nil)
	case ref.ClientOrderID != "":
		query := url.Values{}
		query.Set("clientOid", ref.ClientOrderID)
		return a.client.SignedRequest(ctx, http.MethodGet, "/api/v1/orders/byClientOid", query, nil)
	default:
		return nil, domain.NewValidationError(exchangeName, "an order id or client order id is required")
	}
}

// WaitForFill polls the order until it fills or terminates. dealSize is in
// contracts; it converts back to base units through the multiplier of the
// order's own symbol.
func (a *FuturesAdapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = futuresTerminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		data, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return a.futuresOrderSnapshot(ctx, data), nil
	}, opts)
}

func (a *FuturesAdapter) futuresOrderSnapshot(ctx context.Context, data json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: data}

	var record struct {
		Status    string      `json:"status"`
		Symbol    string      `json:"symbol"`
		DealSize  json.Number `json:"dealSize"`
		DealValue json.Number `json:"dealValue"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return snap
	}
	snap.Status = record.Status

	dealCt, err := decimal.NewFromString(record.DealSize.String())
	if err != nil {
		return snap
	}

	mult := decimal.NewFromInt(1)
	if record.Symbol != "" {
		if m, err := a.cache.Multiplier(ctx, record.Symbol); err == nil {
			mult = m
		}
	}
	snap.Filled = contracts.ContractsToBase(dealCt, mult)
	snap.Confidence = fill.ConfidenceExact

	if value, err := decimal.NewFromString(record.DealValue.String()); err == nil && snap.Filled.IsPositive() {
		snap.AvgPrice = value.Div(snap.Filled)
	}
	return snap
}
