package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/contracts"
	"tradebridge/internal/exchange/fill"
)

const futuresPrefix = "/api/v4/futures/usdt"

var futuresTerminalStatuses = []string{"finished", "cancelled", "canceled"}

// FuturesAdapter implements the order-lifecycle contract for Gate.io USDT
// futures. Order size is a signed integer contract count: positive buy,
// negative sell, converted from base quantity through the quanto multiplier.
type FuturesAdapter struct {
	client *Client
	cache  *contracts.Cache
	logger *zap.Logger
}

// NewFuturesAdapter creates a Gate USDT futures adapter.
func NewFuturesAdapter(cfg Config) (*FuturesAdapter, error) {
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

	a := &FuturesAdapter{
		client: client,
		logger: logger.With(zap.String("exchange", exchangeName), zap.String("market", "swap")),
	}
	a.cache = contracts.NewCache(a.fetchContract, contracts.DefaultTTL)
	return a, nil
}

// Name returns the exchange identifier.
func (a *FuturesAdapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *FuturesAdapter) MarketType() domain.MarketType { return domain.MarketSwap }

// Capabilities returns the Gate futures variant tags.
func (a *FuturesAdapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		ContractSized: true,
		SignedAmount:  true,
		ReduceOnly:    true,
	}
}

// Ping probes exchange connectivity.
func (a *FuturesAdapter) Ping(ctx context.Context) bool {
	return a.client.Ping(ctx, "futures/usdt")
}

// fetchContract reads contract metadata from the public contracts endpoint.
func (a *FuturesAdapter) fetchContract(ctx context.Context, contract string) (contracts.Metadata, error) {
	raw, err := a.client.Public(ctx, http.MethodGet, futuresPrefix+"/contracts/"+contract, nil)
	if err != nil {
		return contracts.Metadata{}, err
	}
	var resp struct {
		QuantoMultiplier string `json:"quanto_multiplier"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return contracts.Metadata{}, err
	}
	mult, err := decimal.NewFromString(resp.QuantoMultiplier)
	if err != nil {
		mult = decimal.Zero
	}
	return contracts.Metadata{Multiplier: mult, FetchedAt: time.Now()}, nil
}

// contractSize converts the base quantity into a signed contract count,
// flooring the division. A count of zero is an input error: the request is
// below one contract.
func (a *FuturesAdapter) contractSize(ctx context.Context, contract string, req domain.OrderRequest) (int64, error) {
	mult, err := a.cache.Multiplier(ctx, contract)
	if err != nil {
		return 0, err
	}
	count := contracts.BaseToContracts(req.Quantity, mult)
	if count <= 0 {
		return 0, domain.NewValidationError(exchangeName,
			"size %s converts to zero contracts (multiplier %s)", req.Quantity, mult)
	}
	if req.Side == domain.SideSell {
		count = -count
	}
	return count, nil
}

// PlaceMarketOrder submits an IOC market order (price "0" per the apiv4
// convention).
func (a *FuturesAdapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeMarket, req)
}

// PlaceLimitOrder submits a GTC limit order.
func (a *FuturesAdapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return a.submit(ctx, domain.OrderTypeLimit, req)
}

func (a *FuturesAdapter) submit(ctx context.Context, orderType domain.OrderType, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(exchangeName, orderType); err != nil {
		return domain.OrderResult{}, err
	}

	contract := nativeSymbol(req.Symbol)
	size, err := a.contractSize(ctx, contract, req)
	if err != nil {
		return domain.OrderResult{}, err
	}

	body := map[string]any{
		"contract": contract,
		"size":     size,
	}
	if orderType == domain.OrderTypeLimit {
		body["price"] = req.Price.String()
		body["tif"] = "gtc"
	} else {
		body["price"] = "0"
		body["tif"] = "ioc"
	}
	if req.ReduceOnly {
		body["reduce_only"] = true
	}
	if req.ClientOrderID != "" {
		body["text"] = req.ClientOrderID
	}

	a.logger.Info("submitting order",
		zap.String("contract", contract),
		zap.String("side", string(req.Side)),
		zap.Int64("contracts", size),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedRequest(ctx, http.MethodPost, futuresPrefix+"/orders", nil, body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderIDField(raw),
		Raw:      raw,
	}, nil
}

// CancelOrder cancels by exchange order id.
func (a *FuturesAdapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "cancel requires an order id")
	}
	return a.client.SignedRequest(ctx, http.MethodDelete, futuresPrefix+"/orders/"+ref.OrderID, nil, nil)
}

// GetOrder fetches the native order record.
func (a *FuturesAdapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	if ref.OrderID == "" {
		return nil, domain.NewValidationError(exchangeName, "get order requires an order id")
	}
	return a.client.SignedRequest(ctx, http.MethodGet, futuresPrefix+"/orders/"+ref.OrderID, nil, nil)
}

// SetLeverage sets position leverage for a contract.
func (a *FuturesAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 {
		leverage = 1
	}
	contract := nativeSymbol(symbol)
	_, err := a.client.SignedRequest(ctx, http.MethodPost,
		futuresPrefix+"/positions/"+contract+"/leverage", nil,
		map[string]any{"leverage": strconv.Itoa(leverage)})
	return err
}

// WaitForFill polls the order until it fills or terminates. Gate reports
// filled_size in contracts; it converts back to base units through the
// quanto multiplier of the order's contract.
func (a *FuturesAdapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = futuresTerminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		raw, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return a.futuresOrderSnapshot(ctx, raw), nil
	}, opts)
}

func (a *FuturesAdapter) futuresOrderSnapshot(ctx context.Context, raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var record struct {
		Status     string          `json:"status"`
		Contract   string          `json:"contract"`
		FilledSize json.Number     `json:"filled_size"`
		FillPrice  json.RawMessage `json:"fill_price"`
		FillPrice2 json.RawMessage `json:"fillPrice"`
		Price      json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return snap
	}
	snap.Status = record.Status

	// filled_size is signed on the wire, negative for sells.
	filledCt, err := decimal.NewFromString(record.FilledSize.String())
	if err != nil {
		return snap
	}
	filledCt = filledCt.Abs()

	mult := decimal.NewFromInt(1)
	if record.Contract != "" {
		if m, err := a.cache.Multiplier(ctx, record.Contract); err == nil {
			mult = m
		}
	}
	snap.Filled = contracts.ContractsToBase(filledCt, mult)
	snap.Confidence = fill.ConfidenceExact

	avgRaw := priceField(record.FillPrice)
	if avgRaw == "" {
		avgRaw = priceField(record.FillPrice2)
	}
	if avgRaw == "" {
		avgRaw = priceField(record.Price)
	}
	if avg, err := decimal.NewFromString(avgRaw); err == nil && avg.IsPositive() {
		snap.AvgPrice = avg
	}
	return snap
}

// priceField reads a price Gate serializes as either a quoted string or a
// bare number.
func priceField(raw json.RawMessage) string {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "null" {
		return ""
	}
	return s
}
