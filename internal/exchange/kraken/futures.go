package kraken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
	"tradebridge/internal/exchange/rest"
)

const (
	// FuturesBaseURL is the production Kraken futures API endpoint.
	FuturesBaseURL = "https://futures.kraken.com"

	derivativesPrefix = "/derivatives/api/v3"

	maxCliOrdIDLen = 32
)

var futuresTerminalStatuses = []string{"filled", "cancelled", "canceled", "rejected"}

// FuturesClient is an HTTP client for the Kraken futures (formerly
// CryptoFacilities) REST API. Private calls are form-encoded; for GET the
// form is the query string, and either way it enters the Authent digest as
// postdata.
type FuturesClient struct {
	signer    *FuturesSigner
	transport rest.Transport
	logger    *zap.Logger
}

// NewFuturesClient creates a new Kraken futures API client.
func NewFuturesClient(cfg ClientConfig) (*FuturesClient, error) {
	signer, err := NewFuturesSigner(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = FuturesBaseURL
	}

	return &FuturesClient{
		signer: signer,
		transport: rest.NewClient(rest.Config{
			BaseURL: baseURL,
			Timeout: cfg.Timeout,
			Logger:  logger,
		}),
		logger: logger,
	}, nil
}

// SignedRequest sends a private call. The response envelope reports errors
// as result:"error" or a non-empty errors array, also on HTTP 200.
func (c *FuturesClient) SignedRequest(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	postdata := ""
	if form != nil {
		postdata = form.Encode()
	}
	nonce := c.signer.Nonce()

	req := rest.Request{
		Method:  method,
		Path:    path,
		Headers: c.signer.Headers(path, nonce, postdata),
	}
	if method == http.MethodGet {
		req.Query = postdata
	} else {
		req.Body = []byte(postdata)
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
	}

	var env struct {
		Result string   `json:"result"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body, &env); err == nil {
		if env.Result == "error" || len(env.Errors) > 0 {
			return nil, domain.NewRemoteError(exchangeName, resp.Status, resp.Body)
		}
	}
	return resp.Body, nil
}

// Ping checks connectivity via the public tickers endpoint.
func (c *FuturesClient) Ping(ctx context.Context) bool {
	resp, err := c.transport.Do(ctx, rest.Request{
		Method: http.MethodGet,
		Path:   derivativesPrefix + "/tickers",
	})
	return err == nil && resp.OK()
}

// Accounts calls the private accounts endpoint, mainly as a credential probe.
func (c *FuturesClient) Accounts(ctx context.Context) (json.RawMessage, error) {
	return c.SignedRequest(ctx, http.MethodGet, derivativesPrefix+"/accounts", nil)
}

// FuturesAdapter implements the order-lifecycle contract for Kraken futures.
// Order size is a contract count taken directly from the request quantity;
// Kraken futures instruments carry their own per-contract sizing.
type FuturesAdapter struct {
	client *FuturesClient
	logger *zap.Logger
}

// NewFuturesAdapter creates a Kraken futures adapter.
func NewFuturesAdapter(cfg Config) (*FuturesAdapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewFuturesClient(ClientConfig{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &FuturesAdapter{
		client: client,
		logger: logger.With(zap.String("exchange", exchangeName), zap.String("market", "swap")),
	}, nil
}

// Name returns the exchange identifier.
func (a *FuturesAdapter) Name() string { return exchangeName }

// MarketType returns the market this adapter trades on.
func (a *FuturesAdapter) MarketType() domain.MarketType { return domain.MarketSwap }

// Capabilities returns the Kraken futures variant tags.
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

// nativeFuturesSymbol maps "BTC/USDT" to the "PF_XBTUSD" perpetual. Native
// instrument names (PF_ or PI_ prefixed) pass through unchanged.
func nativeFuturesSymbol(pair string) string {
	s := strings.ToUpper(pair)
	if strings.HasPrefix(s, "PF_") || strings.HasPrefix(s, "PI_") {
		return s
	}
	base, _, found := strings.Cut(s, "/")
	if !found {
		base = s
	}
	base = strings.ReplaceAll(base, "BTC", "XBT")
	return "PF_" + base + "USD"
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

	instrument := nativeFuturesSymbol(req.Symbol)
	form := url.Values{}
	form.Set("symbol", instrument)
	form.Set("side", string(req.Side))
	form.Set("size", req.Quantity.String())
	if orderType == domain.OrderTypeLimit {
		form.Set("orderType", "lmt")
		form.Set("limitPrice", req.Price.String())
		if req.PostOnly {
			form.Set("postOnly", "true")
		}
	} else {
		form.Set("orderType", "mkt")
	}
	if req.ReduceOnly {
		form.Set("reduceOnly", "true")
	}
	if req.ClientOrderID != "" {
		cid := req.ClientOrderID
		if len(cid) > maxCliOrdIDLen {
			cid = cid[:maxCliOrdIDLen]
		}
		form.Set("cliOrdId", cid)
	}

	a.logger.Info("submitting order",
		zap.String("instrument", instrument),
		zap.String("side", string(req.Side)),
		zap.String("size", req.Quantity.String()),
		zap.String("type", string(orderType)))

	raw, err := a.client.SignedRequest(ctx, http.MethodPost, derivativesPrefix+"/sendorder", form)
	if err != nil {
		return domain.OrderResult{}, err
	}

	var resp struct {
		SendStatus struct {
			OrderID string `json:"order_id"`
		} `json:"sendStatus"`
		OrderID string `json:"order_id"`
	}
	orderID := ""
	if err := json.Unmarshal(raw, &resp); err == nil {
		orderID = resp.SendStatus.OrderID
		if orderID == "" {
			orderID = resp.OrderID
		}
	}
	return domain.OrderResult{
		Exchange: exchangeName,
		OrderID:  orderID,
		Raw:      raw,
	}, nil
}

// orderRefForm encodes an order reference, preferring the exchange id.
func orderRefForm(ref domain.OrderRef) (url.Values, error) {
	form := url.Values{}
	switch {
	case ref.OrderID != "":
		form.Set("order_id", ref.OrderID)
	case ref.ClientOrderID != "":
		form.Set("cliOrdId", ref.ClientOrderID)
	default:
		return nil, domain.NewValidationError(exchangeName, "an order id or client order id is required")
	}
	return form, nil
}

// CancelOrder cancels by order id or client order id.
func (a *FuturesAdapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	form, err := orderRefForm(ref)
	if err != nil {
		return nil, err
	}
	return a.client.SignedRequest(ctx, http.MethodPost, derivativesPrefix+"/cancelorder", form)
}

// GetOrder fetches the native order record.
func (a *FuturesAdapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	form, err := orderRefForm(ref)
	if err != nil {
		return nil, err
	}
	return a.client.SignedRequest(ctx, http.MethodGet, derivativesPrefix+"/order", form)
}

// WaitForFill polls the order until it fills or terminates.
func (a *FuturesAdapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	if len(opts.TerminalStatuses) == 0 {
		opts.TerminalStatuses = futuresTerminalStatuses
	}
	return fill.Wait(ctx, func(ctx context.Context) (fill.Snapshot, error) {
		raw, err := a.GetOrder(ctx, ref)
		if err != nil {
			return fill.Snapshot{}, err
		}
		return futuresOrderSnapshot(raw), nil
	}, opts)
}

// futuresOrderSnapshot extracts fill progress from an order record. The
// futures API varies between camelCase and snake_case field names.
func futuresOrderSnapshot(raw json.RawMessage) fill.Snapshot {
	snap := fill.Snapshot{Confidence: fill.ConfidenceUnknown, Raw: raw}

	var record struct {
		Status       string      `json:"status"`
		OrderStatus  string      `json:"orderStatus"`
		FilledSize   json.Number `json:"filledSize"`
		FilledSize2  json.Number `json:"filled_size"`
		AvgFillPrice json.Number `json:"avgFillPrice"`
		AvgFillPrc2  json.Number `json:"avg_fill_price"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return snap
	}
	snap.Status = record.Status
	if snap.Status == "" {
		snap.Status = record.OrderStatus
	}

	filledRaw := record.FilledSize.String()
	if filledRaw == "" {
		filledRaw = record.FilledSize2.String()
	}
	filled, err := decimal.NewFromString(filledRaw)
	if err != nil {
		return snap
	}
	snap.Filled = filled
	snap.Confidence = fill.ConfidenceExact

	avgRaw := record.AvgFillPrice.String()
	if avgRaw == "" {
		avgRaw = record.AvgFillPrc2.String()
	}
	if avg, err := decimal.NewFromString(avgRaw); err == nil && avg.IsPositive() {
		snap.AvgPrice = avg
	}
	return snap
}
