package gate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
	"tradebridge/internal/exchange/gate"
)

func newSpotAdapter(t *testing.T, serverURL string) *gate.Adapter {
	t.Helper()
	adapter, err := gate.NewAdapter(gate.Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   serverURL,
	})
	require.NoError(t, err)
	return adapter
}

func TestAdapter_PlaceLimitOrder(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/spot/orders", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("KEY"))
		assert.NotEmpty(t, r.Header.Get("SIGN"))
		assert.NotEmpty(t, r.Header.Get("Timestamp"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"id":"1852454420","status":"open"}`))
	}))
	defer server.Close()

	adapter := newSpotAdapter(t, server.URL)
	result, err := adapter.PlaceLimitOrder(context.Background(), domain.OrderRequest{
		Symbol:        "BTC/USDT",
		Side:          domain.SideBuy,
		Quantity:      decimal.NewFromFloat(0.01),
		Price:         decimal.NewFromInt(35000),
		ClientOrderID: "t-my-order",
	})
	require.NoError(t, err)

	assert.Equal(t, "gate", result.Exchange)
	assert.Equal(t, "1852454420", result.OrderID)
	assert.Equal(t, "BTC_USDT", gotBody["currency_pair"])
	assert.Equal(t, "buy", gotBody["side"])
	assert.Equal(t, "limit", gotBody["type"])
	assert.Equal(t, "0.01", gotBody["amount"])
	assert.Equal(t, "35000", gotBody["price"])
	assert.Equal(t, "gtc", gotBody["time_in_force"])
	assert.Equal(t, "t-my-order", gotBody["text"])
}

func TestAdapter_NumericOrderID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1852454421}`))
	}))
	defer server.Close()

	adapter := newSpotAdapter(t, server.URL)
	result, err := adapter.PlaceMarketOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     domain.SideSell,
		Quantity: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)
	assert.Equal(t, "1852454421", result.OrderID)
}

func TestAdapter_WaitForFill_SpotSnapshot(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/spot/orders/1852454420", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"closed","filled_amount":"0.01","filled_total":"360"}`))
	}))
	defer server.Close()

	adapter := newSpotAdapter(t, server.URL)
	snap, err := adapter.WaitForFill(context.Background(), domain.OrderRef{OrderID: "1852454420"}, fill.Options{})
	require.NoError(t, err)

	assert.Equal(t, "closed", snap.Status)
	assert.True(t, snap.Filled.Equal(decimal.NewFromFloat(0.01)))
	assert.True(t, snap.AvgPrice.Equal(decimal.NewFromInt(36000)))
}

func newFuturesAdapter(t *testing.T, serverURL string) *gate.FuturesAdapter {
	t.Helper()
	adapter, err := gate.NewFuturesAdapter(gate.Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   serverURL,
	})
	require.NoError(t, err)
	return adapter
}

// futuresHandler serves the contract metadata endpoint alongside the order
// endpoints, since the adapter fetches the multiplier before submitting.
func futuresHandler(t *testing.T, multiplier string, orders http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v4/futures/usdt/contracts/BTC_USDT" {
			_, _ = w.Write([]byte(`{"name":"BTC_USDT","quanto_multiplier":"` + multiplier + `"}`))
			return
		}
		orders(w, r)
	}
}

func TestFuturesAdapter_PlaceMarketOrder_ConvertsToContracts(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(futuresHandler(t, "0.001", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/futures/usdt/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id":9999}`))
	}))
	defer server.Close()

	adapter := newFuturesAdapter(t, server.URL)
	result, err := adapter.PlaceMarketOrder(context.Background(), domain.OrderRequest{
		Symbol:     "BTC/USDT",
		Side:       domain.SideBuy,
		Quantity:   decimal.NewFromFloat(0.0047),
		ReduceOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "9999", result.OrderID)
	assert.Equal(t, "BTC_USDT", gotBody["contract"])
	// 0.0047 / 0.001 floors to 4 contracts.
	assert.Equal(t, float64(4), gotBody["size"])
	assert.Equal(t, "0", gotBody["price"])
	assert.Equal(t, "ioc", gotBody["tif"])
	assert.Equal(t, true, gotBody["reduce_only"])
}

func TestFuturesAdapter_SellSizeIsNegative(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(futuresHandler(t, "0.001", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id":10000}`))
	}))
	defer server.Close()

	adapter := newFuturesAdapter(t, server.URL)
	_, err := adapter.PlaceLimitOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     domain.SideSell,
		Quantity: decimal.NewFromFloat(0.004),
		Price:    decimal.NewFromInt(36000),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(-4), gotBody["size"])
	assert.Equal(t, "36000", gotBody["price"])
	assert.Equal(t, "gtc", gotBody["tif"])
}

func TestFuturesAdapter_BelowOneContractRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(futuresHandler(t, "0.001", func(w http.ResponseWriter, r *http.Request) {
		t.Error("order must not reach the exchange")
	}))
	defer server.Close()

	adapter := newFuturesAdapter(t, server.URL)
	_, err := adapter.PlaceMarketOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     domain.SideBuy,
		Quantity: decimal.NewFromFloat(0.0001),
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestFuturesAdapter_WaitForFill_ConvertsContractsBack(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(futuresHandler(t, "0.001", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/futures/usdt/orders/9999", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"finished","contract":"BTC_USDT","filled_size":-4,"fill_price":"36000"}`))
	}))
	defer server.Close()

	adapter := newFuturesAdapter(t, server.URL)
	snap, err := adapter.WaitForFill(context.Background(), domain.OrderRef{OrderID: "9999"}, fill.Options{})
	require.NoError(t, err)

	assert.Equal(t, "finished", snap.Status)
	assert.True(t, snap.Filled.Equal(decimal.NewFromFloat(0.004)))
	assert.True(t, snap.AvgPrice.Equal(decimal.NewFromInt(36000)))
}

func TestFuturesAdapter_WaitForFill_AvgPriceFieldVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "camel-case string", body: `{"status":"finished","contract":"BTC_USDT","filled_size":-4,"fillPrice":"36000"}`},
		{name: "camel-case number", body: `{"status":"finished","contract":"BTC_USDT","filled_size":-4,"fillPrice":36000}`},
		{name: "price fallback", body: `{"status":"finished","contract":"BTC_USDT","filled_size":-4,"price":"36000"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(futuresHandler(t, "0.001", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newFuturesAdapter(t, server.URL)
			snap, err := adapter.WaitForFill(context.Background(), domain.OrderRef{OrderID: "9999"}, fill.Options{})
			require.NoError(t, err)
			assert.True(t, snap.AvgPrice.Equal(decimal.NewFromInt(36000)))
		})
	}
}

func TestFuturesAdapter_SetLeverage(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/futures/usdt/positions/BTC_USDT/leverage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"leverage":"5"}`))
	}))
	defer server.Close()

	adapter := newFuturesAdapter(t, server.URL)
	require.NoError(t, adapter.SetLeverage(context.Background(), "BTC/USDT", 5))
	assert.Equal(t, "5", gotBody["leverage"])
}
