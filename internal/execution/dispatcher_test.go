package execution_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/internal/domain"
	"tradebridge/internal/execution"
	"tradebridge/internal/exchange/fill"
)

// fakeAdapter records the order it receives and returns canned results.
type fakeAdapter struct {
	name   string
	market domain.MarketType
	caps   domain.Capabilities

	placedMarket bool
	placedLimit  bool
	gotOrder     domain.OrderRequest
	gotWaitOpts  fill.Options
	waited       bool

	snapshot fill.Snapshot
}

func (f *fakeAdapter) Name() string                      { return f.name }
func (f *fakeAdapter) MarketType() domain.MarketType     { return f.market }
func (f *fakeAdapter) Capabilities() domain.Capabilities { return f.caps }
func (f *fakeAdapter) Ping(ctx context.Context) bool     { return true }

func (f *fakeAdapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.placedMarket = true
	f.gotOrder = req
	return domain.OrderResult{Exchange: f.name, OrderID: "oid-1"}, nil
}

func (f *fakeAdapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.placedLimit = true
	f.gotOrder = req
	return domain.OrderResult{Exchange: f.name, OrderID: "oid-1"}, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeAdapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeAdapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	f.waited = true
	f.gotWaitOpts = opts
	return f.snapshot, nil
}

func TestSignalIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		signal     domain.Signal
		side       domain.Side
		position   domain.PositionSide
		reduceOnly bool
	}{
		{signal: domain.SignalOpenLong, side: domain.SideBuy, position: domain.PositionLong},
		{signal: domain.SignalAddLong, side: domain.SideBuy, position: domain.PositionLong},
		{signal: domain.SignalOpenShort, side: domain.SideSell, position: domain.PositionShort},
		{signal: domain.SignalAddShort, side: domain.SideSell, position: domain.PositionShort},
		{signal: domain.SignalCloseLong, side: domain.SideSell, position: domain.PositionLong, reduceOnly: true},
		{signal: domain.SignalReduceLong, side: domain.SideSell, position: domain.PositionLong, reduceOnly: true},
		{signal: domain.SignalCloseShort, side: domain.SideBuy, position: domain.PositionShort, reduceOnly: true},
		{signal: domain.SignalReduceShort, side: domain.SideBuy, position: domain.PositionShort, reduceOnly: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.signal), func(t *testing.T) {
			t.Parallel()

			intent, err := execution.SignalIntent(tt.signal)
			require.NoError(t, err)
			assert.Equal(t, tt.side, intent.Side)
			assert.Equal(t, tt.position, intent.PositionSide)
			assert.Equal(t, tt.reduceOnly, intent.ReduceOnly)
		})
	}
}

func TestSignalIntent_NormalizesInput(t *testing.T) {
	t.Parallel()

	intent, err := execution.SignalIntent(" Open_Long ")
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, intent.Side)
}

func TestSignalIntent_UnknownSignal(t *testing.T) {
	t.Parallel()

	_, err := execution.SignalIntent("liquidate_everything")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestExecute_MarketOrderFromSignal(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "gate", market: domain.MarketSwap, caps: domain.Capabilities{ReduceOnly: true}}
	d := execution.NewDispatcher(adapter, nil)

	result, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalOpenLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)

	assert.True(t, adapter.placedMarket)
	assert.False(t, adapter.placedLimit)
	assert.False(t, adapter.waited)
	assert.Equal(t, "oid-1", result.Order.OrderID)
	assert.Equal(t, domain.SideBuy, adapter.gotOrder.Side)
	assert.False(t, adapter.gotOrder.ReduceOnly)
}

func TestExecute_PositivePriceMakesLimitOrder(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "gate", market: domain.MarketSwap}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalOpenShort,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
		Price:  decimal.NewFromInt(36000),
	})
	require.NoError(t, err)

	assert.True(t, adapter.placedLimit)
	assert.Equal(t, domain.SideSell, adapter.gotOrder.Side)
}

func TestExecute_CloseLongSetsReduceOnlyWhenSupported(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "kucoin", market: domain.MarketSwap, caps: domain.Capabilities{ReduceOnly: true}}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalCloseLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SideSell, adapter.gotOrder.Side)
	assert.True(t, adapter.gotOrder.ReduceOnly)
}

func TestExecute_ReduceOnlyDroppedWhenUnsupported(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "bitfinex", market: domain.MarketSwap, caps: domain.Capabilities{SignedAmount: true}}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalCloseLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SideSell, adapter.gotOrder.Side)
	assert.False(t, adapter.gotOrder.ReduceOnly)
	assert.Empty(t, adapter.gotOrder.PositionSide)
}

func TestExecute_ShortSignalRejectedOnSpot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		adapter *fakeAdapter
		signal  domain.Signal
	}{
		{name: "spot market type", adapter: &fakeAdapter{name: "gate", market: domain.MarketSpot}, signal: domain.SignalOpenShort},
		{name: "spot-only capability", adapter: &fakeAdapter{name: "kraken", market: domain.MarketSpot, caps: domain.Capabilities{SpotOnly: true}}, signal: domain.SignalOpenShort},
		{name: "mixed-case open short", adapter: &fakeAdapter{name: "gate", market: domain.MarketSpot}, signal: domain.Signal("Open_Short")},
		{name: "padded close short", adapter: &fakeAdapter{name: "gate", market: domain.MarketSpot}, signal: domain.Signal(" CLOSE_SHORT ")},
		{name: "mixed-case add short", adapter: &fakeAdapter{name: "kraken", market: domain.MarketSpot, caps: domain.Capabilities{SpotOnly: true}}, signal: domain.Signal("Add_Short")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := execution.NewDispatcher(tt.adapter, nil)
			_, err := d.Execute(context.Background(), execution.Request{
				Signal: tt.signal,
				Symbol: "BTC/USDT",
				Amount: decimal.NewFromFloat(0.01),
			})
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.False(t, tt.adapter.placedMarket)
			assert.False(t, tt.adapter.placedLimit)
		})
	}
}

func TestExecute_CloseLongAllowedOnSpot(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "kraken", market: domain.MarketSpot, caps: domain.Capabilities{SpotOnly: true}}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalCloseLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, adapter.gotOrder.Side)
}

func TestExecute_WaitMergesFillIntoResult(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name:   "gate",
		market: domain.MarketSwap,
		snapshot: fill.Snapshot{
			Status:   "finished",
			Filled:   decimal.NewFromFloat(0.01),
			AvgPrice: decimal.NewFromInt(36000),
		},
	}
	d := execution.NewDispatcher(adapter, nil)

	result, err := d.Execute(context.Background(), execution.Request{
		Signal:          domain.SignalOpenLong,
		Symbol:          "BTC/USDT",
		Amount:          decimal.NewFromFloat(0.01),
		Wait:            true,
		ReturnOnPartial: true,
	})
	require.NoError(t, err)

	assert.True(t, adapter.waited)
	assert.True(t, adapter.gotWaitOpts.ReturnOnPartial)
	require.NotNil(t, result.Fill)
	assert.Equal(t, "finished", result.Fill.Status)
	assert.True(t, result.Order.Filled.Equal(decimal.NewFromFloat(0.01)))
	assert.True(t, result.Order.AvgPrice.Equal(decimal.NewFromInt(36000)))
}

func TestExecute_ParamDefaultsLandOnOrder(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "gate", market: domain.MarketSwap}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalOpenLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)

	assert.Equal(t, "cross", adapter.gotOrder.MarginMode)
	assert.Equal(t, "USDT", adapter.gotOrder.MarginCoin)
	assert.Equal(t, "USDT-FUTURES", adapter.gotOrder.ProductType)
}

func TestExecute_ExplicitParamsKept(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "gate", market: domain.MarketSwap}
	d := execution.NewDispatcher(adapter, nil)

	_, err := d.Execute(context.Background(), execution.Request{
		Signal: domain.SignalOpenLong,
		Symbol: "BTC/USDT",
		Amount: decimal.NewFromFloat(0.01),
		Params: execution.Params{MarginMode: "isolated", MarginCoin: "USDC"},
	})
	require.NoError(t, err)

	assert.Equal(t, "isolated", adapter.gotOrder.MarginMode)
	assert.Equal(t, "USDC", adapter.gotOrder.MarginCoin)
}
