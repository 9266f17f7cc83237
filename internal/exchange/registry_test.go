package exchange_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange"
	"tradebridge/internal/exchange/fill"
)

// stubAdapter is a minimal in-memory Adapter for registry tests.
type stubAdapter struct {
	name    string
	market  domain.MarketType
	healthy bool
}

func (s *stubAdapter) Name() string                       { return s.name }
func (s *stubAdapter) MarketType() domain.MarketType      { return s.market }
func (s *stubAdapter) Capabilities() domain.Capabilities  { return domain.Capabilities{} }
func (s *stubAdapter) Ping(ctx context.Context) bool      { return s.healthy }
func (s *stubAdapter) PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{Exchange: s.name}, nil
}
func (s *stubAdapter) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{Exchange: s.name}, nil
}
func (s *stubAdapter) CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	return nil, nil
}
func (s *stubAdapter) GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error) {
	return nil, nil
}
func (s *stubAdapter) WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error) {
	return fill.Snapshot{}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := exchange.NewRegistry(nil)
	require.NoError(t, reg.Register(&stubAdapter{name: "gate", market: domain.MarketSpot}))

	adapter, err := reg.Get("gate")
	require.NoError(t, err)
	assert.Equal(t, "gate", adapter.Name())
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := exchange.NewRegistry(nil)
	require.NoError(t, reg.Register(&stubAdapter{name: "kraken"}))
	assert.Error(t, reg.Register(&stubAdapter{name: "kraken"}))
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	reg := exchange.NewRegistry(nil)
	_, err := reg.Get("bitfinex")
	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrAdapterNotFound)
}

func TestRegistry_NamesAndAll(t *testing.T) {
	t.Parallel()

	reg := exchange.NewRegistry(nil)
	require.NoError(t, reg.Register(&stubAdapter{name: "gate"}))
	require.NoError(t, reg.Register(&stubAdapter{name: "kucoin"}))

	assert.ElementsMatch(t, []string{"gate", "kucoin"}, reg.Names())
	assert.Len(t, reg.All(), 2)
}

func TestRegistry_HealthCheck(t *testing.T) {
	t.Parallel()

	reg := exchange.NewRegistry(nil)
	require.NoError(t, reg.Register(&stubAdapter{name: "gate", healthy: true}))
	require.NoError(t, reg.Register(&stubAdapter{name: "kraken", healthy: false}))

	health := reg.HealthCheck(context.Background())
	assert.Equal(t, map[string]bool{"gate": true, "kraken": false}, health)
}
