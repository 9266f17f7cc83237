package exchange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange"
)

// coinbaseSecret decodes to "coinbase-secret-bytes".
const coinbaseSecret = "Y29pbmJhc2Utc2VjcmV0LWJ5dGVz"

// krakenSecret decodes to "kraken-secret-bytes!".
const krakenSecret = "a3Jha2VuLXNlY3JldC1ieXRlcyE="

func TestNew_UnsupportedExchange(t *testing.T) {
	_, err := exchange.New(exchange.Config{Exchange: "binance"})
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestNew_UnknownMarketType(t *testing.T) {
	_, err := exchange.New(exchange.Config{
		Exchange:   "gate",
		MarketType: "margin",
		APIKey:     "k",
		APISecret:  "s",
	})
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestNew_CoinbaseRejectsSwap(t *testing.T) {
	_, err := exchange.New(exchange.Config{
		Exchange:   "coinbaseexchange",
		MarketType: "swap",
		APIKey:     "k",
		APISecret:  coinbaseSecret,
		Passphrase: "p",
	})
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := exchange.New(exchange.Config{Exchange: "gate", MarketType: "spot"})
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestNew_BuildsEveryPair(t *testing.T) {
	tests := []struct {
		name       string
		cfg        exchange.Config
		wantName   string
		wantMarket domain.MarketType
	}{
		{
			name:       "bitfinex spot",
			cfg:        exchange.Config{Exchange: "bitfinex", MarketType: "spot", APIKey: "k", APISecret: "s"},
			wantName:   "bitfinex",
			wantMarket: domain.MarketSpot,
		},
		{
			name:       "bitfinex swap by default",
			cfg:        exchange.Config{Exchange: "bitfinex", APIKey: "k", APISecret: "s"},
			wantName:   "bitfinex",
			wantMarket: domain.MarketSwap,
		},
		{
			name:       "coinbase spot",
			cfg:        exchange.Config{Exchange: "coinbase_exchange", MarketType: "spot", APIKey: "k", APISecret: coinbaseSecret, Passphrase: "p"},
			wantName:   "coinbaseexchange",
			wantMarket: domain.MarketSpot,
		},
		{
			name:       "gate spot",
			cfg:        exchange.Config{Exchange: "gate", MarketType: "spot", APIKey: "k", APISecret: "s"},
			wantName:   "gate",
			wantMarket: domain.MarketSpot,
		},
		{
			name:       "gate futures alias",
			cfg:        exchange.Config{Exchange: "gate", MarketType: "futures", APIKey: "k", APISecret: "s"},
			wantName:   "gate",
			wantMarket: domain.MarketSwap,
		},
		{
			name:       "kraken spot",
			cfg:        exchange.Config{Exchange: "kraken", MarketType: "spot", APIKey: "k", APISecret: krakenSecret},
			wantName:   "kraken",
			wantMarket: domain.MarketSpot,
		},
		{
			name:       "kraken perp alias",
			cfg:        exchange.Config{Exchange: "KRAKEN", MarketType: "perp", APIKey: "k", APISecret: "plain-secret"},
			wantName:   "kraken",
			wantMarket: domain.MarketSwap,
		},
		{
			name:       "kucoin spot",
			cfg:        exchange.Config{Exchange: "kucoin", MarketType: "spot", APIKey: "k", APISecret: "s", Passphrase: "p"},
			wantName:   "kucoin",
			wantMarket: domain.MarketSpot,
		},
		{
			name:       "kucoin swap",
			cfg:        exchange.Config{Exchange: "kucoin", MarketType: "swap", APIKey: "k", APISecret: "s", Passphrase: "p"},
			wantName:   "kucoin",
			wantMarket: domain.MarketSwap,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := exchange.New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, adapter.Name())
			assert.Equal(t, tt.wantMarket, adapter.MarketType())
		})
	}
}

func TestNew_CredentialsFromEnvironment(t *testing.T) {
	t.Setenv("GATE_API_KEY", "env-key")
	t.Setenv("GATE_API_SECRET", "env-secret")

	adapter, err := exchange.New(exchange.Config{Exchange: "gate", MarketType: "spot"})
	require.NoError(t, err)
	assert.Equal(t, "gate", adapter.Name())
}
