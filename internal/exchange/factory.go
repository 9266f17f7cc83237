package exchange

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/bitfinex"
	"tradebridge/internal/exchange/coinbase"
	"tradebridge/internal/exchange/gate"
	"tradebridge/internal/exchange/kraken"
	"tradebridge/internal/exchange/kucoin"
)

// Ensure every adapter implements the Adapter interface.
var (
	_ Adapter = (*bitfinex.Adapter)(nil)
	_ Adapter = (*coinbase.Adapter)(nil)
	_ Adapter = (*gate.Adapter)(nil)
	_ Adapter = (*gate.FuturesAdapter)(nil)
	_ Adapter = (*kraken.Adapter)(nil)
	_ Adapter = (*kraken.FuturesAdapter)(nil)
	_ Adapter = (*kucoin.Adapter)(nil)
	_ Adapter = (*kucoin.FuturesAdapter)(nil)
)

// Config describes one adapter to build. Credentials left empty are read
// from <EXCHANGE>_API_KEY, <EXCHANGE>_API_SECRET and <EXCHANGE>_API_PASSPHRASE
// environment variables.
type Config struct {
	// Exchange is the exchange identifier: bitfinex, coinbaseexchange, gate,
	// kraken or kucoin.
	Exchange string
	// MarketType selects spot or swap; futures/perp aliases normalize to
	// swap, empty defaults to swap.
	MarketType string
	// APIKey is the API key.
	APIKey string
	// APISecret is the API secret.
	APISecret string
	// Passphrase is the API passphrase, where the exchange uses one.
	Passphrase string
	// BaseURL overrides the production endpoint.
	BaseURL string
	// FuturesBaseURL overrides the futures endpoint, for exchanges that
	// serve futures from a separate host (kraken, kucoin).
	FuturesBaseURL string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger *zap.Logger
}

// envOr returns value if set, otherwise the environment variable.
func envOr(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}

// withEnvCredentials fills missing credentials from the environment, keyed
// by the upper-cased exchange id.
func (c Config) withEnvCredentials(id string) Config {
	prefix := strings.ToUpper(id)
	c.APIKey = envOr(c.APIKey, prefix+"_API_KEY")
	c.APISecret = envOr(c.APISecret, prefix+"_API_SECRET")
	c.Passphrase = envOr(c.Passphrase, prefix+"_API_PASSPHRASE")
	return c
}

// futuresURL picks the futures endpoint override, falling back to BaseURL
// for exchanges that serve both markets from one host.
func (c Config) futuresURL() string {
	if c.FuturesBaseURL != "" {
		return c.FuturesBaseURL
	}
	return c.BaseURL
}

// New creates the adapter for an (exchange, market type) pair. Unknown
// exchange ids, missing credentials and unsupported market types surface as
// ConfigError.
func New(cfg Config) (Adapter, error) {
	id := strings.ToLower(strings.TrimSpace(cfg.Exchange))
	market, err := domain.NormalizeMarketType(cfg.MarketType)
	if err != nil {
		return nil, domain.NewConfigError(id, "%v", err)
	}

	switch id {
	case "bitfinex":
		cfg = cfg.withEnvCredentials("bitfinex")
		return bitfinex.NewAdapter(bitfinex.Config{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			BaseURL:    cfg.BaseURL,
			MarketType: market,
			Timeout:    cfg.Timeout,
			Logger:     cfg.Logger,
		})

	case "coinbaseexchange", "coinbase_exchange":
		if market != domain.MarketSpot {
			return nil, domain.NewConfigError("coinbaseexchange", "only spot market type is supported")
		}
		cfg = cfg.withEnvCredentials("coinbaseexchange")
		return coinbase.NewAdapter(coinbase.Config{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			Passphrase: cfg.Passphrase,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			Logger:     cfg.Logger,
		})

	case "gate":
		cfg = cfg.withEnvCredentials("gate")
		gateCfg := gate.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Logger:    cfg.Logger,
		}
		if market == domain.MarketSpot {
			return gate.NewAdapter(gateCfg)
		}
		return gate.NewFuturesAdapter(gateCfg)

	case "kraken":
		cfg = cfg.withEnvCredentials("kraken")
		krakenCfg := kraken.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Logger:    cfg.Logger,
		}
		if market == domain.MarketSpot {
			return kraken.NewAdapter(krakenCfg)
		}
		krakenCfg.BaseURL = cfg.futuresURL()
		return kraken.NewFuturesAdapter(krakenCfg)

	case "kucoin":
		cfg = cfg.withEnvCredentials("kucoin")
		kucoinCfg := kucoin.Config{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			Passphrase: cfg.Passphrase,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			Logger:     cfg.Logger,
		}
		if market == domain.MarketSpot {
			return kucoin.NewAdapter(kucoinCfg)
		}
		kucoinCfg.BaseURL = cfg.futuresURL()
		return kucoin.NewFuturesAdapter(kucoinCfg)

	default:
		return nil, domain.NewConfigError(id, "unsupported exchange")
	}
}
