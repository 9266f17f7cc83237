// Package main is the entry point for the trading bridge CLI. It loads
// configuration, builds an adapter for every enabled exchange into a
// registry, health-checks them in parallel, then routes one strategy signal
// through the execution dispatcher and prints the order result as JSON.
//
// Usage:
//
//	tradebridge --config configs/config.yaml --exchange kraken \
//	    --signal open_long --symbol BTC/USDT --amount 0.01
//	tradebridge --config configs/config.yaml --exchange gate --market swap \
//	    --signal close_long --symbol BTC/USDT --amount 0.01 --wait
//	tradebridge --config configs/config.yaml --check
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange"
	"tradebridge/internal/execution"
	"tradebridge/pkg/config"
)

// Command-line flags.
var (
	// configPath is the path to the YAML configuration file.
	configPath string
	// exchangeID selects the exchange to trade on.
	exchangeID string
	// marketType overrides the configured market type (spot or swap).
	marketType string
	// signalType is the strategy signal to execute.
	signalType string
	// symbol is the trading pair in BASE/QUOTE format.
	symbol string
	// amount is the base-asset quantity.
	amount string
	// price, when set, places a limit order at this price.
	price string
	// wait polls the fill state after submitting.
	wait bool
	// checkOnly pings all enabled exchanges and exits without trading.
	checkOnly bool
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
	flag.StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	flag.StringVar(&exchangeID, "exchange", "", "exchange to trade on")
	flag.StringVar(&marketType, "market", "", "market type override (spot or swap)")
	flag.StringVar(&signalType, "signal", "", "signal to execute (open_long, close_short, ...)")
	flag.StringVar(&symbol, "symbol", "BTC/USDT", "trading pair")
	flag.StringVar(&amount, "amount", "", "base-asset quantity")
	flag.StringVar(&price, "price", "", "limit price (market order when empty)")
	flag.BoolVar(&wait, "wait", false, "poll fill state after submitting")
	flag.BoolVar(&checkOnly, "check", false, "ping all enabled exchanges and exit")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry, targetName, err := buildRegistry(cfg, exchangeID, marketType, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := registry.HealthCheck(ctx)
	if checkOnly {
		out, err := json.MarshalIndent(health, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if exchangeID == "" {
		return fmt.Errorf("--exchange is required")
	}
	if targetName == "" {
		return fmt.Errorf("exchange %s is not enabled in %s", exchangeID, configPath)
	}
	adapter, err := registry.Get(targetName)
	if err != nil {
		return err
	}
	if !health[targetName] {
		logger.Warn("exchange unreachable, submitting anyway", zap.String("exchange", targetName))
	}
	exCfg := cfg.Exchanges[exchangeID]

	qty, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("parse --amount: %w", err)
	}
	px := decimal.Zero
	if price != "" {
		if px, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse --price: %w", err)
		}
	}

	req := execution.Request{
		Signal: domain.Signal(signalType),
		Symbol: symbol,
		Amount: qty,
		Price:  px,
		Params: execution.Params{
			MarginMode:  exCfg.MarginMode,
			MarginCoin:  exCfg.MarginCoin,
			ProductType: exCfg.ProductType,
		},
		Wait: wait,
	}
	if cfg.Execution != nil {
		req.MaxWait = cfg.Execution.MaxWait()
		req.PollInterval = cfg.Execution.PollInterval()
		req.ReturnOnPartial = cfg.Execution.ReturnOnPartial
	}

	dispatcher := execution.NewDispatcher(adapter, logger)
	result, err := dispatcher.Execute(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// buildRegistry constructs an adapter for every enabled exchange and
// registers it. The target exchange gets the market type override when one
// is set. The second return value is the target's canonical adapter name,
// empty when the target is not among the enabled exchanges.
func buildRegistry(cfg *config.Config, target, marketOverride string, logger *zap.Logger) (*exchange.Registry, string, error) {
	registry := exchange.NewRegistry(logger)
	targetName := ""
	for id, exCfg := range cfg.Exchanges {
		if !exCfg.Enabled {
			continue
		}
		market := exCfg.MarketType
		if id == target && marketOverride != "" {
			market = marketOverride
		}
		adapter, err := exchange.New(exchange.Config{
			Exchange:       id,
			MarketType:     market,
			BaseURL:        exCfg.BaseURL,
			FuturesBaseURL: exCfg.FuturesBaseURL,
			Timeout:        exCfg.Timeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, "", fmt.Errorf("build %s adapter: %w", id, err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, "", err
		}
		if id == target {
			targetName = adapter.Name()
		}
	}
	return registry, targetName, nil
}

// buildLogger creates a zap logger honoring the configured level and env.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.App.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.App.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zapCfg.Level = level
	}
	return zapCfg.Build()
}
