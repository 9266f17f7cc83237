// Package execution translates strategy signals into exchange orders. The
// dispatcher is the single entry point: it resolves a signal into a side and
// position intent, shapes the order request around what the target adapter
// can express, and optionally waits for the fill outcome.
package execution

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange"
	"tradebridge/internal/exchange/fill"
)

// Intent is the order-level meaning of a signal.
type Intent struct {
	// Side is the buy/sell direction.
	Side domain.Side
	// PositionSide is the position leg the order acts on.
	PositionSide domain.PositionSide
	// ReduceOnly is true for close and reduce signals.
	ReduceOnly bool
}

// SignalIntent resolves a signal into its order intent. Unknown signals are
// a ValidationError.
func SignalIntent(signal domain.Signal) (Intent, error) {
	switch domain.Signal(strings.ToLower(strings.TrimSpace(string(signal)))) {
	case domain.SignalOpenLong, domain.SignalAddLong:
		return Intent{Side: domain.SideBuy, PositionSide: domain.PositionLong}, nil
	case domain.SignalOpenShort, domain.SignalAddShort:
		return Intent{Side: domain.SideSell, PositionSide: domain.PositionShort}, nil
	case domain.SignalCloseLong, domain.SignalReduceLong:
		return Intent{Side: domain.SideSell, PositionSide: domain.PositionLong, ReduceOnly: true}, nil
	case domain.SignalCloseShort, domain.SignalReduceShort:
		return Intent{Side: domain.SideBuy, PositionSide: domain.PositionShort, ReduceOnly: true}, nil
	default:
		return Intent{}, domain.NewValidationError("", "unsupported signal type: %s", signal)
	}
}

// Params are per-exchange order extras with the conventional defaults.
type Params struct {
	// MarginMode is cross or isolated.
	MarginMode string
	// MarginCoin is the settlement currency.
	MarginCoin string
	// ProductType names the derivatives product family.
	ProductType string
}

// withDefaults fills unset fields.
func (p Params) withDefaults() Params {
	if p.MarginMode == "" {
		p.MarginMode = "cross"
	}
	if p.MarginCoin == "" {
		p.MarginCoin = "USDT"
	}
	if p.ProductType == "" {
		p.ProductType = "USDT-FUTURES"
	}
	return p
}

// Request is one signal to execute.
type Request struct {
	// Signal is the strategy instruction.
	Signal domain.Signal
	// Symbol is the unified "BASE/QUOTE" pair.
	Symbol string
	// Amount is the base-asset quantity.
	Amount decimal.Decimal
	// Price, when positive, turns the order into a limit order.
	Price decimal.Decimal
	// ClientOrderID is the optional idempotency tag.
	ClientOrderID string
	// Params are per-exchange extras.
	Params Params
	// Wait, when set, polls the fill state after submitting.
	Wait bool
	// MaxWait bounds the fill poll.
	MaxWait time.Duration
	// PollInterval is the delay between fill polls.
	PollInterval time.Duration
	// ReturnOnPartial stops the fill poll on the first observed fill.
	ReturnOnPartial bool
}

// Result is the outcome of one executed signal.
type Result struct {
	// Order is the submit response.
	Order domain.OrderResult
	// Fill is the last observed fill state, when waiting was requested.
	Fill *fill.Snapshot
}

// Dispatcher routes execution requests to one adapter.
type Dispatcher struct {
	adapter exchange.Adapter
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher for the given adapter.
func NewDispatcher(adapter exchange.Adapter, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		adapter: adapter,
		logger:  logger.With(zap.String("exchange", adapter.Name())),
	}
}

// Execute resolves the signal, shapes the order around the adapter's
// capabilities and submits it. Short-family signals are rejected on spot
// markets before any network call.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	intent, err := SignalIntent(req.Signal)
	if err != nil {
		return Result{}, err
	}

	caps := d.adapter.Capabilities()
	spot := d.adapter.MarketType() == domain.MarketSpot || caps.SpotOnly
	if spot && intent.PositionSide == domain.PositionShort {
		return Result{}, domain.NewValidationError(d.adapter.Name(),
			"spot market does not support short signals")
	}

	params := req.Params.withDefaults()
	order := domain.OrderRequest{
		Symbol:        req.Symbol,
		Side:          intent.Side,
		Quantity:      req.Amount,
		Price:         req.Price,
		ClientOrderID: req.ClientOrderID,
		MarginMode:    params.MarginMode,
		MarginCoin:    params.MarginCoin,
		ProductType:   params.ProductType,
	}
	if caps.ReduceOnly {
		order.ReduceOnly = intent.ReduceOnly
	}
	if caps.PositionSide {
		order.PositionSide = intent.PositionSide
	}

	d.logger.Info("executing signal",
		zap.String("signal", string(req.Signal)),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("amount", req.Amount.String()))

	var result domain.OrderResult
	if req.Price.IsPositive() {
		result, err = d.adapter.PlaceLimitOrder(ctx, order)
	} else {
		result, err = d.adapter.PlaceMarketOrder(ctx, order)
	}
	if err != nil {
		return Result{}, err
	}

	out := Result{Order: result}
	if !req.Wait {
		return out, nil
	}

	snap, err := d.adapter.WaitForFill(ctx, domain.OrderRef{
		OrderID:       result.OrderID,
		ClientOrderID: req.ClientOrderID,
	}, fill.Options{
		MaxWait:         req.MaxWait,
		PollInterval:    req.PollInterval,
		ReturnOnPartial: req.ReturnOnPartial,
	})
	if err != nil {
		return out, err
	}
	out.Fill = &snap
	out.Order.Filled = snap.Filled
	out.Order.AvgPrice = snap.AvgPrice
	return out, nil
}
