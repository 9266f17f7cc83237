// Package domain contains core business entities and value objects.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order (buy or sell).
type Side string

const (
	// SideBuy indicates a buy order.
	SideBuy Side = "buy"
	// SideSell indicates a sell order.
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two supported values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// PositionSide tags an order with the position it acts on, for exchanges
// that track long and short positions independently on the same instrument.
type PositionSide string

const (
	// PositionLong targets the long leg of a position.
	PositionLong PositionSide = "long"
	// PositionShort targets the short leg of a position.
	PositionShort PositionSide = "short"
)

// OrderType represents the type of order execution.
type OrderType string

const (
	// OrderTypeLimit is a limit order that executes at the specified price or better.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeMarket is a market order that executes immediately at the best available price.
	OrderTypeMarket OrderType = "market"
)

// MarketType identifies which market an adapter trades on.
type MarketType string

const (
	// MarketSpot is the spot market.
	MarketSpot MarketType = "spot"
	// MarketSwap is the perpetual/derivatives market.
	MarketSwap MarketType = "swap"
)

// NormalizeMarketType canonicalizes user-supplied market type strings.
// "futures", "future", "perp" and "perpetual" all normalize to "swap";
// an empty string defaults to "swap".
func NormalizeMarketType(s string) (MarketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "swap", "futures", "future", "perp", "perpetual":
		return MarketSwap, nil
	case "spot":
		return MarketSpot, nil
	default:
		return "", fmt.Errorf("unknown market type: %q", s)
	}
}

// OrderRequest describes an order to be placed on an exchange.
// Quantity is always expressed in base-asset units; adapters convert to
// the exchange-native size representation (contracts, signed amounts, funds).
type OrderRequest struct {
	// Symbol is the trading pair in "BASE/QUOTE" format (e.g., "BTC/USDT").
	Symbol string
	// Side indicates whether this is a buy or sell order.
	Side Side
	// Quantity is the amount of base asset to buy or sell. Must be positive.
	Quantity decimal.Decimal
	// Price is the limit price. Required for limit orders, ignored for market orders.
	Price decimal.Decimal
	// ReduceOnly restricts the order to decreasing an existing position.
	// Only meaningful on derivatives markets.
	ReduceOnly bool
	// PostOnly rejects the order if it would take liquidity. Limit orders only.
	PostOnly bool
	// PositionSide is the long/short tag for exchanges that require it.
	PositionSide PositionSide
	// ClientOrderID is an optional caller-supplied token. Adapters sanitize it
	// to the exchange's charset and length constraints.
	ClientOrderID string
	// QuoteSize treats Quantity as quote-asset funds instead of base units.
	// Only honored by spot market buys on exchanges that support it.
	QuoteSize bool
	// MarginMode is the cross/isolated margin setting for derivatives
	// exchanges that take it per order.
	MarginMode string
	// MarginCoin is the settlement currency for derivatives exchanges that
	// take it per order.
	MarginCoin string
	// ProductType names the derivatives product family for exchanges that
	// take it per order.
	ProductType string
}

// Validate checks the request parameters an exchange would reject. It runs
// before any network call; limit requires a positive price.
func (r OrderRequest) Validate(exchange string, orderType OrderType) error {
	if !r.Side.Valid() {
		return NewValidationError(exchange, "invalid side: %q", r.Side)
	}
	if !r.Quantity.IsPositive() {
		return NewValidationError(exchange, "quantity must be positive, got %s", r.Quantity)
	}
	if orderType == OrderTypeLimit && !r.Price.IsPositive() {
		return NewValidationError(exchange, "limit price must be positive, got %s", r.Price)
	}
	return nil
}

// OrderRef identifies an existing order by exchange id and/or client id.
// At least one of the two must be set.
type OrderRef struct {
	// OrderID is the exchange-assigned order id.
	OrderID string
	// ClientOrderID is the caller-supplied id echoed by the exchange.
	ClientOrderID string
}

// Empty reports whether the reference carries no identifier at all.
func (r OrderRef) Empty() bool {
	return r.OrderID == "" && r.ClientOrderID == ""
}

// OrderResult is the outcome of a write operation against an exchange.
type OrderResult struct {
	// Exchange is the exchange identifier.
	Exchange string
	// OrderID is the exchange-assigned order id. May be empty if the exchange
	// only echoes the client order id.
	OrderID string
	// Filled is the executed base quantity, zero if not yet known.
	Filled decimal.Decimal
	// AvgPrice is the average fill price, zero if not yet known.
	AvgPrice decimal.Decimal
	// Raw is the unparsed exchange response, retained for audit.
	Raw json.RawMessage
}

// Capabilities declares what an adapter variant supports. The execution
// dispatcher selects behavior from these tags instead of inspecting
// concrete adapter types.
type Capabilities struct {
	// SpotOnly marks adapters with no derivatives variant at all.
	SpotOnly bool
	// PositionSide is true when orders carry a long/short position tag.
	PositionSide bool
	// ContractSized is true when order size is an integer contract count
	// derived from contract metadata.
	ContractSized bool
	// SignedAmount is true when the exchange encodes side in the sign of the
	// amount (positive buy, negative sell).
	SignedAmount bool
	// ReduceOnly is true when the exchange accepts a reduce-only flag.
	ReduceOnly bool
	// CancelByClientID is true when orders can be cancelled by client order id.
	CancelByClientID bool
	// QueryByClientID is true when orders can be queried by client order id.
	QueryByClientID bool
}
