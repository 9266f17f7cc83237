// Package exchange provides a unified order-lifecycle contract over
// cryptocurrency exchanges. It defines the Adapter interface implemented by
// the per-exchange packages, a factory that constructs the right adapter for
// an (exchange, market type) pair, and a registry for holding several
// adapters at once.
package exchange

import (
	"context"
	"encoding/json"

	"tradebridge/internal/domain"
	"tradebridge/internal/exchange/fill"
)

// Adapter is one exchange's implementation of the uniform order-lifecycle
// contract. One adapter instance covers one (exchange, market type) pair and
// owns its credentials for its lifetime. Implementations are safe for
// concurrent use; the only shared mutable state is the contract-metadata
// cache, which tolerates concurrent reads and idempotent refreshes.
type Adapter interface {
	// Name returns the exchange identifier (e.g., "kraken", "kucoin").
	Name() string

	// MarketType returns the market this adapter trades on.
	MarketType() domain.MarketType

	// Capabilities returns the variant tags the dispatcher keys on.
	Capabilities() domain.Capabilities

	// PlaceMarketOrder submits a market order. Side and quantity are
	// validated before any network call. Exactly one network call is made;
	// a failed submit surfaces as an error and is never resubmitted.
	PlaceMarketOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// PlaceLimitOrder submits a limit order. Additionally validates that the
	// price is positive.
	PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// CancelOrder cancels an order by exchange id or, where supported, client
	// order id. Returns the raw confirmation payload.
	CancelOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error)

	// GetOrder fetches the native order record.
	GetOrder(ctx context.Context, ref domain.OrderRef) (json.RawMessage, error)

	// WaitForFill polls the order until it fills, reaches a terminal status,
	// or opts.MaxWait elapses. Transient fetch failures do not abort the
	// poll loop.
	WaitForFill(ctx context.Context, ref domain.OrderRef, opts fill.Options) (fill.Snapshot, error)

	// Ping probes exchange connectivity through a public endpoint.
	Ping(ctx context.Context) bool
}
