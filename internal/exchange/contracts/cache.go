// Package contracts caches per-instrument contract metadata, most importantly
// the multiplier that converts a contract count into base-asset quantity.
package contracts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a fetched multiplier stays fresh.
const DefaultTTL = 300 * time.Second

// Metadata is the cached description of one derivative instrument.
type Metadata struct {
	// Multiplier is the base-asset quantity represented by one contract.
	Multiplier decimal.Decimal
	// FetchedAt is when the metadata was read from the exchange.
	FetchedAt time.Time
}

// FetchFunc reads contract metadata for an instrument from the exchange.
type FetchFunc func(ctx context.Context, instrument string) (Metadata, error)

// Cache is a TTL cache of contract metadata. Reads never block on a refresh:
// a stale entry triggers a re-fetch, and if that fails the stale value is
// served instead. Concurrent refreshes are idempotent, last writer wins.
type Cache struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]Metadata
}

// NewCache creates a cache backed by fetch. A non-positive ttl means
// DefaultTTL.
func NewCache(fetch FetchFunc, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fetch:   fetch,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Metadata),
	}
}

// Get returns the metadata for instrument, fetching on miss and refreshing
// on staleness. A failed refresh falls back to the stale entry; only a miss
// with a failed fetch is an error.
func (c *Cache) Get(ctx context.Context, instrument string) (Metadata, error) {
	c.mu.RLock()
	meta, ok := c.entries[instrument]
	c.mu.RUnlock()

	if ok && c.now().Sub(meta.FetchedAt) <= c.ttl {
		return meta, nil
	}

	fresh, err := c.fetch(ctx, instrument)
	if err != nil {
		if ok {
			return meta, nil
		}
		return Metadata{}, fmt.Errorf("fetch contract %s: %w", instrument, err)
	}
	if fresh.FetchedAt.IsZero() {
		fresh.FetchedAt = c.now()
	}

	c.mu.Lock()
	c.entries[instrument] = fresh
	c.mu.Unlock()

	return fresh, nil
}

// Multiplier returns the contract multiplier for instrument, defaulting to
// one when the exchange reports none.
func (c *Cache) Multiplier(ctx context.Context, instrument string) (decimal.Decimal, error) {
	meta, err := c.Get(ctx, instrument)
	if err != nil {
		return decimal.Zero, err
	}
	if !meta.Multiplier.IsPositive() {
		return decimal.NewFromInt(1), nil
	}
	return meta.Multiplier, nil
}

// BaseToContracts converts a base quantity into a whole contract count.
// The division is floored, never rounded.
func BaseToContracts(base, multiplier decimal.Decimal) int64 {
	if !base.IsPositive() || !multiplier.IsPositive() {
		return 0
	}
	return base.Div(multiplier).Floor().IntPart()
}

// ContractsToBase converts a contract count back into base quantity.
func ContractsToBase(contracts decimal.Decimal, multiplier decimal.Decimal) decimal.Decimal {
	if !multiplier.IsPositive() {
		return contracts
	}
	return contracts.Abs().Mul(multiplier)
}
