package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAdapterNotFound is returned when no adapter with the requested name is
// registered.
var ErrAdapterNotFound = errors.New("adapter not found")

// Registry holds the adapters built from configuration, keyed by exchange
// name. It is safe for concurrent use.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates an empty registry. If logger is nil, a no-op logger
// is used.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter. Registering the same exchange name twice is an
// error.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}

	r.adapters[name] = a
	r.logger.Info("adapter registered",
		zap.String("exchange", name),
		zap.String("market", string(a.MarketType())))
	return nil
}

// Get returns an adapter by exchange name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.adapters[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	return a, nil
}

// All returns all registered adapters. The returned slice is a copy and
// safe to iterate without locking.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	return adapters
}

// Names returns the names of all registered adapters.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// HealthCheck pings all registered adapters in parallel and returns a map
// of exchange name to reachability.
func (r *Registry) HealthCheck(ctx context.Context) map[string]bool {
	r.mu.RLock()
	adapters := make(map[string]Adapter, len(r.adapters))
	for name, a := range r.adapters {
		adapters[name] = a
	}
	r.mu.RUnlock()

	result := make(map[string]bool, len(adapters))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for name, a := range adapters {
		name, a := name, a
		g.Go(func() error {
			healthy := a.Ping(ctx)
			if !healthy {
				r.logger.Warn("adapter unreachable", zap.String("exchange", name))
			}
			mu.Lock()
			result[name] = healthy
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return result
}
