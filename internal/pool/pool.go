package pool

import (
	"errors"
	"sync"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

// ErrNoAvailableBackend is returned when every member of a pool is
// unhealthy or gated out of selection.
var ErrNoAvailableBackend = errors.New("no available backend in pool")

// Pool is a named set of interchangeable backend addresses serving one
// logical service. Membership is fixed for the lifetime of the pool; a
// configuration reload builds a fresh Pool rather than mutating this one.
type Pool struct {
	name     string
	strategy strategy.Strategy
	backends []*backend.Backend
	mutex    sync.Mutex
}

func New(name string, strat strategy.Strategy, backends []*backend.Backend) *Pool {
	return &Pool{
		name:     name,
		strategy: strat,
		backends: backends,
	}
}

// Name returns the pool identifier used in route rules.
func (p *Pool) Name() string {
	return p.name
}

// Backends returns the pool membership in configuration order.
func (p *Pool) Backends() []*backend.Backend {
	return p.backends
}

// GetAndReserve selects a live backend using the pool's strategy and
// reserves a connection slot on it. The gate, when non-nil, can exclude
// additional backends (e.g. ones with an open circuit breaker). key feeds
// keyed strategies such as consistent hashing and is ignored by the rest.
//
// The caller must DecrementConn on the returned backend when done.
func (p *Pool) GetAndReserve(key string, gate func(*backend.Backend) bool) (*backend.Backend, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	candidates := p.filterAvailable(gate)
	if len(candidates) == 0 {
		return nil, ErrNoAvailableBackend
	}

	if ks, ok := p.strategy.(strategy.KeyedStrategy); ok {
		ks.SetKey(key)
	}

	chosen := p.strategy.SelectBackend(candidates)
	if chosen == nil {
		return nil, ErrNoAvailableBackend
	}

	chosen.IncrementConn()
	return chosen, nil
}

func (p *Pool) filterAvailable(gate func(*backend.Backend) bool) []*backend.Backend {
	available := make([]*backend.Backend, 0, len(p.backends))

	for _, b := range p.backends {
		if !b.IsHealthy() {
			continue
		}
		if gate != nil && !gate(b) {
			continue
		}
		available = append(available, b)
	}

	return available
}
