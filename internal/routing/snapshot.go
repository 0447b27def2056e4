package routing

import (
	"sync/atomic"

	"github.com/angeloszaimis/edge-router/internal/pool"
)

// Snapshot is one immutable generation of routing state: the rule table,
// the upstream pools it refers to and the request limits in force. A
// reload builds a new Snapshot and swaps it in atomically; requests that
// already loaded the previous one finish against it.
type Snapshot struct {
	Table        *Table
	Pools        map[string]*pool.Pool
	HealthPath   string
	MaxBodyBytes int64
}

// Pool looks up a pool by the name a rule refers to.
func (s *Snapshot) Pool(name string) (*pool.Pool, bool) {
	p, ok := s.Pools[name]
	return p, ok
}

// Holder publishes the active snapshot to concurrent readers. A nil
// snapshot means configuration has not been loaded yet; callers must
// answer 503 rather than crash.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	return &Holder{}
}

// Load returns the active snapshot, or nil before the first Swap.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap atomically replaces the active snapshot and returns the previous
// one (nil on first use).
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}
