package strategy

import (
	"github.com/angeloszaimis/edge-router/internal/backend"
)

// Strategy selects one backend out of a list of healthy candidates.
// Implementations must tolerate an empty list and return nil.
type Strategy interface {
	SelectBackend(backends []*backend.Backend) *backend.Backend
}

// KeyedStrategy is implemented by strategies that select based on a
// per-request key, such as the client address for consistent hashing.
type KeyedStrategy interface {
	SetKey(key string)
}
