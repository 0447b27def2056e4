package strategy

import (
	"github.com/angeloszaimis/edge-router/internal/backend"
)

// leastConnStrategy picks the backend with the fewest in-flight requests.
// On a tie the earlier backend in the list wins, so selection is
// deterministic for an idle pool.
type leastConnStrategy struct {
}

func (l *leastConnStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	bestBackend := backends[0]
	bestConns := bestBackend.ActiveConnections()

	for _, b := range backends[1:] {
		activeConns := b.ActiveConnections()
		if activeConns < bestConns {
			bestConns = activeConns
			bestBackend = b
		}
	}

	return bestBackend
}

func NewLeastConnStrategy() Strategy {
	return &leastConnStrategy{}
}
