package strategy

import (
	"math/rand"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

type randomStrategy struct{}

func (r *randomStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	index := rand.Intn(len(backends))
	return backends[index]
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
