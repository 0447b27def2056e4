package strategy

import (
	"fmt"
)

// New builds a strategy from its configuration name. virtualNodes is only
// used by consistent-hash.
func New(kind string, virtualNodes int) (Strategy, error) {
	switch kind {
	case "least-conn", "":
		return NewLeastConnStrategy(), nil
	case "round-robin":
		return NewRoundRobinStrategy(), nil
	case "weighted-round-robin":
		return NewWeightedRoundRobinStrategy(), nil
	case "random":
		return NewRandomStrategy(), nil
	case "least-response":
		return NewLeastResponseStrategy(), nil
	case "consistent-hash":
		return NewConsistentHashStrategy(virtualNodes), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}
