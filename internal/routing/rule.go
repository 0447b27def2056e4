package routing

import (
	"fmt"
)

// CachePolicy selects the Cache-Control directive attached to responses
// matched by a rule.
type CachePolicy int

const (
	// CacheNoStore disables caching. Used for API and HTML routes whose
	// content changes between requests.
	CacheNoStore CachePolicy = iota

	// CachePublic allows medium-lived caching of fixed-name public assets.
	CachePublic

	// CacheImmutable marks content-hashed static assets cacheable for a
	// year; their name changes whenever their content does.
	CacheImmutable
)

// CacheControl returns the Cache-Control header value for the policy.
func (p CachePolicy) CacheControl() string {
	switch p {
	case CachePublic:
		return "public, max-age=86400"
	case CacheImmutable:
		return "public, max-age=31536000, immutable"
	default:
		return "no-store"
	}
}

func (p CachePolicy) String() string {
	switch p {
	case CachePublic:
		return "public"
	case CacheImmutable:
		return "immutable"
	default:
		return "no-store"
	}
}

// ParseCachePolicy maps a configuration name to a CachePolicy.
func ParseCachePolicy(name string) (CachePolicy, error) {
	switch name {
	case "no-store", "":
		return CacheNoStore, nil
	case "public":
		return CachePublic, nil
	case "immutable":
		return CacheImmutable, nil
	default:
		return CacheNoStore, fmt.Errorf("unknown cache policy %q", name)
	}
}

// Rule maps a request path pattern to an upstream pool plus the response
// policy applied on the way back.
type Rule struct {
	Path    string
	Exact   bool
	Pool    string
	Cache   CachePolicy
	Headers map[string]string
}
