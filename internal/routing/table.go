package routing

import (
	"sort"
	"strings"
)

// Table is an immutable, ordered route rule set. Matching is exact-first,
// then longest-prefix-wins, then the default rule when one is configured.
// A reload swaps the whole table; nothing here mutates after NewTable.
type Table struct {
	exact    map[string]Rule
	prefixes []Rule
	fallback *Rule
}

// NewTable builds a matcher from the configured rules. defaultPool, when
// non-empty, becomes a catch-all rule serving that pool with no-store
// caching, so unmatched paths never turn into hard errors.
func NewTable(rules []Rule, defaultPool string) *Table {
	t := &Table{
		exact: make(map[string]Rule),
	}

	for _, r := range rules {
		if r.Exact {
			t.exact[r.Path] = r
			continue
		}
		t.prefixes = append(t.prefixes, r)
	}

	// Longest prefix first; configuration order breaks length ties.
	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].Path) > len(t.prefixes[j].Path)
	})

	if defaultPool != "" {
		t.fallback = &Rule{Path: "/", Pool: defaultPool, Cache: CacheNoStore}
	}

	return t
}

// Match resolves a request path to a rule. The boolean is false only when
// no rule matches and no default pool exists, in which case the caller
// must fail closed.
func (t *Table) Match(path string) (Rule, bool) {
	if r, ok := t.exact[path]; ok {
		return r, true
	}

	for _, r := range t.prefixes {
		if strings.HasPrefix(path, r.Path) {
			return r, true
		}
	}

	if t.fallback != nil {
		return *t.fallback, true
	}

	return Rule{}, false
}

// Len returns the number of explicit rules in the table.
func (t *Table) Len() int {
	return len(t.exact) + len(t.prefixes)
}
