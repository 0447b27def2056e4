// Package runtime turns a validated configuration into the live routing
// snapshot: it builds pools, backends and the rule table, starts health
// checkers and performs the atomic swap that makes reload safe for
// concurrent request handling.
package runtime
