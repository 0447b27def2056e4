// Package routing implements the route rule table: path-to-pool matching
// with exact-then-longest-prefix semantics, per-rule cache policy, the
// fixed security header rewrite, and the atomically swappable snapshot
// that ties rules and pools together for concurrent readers.
package routing
