// Package strategy defines the backend selection interface and implements
// the available algorithms:
//
//   - Least Connections: routes to the backend with fewest in-flight requests
//     (the default; ties break in favor of the earlier backend)
//   - Round Robin: sequential distribution across backends
//   - Weighted Round Robin: distribution proportional to backend weights
//   - Random: random backend selection
//   - Least Response Time: routes based on exponentially weighted moving
//     average (EWMA) response times
//   - Consistent Hash: stable key-to-backend mapping for session affinity
//
// Strategies only ever see the healthy members of a pool; health filtering
// happens in the pool before selection.
package strategy
