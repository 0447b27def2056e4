// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the router configuration structure:
// server listen settings (including optional TLS), upstream transport limits,
// pool membership, the route rule table, health checking, circuit breaker
// thresholds and logging. Loaded configurations are validated as a whole so a
// reload can be rejected without partially applying it.
package config
