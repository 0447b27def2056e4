// Package httpserver wraps http.Server with address validation, graceful
// shutdown and optional TLS termination backed by a hot-reloading
// certificate pair.
package httpserver
