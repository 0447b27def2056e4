// Package handler implements the main HTTP request handler for the router.
// It coordinates route matching, pool selection, body size limits, the
// health endpoint and response header policy.
package handler
