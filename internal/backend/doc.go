// Package backend implements reverse proxy forwarding to a single upstream
// address. It provides connection tracking, response time monitoring and
// classification of upstream failures into Bad Gateway and Gateway Timeout.
package backend
