// Package metrics provides real-time metrics collection for the router.
//
// It uses a channel-based event pipeline to asynchronously collect metrics
// about request counts, response times with percentile calculations (P50,
// P95, P99), HTTP status code distribution and backend health, labelled by
// pool and backend. The same event stream feeds a prometheus registry for
// scraping and a JSON snapshot endpoint for quick inspection.
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Events are sent via buffered channels with
// non-blocking semantics to prevent performance degradation under load.
package metrics
