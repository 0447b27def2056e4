package handler

import (
	"net/http"

	"github.com/angeloszaimis/edge-router/internal/routing"
)

// policyWriter applies the matched rule's header policy at the moment the
// response status is committed, so rewrites deterministically overwrite
// whatever the upstream sent. It also records the status code for metrics
// and circuit breaker accounting.
type policyWriter struct {
	http.ResponseWriter
	rule        routing.Rule
	statusCode  int
	wroteHeader bool
}

func (pw *policyWriter) WriteHeader(code int) {
	if pw.wroteHeader {
		return
	}
	pw.wroteHeader = true
	pw.statusCode = code

	routing.ApplyPolicy(pw.Header(), pw.rule)
	pw.ResponseWriter.WriteHeader(code)
}

func (pw *policyWriter) Write(p []byte) (int, error) {
	if !pw.wroteHeader {
		pw.WriteHeader(http.StatusOK)
	}
	return pw.ResponseWriter.Write(p)
}

// Flush keeps streaming responses working through the wrapper.
func (pw *policyWriter) Flush() {
	if f, ok := pw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
