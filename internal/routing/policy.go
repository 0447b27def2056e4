package routing

import (
	"net/http"
)

// securityHeaders are stamped on every proxied response regardless of the
// matched rule: anti-clickjacking, anti-sniffing and a conservative
// referrer policy.
var securityHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// strippedHeaders would disclose upstream software versions and are
// removed from responses.
var strippedHeaders = []string{
	"Server",
	"X-Powered-By",
}

// ApplyPolicy rewrites a response header set according to the matched
// rule: security headers and the rule's Cache-Control always overwrite
// whatever the upstream sent, then any rule-specific extra headers are
// applied. Pure mapping, no state.
func ApplyPolicy(h http.Header, rule Rule) {
	for name, value := range securityHeaders {
		h.Set(name, value)
	}

	for _, name := range strippedHeaders {
		h.Del(name)
	}

	h.Set("Cache-Control", rule.Cache.CacheControl())

	for name, value := range rule.Headers {
		h.Set(name, value)
	}
}
