// Upstream is a simple test HTTP server used as a pool member when
// exercising the router locally. It answers /health for the health
// checker, echoes requests under /api/, and serves fake static assets
// under /_next/static/.
//
// Usage:
//
//	go run ./scripts/upstream -port 3000 -name frontend-1
//
// Every response carries an X-Upstream header naming the instance, so
// distribution across a pool is visible from the client side.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type echoResponse struct {
	Upstream string            `json:"upstream"`
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body,omitempty"`
}

func main() {
	port := flag.Int("port", 3000, "port to listen on")
	name := flag.String("name", "upstream-1", "instance name reported in responses")
	delay := flag.Duration("delay", 0, "artificial latency added to every response")
	flag.Parse()

	mux := http.NewServeMux()

	// health endpoint used by the router's health checker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if *delay > 0 {
			time.Sleep(*delay)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		log.Printf("request: method=%s path=%s from=%s bytes=%d", r.Method, r.URL.Path, r.RemoteAddr, len(body))

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		resp := echoResponse{
			Upstream: *name,
			Method:   r.Method,
			Path:     r.URL.Path,
			Headers:  headers,
			Body:     string(body),
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", *name)
		w.Write(b)
	})

	mux.HandleFunc("/_next/static/", func(w http.ResponseWriter, r *http.Request) {
		if *delay > 0 {
			time.Sleep(*delay)
		}
		w.Header().Set("Content-Type", contentTypeFor(r.URL.Path))
		w.Header().Set("X-Upstream", *name)
		fmt.Fprintf(w, "/* asset %s served by %s */\n", r.URL.Path, *name)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if *delay > 0 {
			time.Sleep(*delay)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Upstream", *name)
		fmt.Fprintf(w, "<html><body>page %s from %s</body></html>\n", r.URL.Path, *name)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting upstream %s on %s", *name, addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".css"):
		return "text/css"
	case strings.HasSuffix(path, ".js"):
		return "application/javascript"
	default:
		return "application/octet-stream"
	}
}
