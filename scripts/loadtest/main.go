// Loadtest is a concurrent HTTP load testing tool that measures throughput,
// latency percentiles, and upstream distribution when driving the router.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080/api/users -concurrency 10 -requests 1000
//	go run ./scripts/loadtest -url http://localhost:8080/ -concurrency 50 -requests 5000 -out summary.json
//
// Upstream distribution is read from the X-Upstream header set by the
// test upstream servers (see scripts/upstream). Requests carry rotating
// X-Forwarded-For addresses so consistent-hash pools can be exercised.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type upstreamStats struct {
	Count     int32           `json:"count"`
	Success   int32           `json:"success"`
	Failure   int32           `json:"failure"`
	Latencies []time.Duration `json:"-"`
}

type summary struct {
	Target      string                    `json:"target"`
	Requests    int                       `json:"requests"`
	Concurrency int                       `json:"concurrency"`
	Success     int32                     `json:"success"`
	Failure     int32                     `json:"failure"`
	DurationMS  float64                   `json:"duration_ms"`
	Throughput  float64                   `json:"throughput_rps"`
	StatusCodes map[int]int32             `json:"status_codes"`
	Percentiles map[string]float64        `json:"latency_percentiles_ms"`
	Upstreams   map[string]*upstreamStats `json:"upstreams"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", "GET", "HTTP method")
		body        = flag.String("body", "", "Request body")
		contentType = flag.String("content-type", "application/json", "Content-Type header")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, success, failure int32

	stats := make(map[string]*upstreamStats)
	var statsMu sync.Mutex

	var allLatencies []time.Duration
	var latMu sync.Mutex

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				start := time.Now()

				req, err := http.NewRequest(*method, *url, bytes.NewBufferString(*body))
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				req.Header.Set("Content-Type", *contentType)

				// rotate fake source addresses for keyed strategies
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.168.1.%d", (idx%50)+1))

				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				allLatencies = append(allLatencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
				if ok {
					atomic.AddInt32(&success, 1)
				} else {
					atomic.AddInt32(&failure, 1)
				}

				upstream := resp.Header.Get("X-Upstream")
				if upstream == "" {
					upstream = "(unknown)"
				}

				statsMu.Lock()
				us, found := stats[upstream]
				if !found {
					us = &upstreamStats{}
					stats[upstream] = us
				}
				us.Count++
				if ok {
					us.Success++
				} else {
					us.Failure++
				}
				us.Latencies = append(us.Latencies, dur)
				statsMu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d upstream=%s status=%d dur=%v\n", workerID, idx, upstream, resp.StatusCode, dur)
				}

				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)
	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *url)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", total, success, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes:")
	var scKeys []int
	for k := range statusCodes {
		scKeys = append(scKeys, k)
	}
	sort.Ints(scKeys)
	for _, k := range scKeys {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	percentiles := map[string]float64{
		"p50": percentileMS(allLatencies, 0.50),
		"p90": percentileMS(allLatencies, 0.90),
		"p95": percentileMS(allLatencies, 0.95),
		"p99": percentileMS(allLatencies, 0.99),
	}
	fmt.Println("\nLatency percentiles (ms):")
	for _, p := range []string{"p50", "p90", "p95", "p99"} {
		fmt.Printf("  %s -> %.3f\n", p, percentiles[p])
	}

	fmt.Println("\nUpstream distribution:")
	var names []string
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		us := stats[name]
		fmt.Printf("  %s -> count=%d success=%d failure=%d p95=%.3fms\n",
			name, us.Count, us.Success, us.Failure, percentileMS(us.Latencies, 0.95))
	}

	if *outJSON != "" {
		s := summary{
			Target:      *url,
			Requests:    *requests,
			Concurrency: *concurrency,
			Success:     success,
			Failure:     failure,
			DurationMS:  float64(totalDuration.Microseconds()) / 1000.0,
			Throughput:  throughput,
			StatusCodes: statusCodes,
			Percentiles: percentiles,
			Upstreams:   stats,
		}
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal summary: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outJSON, b, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nwrote summary to %s\n", *outJSON)
	}
}

// percentileMS returns the given percentile of the latency sample in
// milliseconds, or 0 for an empty sample.
func percentileMS(latencies []time.Duration, q float64) float64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(q * float64(len(sorted)-1))
	return float64(sorted[idx].Microseconds()) / 1000.0
}
