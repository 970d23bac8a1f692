// Command loadtest drives the search service with a mix of span query shapes
// and reports throughput, latency percentiles and cache effectiveness.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

type request struct {
	shape  string
	query  string
	sort   string
	filter string
}

var workload = []request{
	{shape: "term", query: "fox"},
	{shape: "term", query: "search"},
	{shape: "or", query: "dog OR fox OR shard"},
	{shape: "phrase", query: `"quick brown fox"`},
	{shape: "phrase", query: `"state of the art"~1`},
	{shape: "near", query: `"span field"~6`},
	{shape: "prefix", query: "sear*"},
	{shape: "not", query: "fox NOT lazy"},
	{shape: "sorted", query: "fox OR dog", sort: "year:desc"},
	{shape: "filter", query: "fox", filter: "title:foxes"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "hits requested per search")
	flag.Parse()

	fmt.Println("=== Span Search Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Workload:    %d requests per cycle\n\n", len(workload))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	s := run(ctx, *baseURL, *concurrency, *limit)
	s.report(os.Stdout, time.Since(start))
	if s.total == 0 {
		fmt.Println("\nWARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL string, concurrency, limit int) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		w := w
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				req := workload[i%len(workload)]
				elapsed, status, cacheHit := search(ctx, client, searchURL(baseURL, req, limit))
				if ctx.Err() != nil {
					return nil
				}
				s.record(req.shape, elapsed, status, cacheHit)
			}
			return nil
		})
	}
	_ = g.Wait()
	return s
}

func searchURL(baseURL string, req request, limit int) string {
	v := url.Values{}
	v.Set("q", req.query)
	v.Set("limit", fmt.Sprint(limit))
	if req.sort != "" {
		v.Set("sort", req.sort)
	}
	if req.filter != "" {
		v.Set("filter", req.filter)
	}
	return baseURL + "/api/v1/search?" + v.Encode()
}

func search(ctx context.Context, client *http.Client, rawURL string) (time.Duration, int, bool) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, false
	}
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return time.Since(start), 0, false
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return time.Since(start), resp.StatusCode, body.CacheHit
}
