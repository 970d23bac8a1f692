package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// stats accumulates per-request outcomes from every worker.
type stats struct {
	mu          sync.Mutex
	total       int64
	failed      int64
	cacheHits   int64
	latencies   []time.Duration
	statusCodes map[int]int64
	byShape     map[string][]time.Duration
}

func newStats() *stats {
	return &stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
		byShape:     make(map[string][]time.Duration),
	}
}

// record stores one request. status 0 means a transport error.
func (s *stats) record(shape string, d time.Duration, status int, cacheHit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if status < 200 || status >= 300 {
		s.failed++
	}
	if status == 0 {
		return
	}
	if cacheHit {
		s.cacheHits++
	}
	s.statusCodes[status]++
	s.latencies = append(s.latencies, d)
	s.byShape[shape] = append(s.byShape[shape], d)
}

func (s *stats) report(w io.Writer, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.total)
	fmt.Fprintf(w, "Failed:          %d\n", s.failed)
	if s.total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.failed)/float64(s.total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(s.total)/elapsed.Seconds())
	}
	if answered := int64(len(s.latencies)); answered > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(s.cacheHits)/float64(answered)*100)
	}

	if len(s.latencies) > 0 {
		sorted := sortedCopy(s.latencies)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", sorted[0])
		fmt.Fprintf(w, "Avg:    %s\n", mean(sorted))
		fmt.Fprintf(w, "P50:    %s\n", percentile(sorted, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(sorted, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(sorted, 99))
		fmt.Fprintf(w, "Max:    %s\n", sorted[len(sorted)-1])
		fmt.Fprintf(w, "StdDev: %s\n", stddev(sorted))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== P95 by query shape ===")
		shapes := make([]string, 0, len(s.byShape))
		for shape := range s.byShape {
			shapes = append(shapes, shape)
		}
		sort.Strings(shapes)
		for _, shape := range shapes {
			fmt.Fprintf(w, "  %-8s %s\n", shape, percentile(sortedCopy(s.byShape[shape]), 95))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code])
	}
}

func sortedCopy(in []time.Duration) []time.Duration {
	out := append([]time.Duration(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mean(ds []time.Duration) time.Duration {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func stddev(ds []time.Duration) time.Duration {
	avg := float64(mean(ds))
	var sq float64
	for _, d := range ds {
		diff := float64(d) - avg
		sq += diff * diff
	}
	return time.Duration(math.Sqrt(sq / float64(len(ds))))
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
