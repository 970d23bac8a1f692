package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/span-search/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

func (s *memStore) CountByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data)), nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (t *recordingTracker) Track(e analytics.SearchEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return true
}

func newExecutor(t *testing.T) *executor.ShardedExecutor {
	t.Helper()
	router, err := shard.NewRouter(2)
	require.NoError(t, err)
	docs := map[string]string{
		"doc-a": "the quick fox jumps",
		"doc-b": "a quick brown fox",
		"doc-c": "lazy dog sleeps",
	}
	for id, body := range docs {
		_, _, err := router.AddDocument(id, map[string]string{"id": id, "body": body})
		require.NoError(t, err)
	}
	router.SealAll()
	shards := make([]executor.Shard, 0, router.NumShards())
	for _, e := range router.Shards() {
		shards = append(shards, e)
	}
	return executor.NewSharded(shards)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(logger.WithRequestID(req.Context(), "req-1"))
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func storedIDs(body map[string]any) []string {
	var ids []string
	for _, h := range body["hits"].([]any) {
		stored := h.(map[string]any)["stored"].(map[string]any)
		ids = append(ids, stored["id"].(string))
	}
	return ids
}

func TestSearchPhrase(t *testing.T) {
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100).Register(mux)

	rec, body := get(t, mux, "/api/v1/search?q=%22quick+fox%22")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["total_hits"])
	assert.Equal(t, []string{"doc-a"}, storedIDs(body))
	assert.Equal(t, "spanNear([body:quick, body:fox], 0)", body["parsed"])
	assert.Equal(t, "relevance", body["sort"])
	assert.Equal(t, false, body["cache_hit"])
}

func TestSearchSortedAndFiltered(t *testing.T) {
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100).Register(mux)

	rec, body := get(t, mux, "/api/v1/search?q=fox&sort=id:desc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"doc-b", "doc-a"}, storedIDs(body))
	assert.Equal(t, "id:string:desc", body["sort"])

	_, body = get(t, mux, "/api/v1/search?q=fox&filter=body:brown")
	assert.Equal(t, []string{"doc-b"}, storedIDs(body))

	_, body = get(t, mux, "/api/v1/search?q=fox&limit=1")
	assert.Equal(t, 2.0, body["total_hits"])
	assert.Len(t, body["hits"], 1)

	_, body = get(t, mux, "/api/v1/search?q=unicorn")
	assert.Equal(t, 0.0, body["total_hits"])
	assert.Empty(t, body["hits"])
}

func TestSearchRejectsBadRequests(t *testing.T) {
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100).Register(mux)

	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=fox&limit=0",
		"/api/v1/search?q=fox&limit=abc",
		"/api/v1/search?q=fox+AND+dog",
		"/api/v1/search?q=the",
		"/api/v1/search?q=fox&sort=id:bogus",
		"/api/v1/search?q=fox&filter=nocolon",
	} {
		rec, body := get(t, mux, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestSearchUsesCacheAndTracksEvents(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	qc := cache.New(&memStore{data: make(map[string]string)}, time.Minute, m)
	tracker := &recordingTracker{}
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100, WithCache(qc), WithTracker(tracker), WithMetrics(m)).Register(mux)

	_, first := get(t, mux, "/api/v1/search?q=fox")
	_, second := get(t, mux, "/api/v1/search?q=fox")
	_, _ = get(t, mux, "/api/v1/search?q=unicorn")
	assert.Equal(t, false, first["cache_hit"])
	assert.Equal(t, true, second["cache_hit"])
	assert.Equal(t, storedIDs(first), storedIDs(second))

	require.Len(t, tracker.events, 3)
	assert.Equal(t, analytics.EventSearch, tracker.events[0].Type)
	assert.Equal(t, analytics.EventCacheHit, tracker.events[1].Type)
	assert.Equal(t, analytics.EventZeroResult, tracker.events[2].Type)
	assert.Equal(t, "req-1", tracker.events[0].RequestID)
	assert.Equal(t, 2, tracker.events[0].ShardCount)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))

	rec, stats := get(t, mux, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, stats["hits"])
	assert.Equal(t, 2.0, stats["misses"])
	assert.Equal(t, 2.0, stats["keys"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"invalidated","removed":2}`, rec.Body.String())
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100).Register(mux)

	_, stats := get(t, mux, "/api/v1/cache/stats")
	assert.Equal(t, "disabled", stats["status"])

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type failingSearcher struct{ err error }

func (f failingSearcher) Execute(context.Context, query.SpanQuery, query.Filter, int, *merger.Sort) (*merger.TopDocs, error) {
	return nil, f.err
}

func (f failingSearcher) Document(int) (map[string]string, error) { return nil, nil }

func (f failingSearcher) NumShards() int { return 3 }

func TestSearchShardFailure(t *testing.T) {
	tracker := &recordingTracker{}
	mux := http.NewServeMux()
	err := &apperrors.ShardError{Shard: 1, Err: errors.New("disk on fire")}
	New(failingSearcher{err: err}, "body", 10, 100, WithTracker(tracker)).Register(mux)

	rec, body := get(t, mux, "/api/v1/search?q=fox")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Service Unavailable", body["error"])
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventShardFailure, tracker.events[0].Type)
	assert.True(t, strings.Contains(tracker.events[0].Error, "disk on fire"))

	mux = http.NewServeMux()
	New(failingSearcher{err: errors.New("boom")}, "body", 10, 100).Register(mux)
	rec, _ = get(t, mux, "/api/v1/search?q=fox")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fixedSummarizer struct{ since time.Time }

func (f *fixedSummarizer) Summary(_ context.Context, since time.Time, limit int) (analytics.Summary, error) {
	f.since = since
	return analytics.Summary{TotalSearches: 7, TopQueries: []analytics.QueryCount{{Query: "fox", Count: int64(limit)}}}, nil
}

func TestAnalyticsSummary(t *testing.T) {
	mux := http.NewServeMux()
	New(newExecutor(t), "body", 10, 100).Register(mux)
	rec, _ := get(t, mux, "/api/v1/analytics/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s := &fixedSummarizer{}
	mux = http.NewServeMux()
	New(newExecutor(t), "body", 10, 100, WithSummarizer(s)).Register(mux)

	rec, body := get(t, mux, "/api/v1/analytics/summary?window=30m&top=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7.0, body["total_searches"])
	assert.WithinDuration(t, time.Now().Add(-30*time.Minute), s.since, 5*time.Second)
	top := body["top_queries"].([]any)[0].(map[string]any)
	assert.Equal(t, 3.0, top["count"])

	rec, _ = get(t, mux, "/api/v1/analytics/summary?window=-1h")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
