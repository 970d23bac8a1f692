// Package handler exposes the sharded searcher over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
)

// Searcher is the part of executor.ShardedExecutor the handler drives.
type Searcher interface {
	Execute(ctx context.Context, q query.SpanQuery, filter query.Filter, nDocs int, s *merger.Sort) (*merger.TopDocs, error)
	Document(global int) (map[string]string, error)
	NumShards() int
}

type Tracker interface {
	Track(event analytics.SearchEvent) bool
}

// Summarizer answers the analytics summary endpoint.
type Summarizer interface {
	Summary(ctx context.Context, since time.Time, limit int) (analytics.Summary, error)
}

type Handler struct {
	searcher     Searcher
	cache        *cache.QueryCache
	tracker      Tracker
	summarizer   Summarizer
	metrics      *metrics.Metrics
	defaultField string
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option { return func(h *Handler) { h.cache = c } }

func WithTracker(t Tracker) Option { return func(h *Handler) { h.tracker = t } }

func WithSummarizer(s Summarizer) Option { return func(h *Handler) { h.summarizer = s } }

func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func New(s Searcher, defaultField string, defaultLimit, maxResults int, opts ...Option) *Handler {
	h := &Handler{
		searcher:     s,
		defaultField: defaultField,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics/summary", h.AnalyticsSummary)
}

type hitResponse struct {
	Doc    int               `json:"doc"`
	Score  float64           `json:"score"`
	Fields []any             `json:"fields,omitempty"`
	Stored map[string]string `json:"stored"`
}

type searchResponse struct {
	Query     string        `json:"query"`
	Parsed    string        `json:"parsed"`
	Sort      string        `json:"sort"`
	TotalHits int           `json:"total_hits"`
	MaxScore  float64       `json:"max_score"`
	Hits      []hitResponse `json:"hits"`
	LatencyMs int64         `json:"latency_ms"`
	CacheHit  bool          `json:"cache_hit"`
}

// Search handles GET /api/v1/search?q=&limit=&sort=&filter=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	raw := params.Get("q")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := h.defaultLimit
	if s := params.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, h.maxResults)
	}

	q, err := parser.Parse(raw, h.defaultField)
	if err != nil {
		h.fail(w, r, raw, start, err)
		return
	}
	sort, err := parser.ParseSort(params.Get("sort"))
	if err != nil {
		h.fail(w, r, raw, start, err)
		return
	}
	filter, err := parser.ParseFilter(params.Get("filter"))
	if err != nil {
		h.fail(w, r, raw, start, err)
		return
	}

	var td *merger.TopDocs
	cacheHit := false
	compute := func() (*merger.TopDocs, error) {
		return h.searcher.Execute(ctx, q, filter, limit, sort)
	}
	if h.cache != nil {
		td, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key{Query: q, Limit: limit, Sort: sort, Filter: filter}, compute)
	} else {
		td, err = compute()
	}
	if err != nil {
		h.fail(w, r, raw, start, err)
		return
	}

	hits := make([]hitResponse, 0, len(td.Hits))
	for _, hit := range td.Hits {
		stored, err := h.searcher.Document(hit.Doc)
		if err != nil {
			log.Warn("stored fields unavailable", "doc", hit.Doc, "error", err)
		}
		hits = append(hits, hitResponse{Doc: hit.Doc, Score: hit.Score, Fields: hit.Fields, Stored: stored})
	}
	sortDesc := sort.String()
	if sort != nil && len(td.SortFields) > 0 {
		sortDesc = merger.NewSort(td.SortFields...).String()
	}
	latency := time.Since(start)
	resp := searchResponse{
		Query:     raw,
		Parsed:    q.String(),
		Sort:      sortDesc,
		TotalHits: td.TotalHits,
		MaxScore:  td.MaxScore,
		Hits:      hits,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
	}

	log.Info("search completed",
		"query", raw,
		"total_hits", td.TotalHits,
		"returned", len(hits),
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.observe(td.TotalHits, len(hits), cacheHit, latency, nil)
	h.track(ctx, analytics.SearchEvent{
		Type:       analytics.Classify(td.TotalHits, cacheHit, nil),
		Query:      raw,
		TotalHits:  td.TotalHits,
		Returned:   len(hits),
		MaxScore:   td.MaxScore,
		LatencyMs:  resp.LatencyMs,
		CacheHit:   cacheHit,
		ShardCount: h.searcher.NumShards(),
	})
	h.writeJSON(w, http.StatusOK, resp)
}

// fail maps err to a status code. Only shard failures are reported to
// analytics; malformed requests are not searches.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, raw string, start time.Time, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("search failed", "query", raw, "status", status, "error", err)
		latency := time.Since(start)
		h.observe(0, 0, false, latency, err)
		var shardErr *apperrors.ShardError
		if errors.As(err, &shardErr) {
			h.track(r.Context(), analytics.SearchEvent{
				Type:       analytics.EventShardFailure,
				Query:      raw,
				LatencyMs:  latency.Milliseconds(),
				ShardCount: h.searcher.NumShards(),
				Error:      err.Error(),
			})
		}
		h.writeError(w, status, http.StatusText(status))
		return
	}
	log.Info("search rejected", "query", raw, "status", status, "error", err)
	h.writeError(w, status, err.Error())
}

func (h *Handler) observe(totalHits, returned int, cacheHit bool, latency time.Duration, err error) {
	if h.metrics == nil {
		return
	}
	result := "hit"
	switch {
	case err != nil:
		result = "error"
	case totalHits == 0:
		result = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(result).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	if err == nil {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent) {
	if h.tracker == nil {
		return
	}
	event.RequestID = logger.RequestID(ctx)
	event.Timestamp = time.Now().UTC()
	h.tracker.Track(event)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.Error("reading cache stats failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache stats unavailable")
		return
	}
	var hitRate float64
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "enabled",
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"keys":     stats.Keys,
		"hit_rate": hitRate,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	removed, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "removed": removed})
}

// AnalyticsSummary handles GET /api/v1/analytics/summary?window=1h&top=10.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if h.summarizer == nil {
		h.writeError(w, http.StatusNotFound, "analytics summary requires the postgres sink")
		return
	}
	window := time.Hour
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			h.writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	top := 10
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = min(n, 100)
	}
	summary, err := h.summarizer.Summary(r.Context(), time.Now().Add(-window), top)
	if err != nil {
		logger.FromContext(r.Context()).Error("analytics summary failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "analytics summary unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
