// Package executor runs a search over every shard in parallel and merges the
// per-shard pages into one global result.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/tracing"
)

// Shard is one independently searchable partition. Document ids it reports
// are local, from 0 to MaxDoc()-1.
type Shard interface {
	Search(ctx context.Context, w *ranker.Weight, filter query.Filter, nDocs int, s *merger.Sort) (*merger.TopDocs, error)
	DocFreq(field, text string) (int, error)
	Terms(field, prefix string) ([]string, error)
	MaxDoc() int
	AvgFieldLength(field string) float64
	StoredFields(doc int) (map[string]string, error)
	// SortType infers a field's sort type from the shard's stored values;
	// SortAuto means the shard stores none.
	SortType(field string) merger.SortType
}

// ShardedExecutor presents a fixed list of shards as one index. Global
// document ids are local ids offset by starts[i], the number of documents
// in the shards before i.
type ShardedExecutor struct {
	shards  []Shard
	starts  []int
	maxDoc  int
	timeout time.Duration
	metrics *metrics.Metrics
	tracing bool
	logger  *slog.Logger
}

type Option func(*ShardedExecutor)

// WithShardTimeout bounds each shard task; zero means no limit.
func WithShardTimeout(d time.Duration) Option {
	return func(se *ShardedExecutor) { se.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(se *ShardedExecutor) { se.metrics = m }
}

// WithTracing logs the span tree of every search.
func WithTracing(enabled bool) Option {
	return func(se *ShardedExecutor) { se.tracing = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(se *ShardedExecutor) { se.logger = l }
}

// NewSharded computes the global id offsets once; shards must not grow
// afterwards.
func NewSharded(shards []Shard, opts ...Option) *ShardedExecutor {
	se := &ShardedExecutor{
		shards: append([]Shard(nil), shards...),
		starts: make([]int, len(shards)),
		logger: slog.Default().With("component", "sharded-executor"),
	}
	for _, opt := range opts {
		opt(se)
	}
	for i, s := range se.shards {
		se.starts[i] = se.maxDoc
		se.maxDoc += s.MaxDoc()
	}
	if se.metrics != nil {
		se.metrics.ActiveShards.Set(float64(len(se.shards)))
		for i, s := range se.shards {
			se.metrics.ShardDocCount.WithLabelValues(strconv.Itoa(i)).Set(float64(s.MaxDoc()))
		}
	}
	se.logger.Info("sharded executor ready", "shards", len(se.shards), "max_doc", se.maxDoc)
	return se
}

func (se *ShardedExecutor) NumShards() int { return len(se.shards) }

// Starts returns the global id of each shard's first document.
func (se *ShardedExecutor) Starts() []int {
	return append([]int(nil), se.starts...)
}

// Search fans w out to every shard. Pages flow over a channel to a single
// merging goroutine. The first failing shard cancels the others, and its
// error is returned once every task has finished.
//
// SortAuto fields are resolved once across all shards before fanning out,
// so every page reports the same types whichever one reaches the merger
// first.
func (se *ShardedExecutor) Search(ctx context.Context, w *ranker.Weight, filter query.Filter, nDocs int, s *merger.Sort) (*merger.TopDocs, error) {
	ctx, root := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	root.SetAttr("query", w.Query().String())
	shardSort := se.ResolveSort(s)
	if shardSort != nil {
		root.SetAttr("sort", shardSort.String())
	}

	g, gctx := errgroup.WithContext(ctx)
	pages := make(chan *merger.TopDocs, len(se.shards))
	m := merger.New(nDocs, s)
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		for page := range pages {
			m.Add(page)
		}
	}()

	for i, shard := range se.shards {
		t := &task{
			index:   i,
			shard:   shard,
			start:   se.starts[i],
			weight:  w,
			filter:  filter,
			nDocs:   nDocs,
			sort:    shardSort,
			timeout: se.timeout,
			metrics: se.metrics,
		}
		g.Go(func() error {
			page, err := t.run(gctx)
			if err != nil {
				return err
			}
			pages <- page
			return nil
		})
	}

	err := g.Wait()
	close(pages)
	<-merged

	root.End(err)
	if se.tracing {
		root.Log(logger.FromContext(ctx))
	}
	if err != nil {
		logger.FromContext(ctx).Warn("sharded search failed",
			"query", w.Query().String(),
			"error", err,
		)
		return nil, err
	}
	td := m.Result()
	se.logger.Debug("sharded search executed",
		"query", w.Query().String(),
		"shards_queried", len(se.shards),
		"total_hits", td.TotalHits,
		"returned", len(td.Hits),
	)
	return td, nil
}

// ResolveSort replaces SortAuto fields with the widest type any shard
// inferred: int, then float, then string. A field no shard stores sorts as
// a string.
func (se *ShardedExecutor) ResolveSort(s *merger.Sort) *merger.Sort {
	if s == nil || !s.NeedsResolve() {
		return s
	}
	concrete := make([]merger.SortField, len(s.Fields))
	for i, f := range s.Fields {
		concrete[i] = f
		if f.Type != merger.SortAuto {
			continue
		}
		t := merger.SortAuto
		for _, shard := range se.shards {
			t = merger.Widen(t, shard.SortType(f.Field))
		}
		concrete[i].Type = t
	}
	return s.Resolve(concrete)
}

// CreateWeight rewrites q against the union of all shards' terms and weighs
// it with collection-wide statistics.
func (se *ShardedExecutor) CreateWeight(q query.SpanQuery) (*ranker.Weight, error) {
	rewritten, err := query.RewriteAll(q, se)
	if err != nil {
		return nil, err
	}
	return ranker.NewWeight(rewritten, se)
}

// Execute is CreateWeight followed by Search.
func (se *ShardedExecutor) Execute(ctx context.Context, q query.SpanQuery, filter query.Filter, nDocs int, s *merger.Sort) (*merger.TopDocs, error) {
	w, err := se.CreateWeight(q)
	if err != nil {
		return nil, err
	}
	return se.Search(ctx, w, filter, nDocs, s)
}

func (se *ShardedExecutor) DocFreq(field, text string) (int, error) {
	total := 0
	for i, s := range se.shards {
		df, err := s.DocFreq(field, text)
		if err != nil {
			return 0, &apperrors.ShardError{Shard: i, Err: err}
		}
		total += df
	}
	return total, nil
}

// Terms is the sorted union of every shard's terms.
func (se *ShardedExecutor) Terms(field, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	for i, s := range se.shards {
		terms, err := s.Terms(field, prefix)
		if err != nil {
			return nil, &apperrors.ShardError{Shard: i, Err: err}
		}
		for _, t := range terms {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (se *ShardedExecutor) MaxDoc() int { return se.maxDoc }

// AvgFieldLength weights each shard's average by its document count.
func (se *ShardedExecutor) AvgFieldLength(field string) float64 {
	if se.maxDoc == 0 {
		return 0
	}
	var total float64
	for i, s := range se.shards {
		total += s.AvgFieldLength(field) * float64(se.docCount(i))
	}
	return total / float64(se.maxDoc)
}

func (se *ShardedExecutor) docCount(i int) int {
	if i+1 < len(se.starts) {
		return se.starts[i+1] - se.starts[i]
	}
	return se.maxDoc - se.starts[i]
}

// Locate maps a global document id to its shard and local id.
func (se *ShardedExecutor) Locate(global int) (shard, local int, err error) {
	if global < 0 || global >= se.maxDoc {
		return 0, 0, fmt.Errorf("%w: document %d out of range [0, %d)", apperrors.ErrInvalidInput, global, se.maxDoc)
	}
	shard = sort.Search(len(se.starts), func(i int) bool { return se.starts[i] > global }) - 1
	return shard, global - se.starts[shard], nil
}

// Document returns the stored fields of a global document id.
func (se *ShardedExecutor) Document(global int) (map[string]string, error) {
	shard, local, err := se.Locate(global)
	if err != nil {
		return nil, err
	}
	fields, err := se.shards[shard].StoredFields(local)
	if err != nil {
		return nil, &apperrors.ShardError{Shard: shard, Err: err}
	}
	return fields, nil
}
