// Package indexer holds one shard of the searchable corpus: an in-memory
// positional index plus the search entry point the executor fans out to.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

// ctxCheckInterval is how many matching documents are scored between
// cancellation checks.
const ctxCheckInterval = 256

// Engine is a single shard. Documents are added until Seal, after which the
// engine is read-only and safe for concurrent searches.
type Engine struct {
	id       int
	memIndex *index.MemoryIndex
	sealed   atomic.Bool
	logger   *slog.Logger

	autoMu    sync.Mutex
	autoTypes map[string]merger.SortType
}

func NewEngine(id int) *Engine {
	return &Engine{
		id:        id,
		memIndex:  index.NewMemoryIndex(),
		logger:    slog.Default().With("component", "indexer", "shard_id", id),
		autoTypes: make(map[string]merger.SortType),
	}
}

func (e *Engine) ID() int { return e.id }

// AddDocument indexes fields and returns the local document id.
func (e *Engine) AddDocument(fields map[string]string) (int, error) {
	if e.sealed.Load() {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusConflict, "shard %d is sealed", e.id)
	}
	doc := e.memIndex.AddDocument(fields)
	e.autoMu.Lock()
	clear(e.autoTypes)
	e.autoMu.Unlock()
	e.logger.Debug("document indexed in memory",
		"doc", doc,
		"fields", len(fields),
		"mem_size", e.memIndex.Size(),
	)
	return doc, nil
}

// Seal stops further additions.
func (e *Engine) Seal() {
	if e.sealed.Swap(true) {
		return
	}
	e.logger.Info("shard sealed",
		"docs", e.memIndex.MaxDoc(),
		"mem_size", e.memIndex.Size(),
	)
}

func (e *Engine) Sealed() bool { return e.sealed.Load() }

// Search scores every document matched by the weight's query and returns
// the best nDocs of them. Local document ids are reported.
func (e *Engine) Search(ctx context.Context, w *ranker.Weight, filter query.Filter, nDocs int, s *merger.Sort) (*merger.TopDocs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sp, err := query.Evaluate(w.Query(), filter, e.memIndex)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", w.Query(), err)
	}

	var resolved *merger.Sort
	if s != nil {
		resolved = e.resolveSort(s)
	}
	queue := merger.NewHitQueue(nDocs, resolved.Comparator())
	field := w.Query().Field()
	td := merger.Empty()

	more := sp.Next()
	for more {
		if td.TotalHits%ctxCheckInterval == ctxCheckInterval-1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		doc := sp.Doc()
		var freq float64
		for more && sp.Doc() == doc {
			freq += ranker.SloppyFreq(sp.Start(), sp.End())
			more = sp.Next()
		}
		score := w.Score(freq, e.memIndex.FieldLength(doc, field))
		td.TotalHits++
		if td.TotalHits == 1 || score > td.MaxScore {
			td.MaxScore = score
		}
		hit := merger.ScoredHit{Doc: doc, Score: score}
		if resolved != nil {
			hit.Fields = e.sortValues(doc, score, resolved)
		}
		queue.Insert(hit)
	}

	td.Hits = queue.DrainDescending()
	if resolved != nil {
		td.SortFields = resolved.Fields
	}
	return td, nil
}

// resolveSort fixes SortAuto fields from the values stored in this shard.
// The executor resolves across shards first, so this only applies when the
// engine is searched on its own.
func (e *Engine) resolveSort(s *merger.Sort) *merger.Sort {
	if !s.NeedsResolve() {
		return s
	}
	concrete := make([]merger.SortField, len(s.Fields))
	for i, f := range s.Fields {
		concrete[i] = f
		if f.Type == merger.SortAuto {
			concrete[i].Type = e.SortType(f.Field)
		}
	}
	return s.Resolve(concrete)
}

// SortType is the type inferred from this shard's stored values of field,
// or SortAuto when no document stores it.
func (e *Engine) SortType(field string) merger.SortType {
	e.autoMu.Lock()
	defer e.autoMu.Unlock()
	if t, ok := e.autoTypes[field]; ok {
		return t
	}
	var raws []string
	for doc := 0; doc < e.memIndex.MaxDoc(); doc++ {
		if v, ok := e.memIndex.StoredValue(doc, field); ok {
			raws = append(raws, v)
		}
	}
	t := merger.InferType(raws)
	e.autoTypes[field] = t
	return t
}

func (e *Engine) sortValues(doc int, score float64, s *merger.Sort) []any {
	values := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		switch f.Type {
		case merger.SortScore:
			values[i] = score
		case merger.SortDoc:
		default:
			raw, ok := e.memIndex.StoredValue(doc, f.Field)
			values[i] = merger.ParseValue(f.Type, raw, ok)
		}
	}
	return values
}

func (e *Engine) DocFreq(field, text string) (int, error) {
	return e.memIndex.DocFreq(field, text), nil
}

func (e *Engine) Terms(field, prefix string) ([]string, error) {
	return e.memIndex.Terms(field, prefix)
}

func (e *Engine) MaxDoc() int { return e.memIndex.MaxDoc() }

func (e *Engine) AvgFieldLength(field string) float64 {
	return e.memIndex.AvgFieldLength(field)
}

// StoredFields returns the raw fields of a local document.
func (e *Engine) StoredFields(doc int) (map[string]string, error) {
	fields := e.memIndex.Stored(doc)
	if fields == nil {
		return nil, fmt.Errorf("%w: shard %d has no document %d", apperrors.ErrInvalidInput, e.id, doc)
	}
	return fields, nil
}

func (e *Engine) Size() int64 { return e.memIndex.Size() }
