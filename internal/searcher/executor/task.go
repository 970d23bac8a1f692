package executor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/tracing"
)

// task searches one shard and returns its page with global document ids.
type task struct {
	index   int
	shard   Shard
	start   int
	weight  *ranker.Weight
	filter  query.Filter
	nDocs   int
	sort    *merger.Sort
	timeout time.Duration
	metrics *metrics.Metrics
}

func (t *task) run(ctx context.Context) (*merger.TopDocs, error) {
	name := "shard-" + strconv.Itoa(t.index)
	ctx, span := tracing.StartChildSpan(ctx, name)
	began := time.Now()

	// The shard runs inline; the errgroup join waits for it even past the
	// timeout.
	var page *merger.TopDocs
	err := resilience.WithTimeout(ctx, t.timeout, name, func(ctx context.Context) error {
		td, err := t.search(ctx)
		if err != nil {
			return err
		}
		page = td
		return nil
	})
	if err == nil && page == nil {
		err = fmt.Errorf("%w: shard returned no page", apperrors.ErrInternal)
	}

	span.End(err)
	if t.metrics != nil {
		label := strconv.Itoa(t.index)
		t.metrics.ShardSearchLatency.WithLabelValues(label).Observe(time.Since(began).Seconds())
		if err != nil {
			t.metrics.ShardFailuresTotal.WithLabelValues(label).Inc()
		}
	}
	if err != nil {
		return nil, &apperrors.ShardError{Shard: t.index, Err: err}
	}

	span.SetAttr("total_hits", page.TotalHits)
	for i := range page.Hits {
		page.Hits[i].Doc += t.start
		page.Hits[i].Shard = t.index
	}
	return page, nil
}

// search converts a panic in the shard into an error.
func (t *task) search(ctx context.Context) (td *merger.TopDocs, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in shard search: %v", apperrors.ErrInternal, r)
		}
	}()
	return t.shard.Search(ctx, t.weight, t.filter, t.nDocs, t.sort)
}
