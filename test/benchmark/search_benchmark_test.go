package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/ranker"
)

func weigh(b *testing.B, q query.SpanQuery, r interface {
	query.TermLister
	ranker.Stats
}) *ranker.Weight {
	b.Helper()
	rewritten, err := query.RewriteAll(q, r)
	if err != nil {
		b.Fatal(err)
	}
	w, err := ranker.NewWeight(rewritten, r)
	if err != nil {
		b.Fatal(err)
	}
	return w
}

func buildExecutor(b *testing.B, numShards, docs int) *executor.ShardedExecutor {
	b.Helper()
	router, err := shard.NewRouter(numShards)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < docs; i++ {
		doc := benchDoc(i)
		if _, _, err := router.AddDocument(doc["id"], doc); err != nil {
			b.Fatal(err)
		}
	}
	router.SealAll()
	shards := make([]executor.Shard, 0, numShards)
	for _, e := range router.Shards() {
		shards = append(shards, e)
	}
	return executor.NewSharded(shards)
}

// BenchmarkQueryParse measures parsing for queries of varying complexity.
func BenchmarkQueryParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "distributed"},
		{"or", "indexing OR caching OR ranking"},
		{"phrase", `"distributed search engine"~2`},
		{"with_not", "distributed NOT monolithic"},
		{"complex", `"search ranking"~1^2 analy* title:engine NOT deprecated`},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := parser.Parse(q.query, "body"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkShardedExecutor exercises the fan-out with varying shard counts.
func BenchmarkShardedExecutor(b *testing.B) {
	for _, numShards := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("shards_%d", numShards), func(b *testing.B) {
			exec := buildExecutor(b, numShards, 8000)
			q, err := parser.Parse(`"distributed search"~2 ranking`, "body")
			if err != nil {
				b.Fatal(err)
			}
			w, err := exec.CreateWeight(q)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Search(context.Background(), w, nil, 10, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkShardedExecutorSorted measures field-sorted merging across 8
// shards, including the auto sort type resolution.
func BenchmarkShardedExecutorSorted(b *testing.B) {
	exec := buildExecutor(b, 8, 8000)
	q, err := parser.Parse("search OR ranking", "body")
	if err != nil {
		b.Fatal(err)
	}
	sort := merger.NewSort(merger.SortField{Field: "year", Type: merger.SortAuto, Reverse: true})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exec.Execute(context.Background(), q, nil, 25, sort); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkShardedExecutorParallel measures concurrent search throughput.
func BenchmarkShardedExecutorParallel(b *testing.B) {
	exec := buildExecutor(b, 8, 8000)
	q, err := parser.Parse("distributed search", "body")
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), q, nil, 10, nil); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
