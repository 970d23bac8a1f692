// Package ranker scores span matches with BM25 over collection-wide
// statistics.
package ranker

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Stats exposes the collection statistics a Weight is built from. The
// multi-shard executor implements it with values summed over all shards.
type Stats interface {
	DocFreq(field, text string) (int, error)
	MaxDoc() int
	AvgFieldLength(field string) float64
}

// Weight is a query prepared for scoring. It is computed once per search
// and shared read-only by every shard.
type Weight struct {
	query       query.SpanQuery
	idf         float64
	avgFieldLen float64
}

// NewWeight expects q to be fully rewritten; unexpanded multi-term nodes
// contribute no terms to the IDF.
func NewWeight(q query.SpanQuery, stats Stats) (*Weight, error) {
	totalDocs := stats.MaxDoc()
	seen := make(map[query.Term]struct{})
	var idf float64
	for _, t := range q.ExtractTerms() {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		df, err := stats.DocFreq(t.Field, t.Text)
		if err != nil {
			return nil, fmt.Errorf("doc freq of %s: %w", t, err)
		}
		idf += computeIDF(int64(totalDocs), int64(df))
	}
	return &Weight{
		query:       q,
		idf:         idf,
		avgFieldLen: stats.AvgFieldLength(q.Field()),
	}, nil
}

func (w *Weight) Query() query.SpanQuery { return w.query }
func (w *Weight) IDF() float64           { return w.idf }

// Score turns the sloppy frequency of a document into its score.
func (w *Weight) Score(freq float64, fieldLen int) float64 {
	return w.query.Boost() * w.idf * computeTFNorm(freq, float64(fieldLen), w.avgFieldLen)
}

// SloppyFreq is the frequency contribution of one matching span: shorter
// spans count for more.
func SloppyFreq(start, end int) float64 {
	width := end - start
	if width <= 0 {
		return 1
	}
	return 1 / float64(width)
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
