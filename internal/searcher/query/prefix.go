package query

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
)

// SpanPrefix matches every term of a field starting with a prefix. It is
// expanded into a SpanOr of terms by Rewrite.
type SpanPrefix struct {
	field  string
	prefix string
	boost  float64
}

func NewSpanPrefix(field, prefix string) *SpanPrefix {
	return &SpanPrefix{field: field, prefix: prefix, boost: 1}
}

func (q *SpanPrefix) Prefix() string { return q.prefix }
func (q *SpanPrefix) Field() string  { return q.field }
func (q *SpanPrefix) Boost() float64 { return q.boost }

func (q *SpanPrefix) WithBoost(boost float64) SpanQuery {
	c := *q
	c.boost = boost
	return &c
}

// ExtractTerms is empty until the prefix has been rewritten.
func (q *SpanPrefix) ExtractTerms() []Term {
	return nil
}

func (q *SpanPrefix) Spans(r Reader) (spans.Spans, error) {
	rewritten, err := q.Rewrite(r)
	if err != nil {
		return nil, err
	}
	return rewritten.Spans(r)
}

// Rewrite always produces a new SpanOr, empty when no term matches.
func (q *SpanPrefix) Rewrite(r TermLister) (SpanQuery, error) {
	terms, err := r.Terms(q.field, q.prefix)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", q, err)
	}
	clauses := make([]SpanQuery, len(terms))
	for i, t := range terms {
		clauses[i] = NewSpanTerm(q.field, t)
	}
	return &SpanOr{field: q.field, clauses: clauses, boost: q.boost}, nil
}

func (q *SpanPrefix) Equal(other SpanQuery) bool {
	o, ok := other.(*SpanPrefix)
	return ok && q.field == o.field && q.prefix == o.prefix && q.boost == o.boost
}

func (q *SpanPrefix) Hash() uint64 {
	return hashOf("spanPrefix", q.boost, []string{q.field, q.prefix})
}

func (q *SpanPrefix) String() string {
	return q.field + ":" + q.prefix + "*" + boostSuffix(q.boost)
}
