package query

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
)

// SpanOr matches the union of its clauses' spans.
type SpanOr struct {
	field   string
	clauses []SpanQuery
	boost   float64
}

// NewSpanOr fails when clauses is empty or mixes fields.
func NewSpanOr(clauses ...SpanQuery) (*SpanOr, error) {
	field, err := sameField("spanOr", clauses)
	if err != nil {
		return nil, err
	}
	return &SpanOr{field: field, clauses: append([]SpanQuery(nil), clauses...), boost: 1}, nil
}

func (q *SpanOr) Clauses() []SpanQuery { return append([]SpanQuery(nil), q.clauses...) }
func (q *SpanOr) Field() string        { return q.field }
func (q *SpanOr) Boost() float64       { return q.boost }

func (q *SpanOr) WithBoost(boost float64) SpanQuery {
	c := *q
	c.boost = boost
	return &c
}

func (q *SpanOr) ExtractTerms() []Term {
	var terms []Term
	for _, c := range q.clauses {
		terms = append(terms, c.ExtractTerms()...)
	}
	return terms
}

func (q *SpanOr) Spans(r Reader) (spans.Spans, error) {
	children := make([]spans.Spans, 0, len(q.clauses))
	for _, c := range q.clauses {
		s, err := c.Spans(r)
		if err != nil {
			return nil, err
		}
		children = append(children, s)
	}
	return spans.NewOrSpans(children...), nil
}

// Rewrite collapses a single clause into the clause itself.
func (q *SpanOr) Rewrite(r TermLister) (SpanQuery, error) {
	clauses, changed, err := rewriteClauses(q.clauses, r)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 1 {
		only := clauses[0]
		return only.WithBoost(only.Boost() * q.boost), nil
	}
	if !changed {
		return q, nil
	}
	return &SpanOr{field: q.field, clauses: clauses, boost: q.boost}, nil
}

func (q *SpanOr) Equal(other SpanQuery) bool {
	o, ok := other.(*SpanOr)
	return ok && q.field == o.field && q.boost == o.boost && clausesEqual(q.clauses, o.clauses)
}

func (q *SpanOr) Hash() uint64 {
	children := make([]uint64, len(q.clauses))
	for i, c := range q.clauses {
		children[i] = c.Hash()
	}
	return hashOf("spanOr", q.boost, []string{q.field}, children...)
}

func (q *SpanOr) String() string {
	parts := make([]string, len(q.clauses))
	for i, c := range q.clauses {
		parts[i] = c.String()
	}
	return "spanOr([" + strings.Join(parts, ", ") + "])" + boostSuffix(q.boost)
}
