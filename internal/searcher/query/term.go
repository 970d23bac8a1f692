package query

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
)

// SpanTerm matches every position of one term.
type SpanTerm struct {
	term  Term
	boost float64
}

func NewSpanTerm(field, text string) *SpanTerm {
	return &SpanTerm{term: Term{Field: field, Text: text}, boost: 1}
}

func (q *SpanTerm) Term() Term     { return q.term }
func (q *SpanTerm) Field() string  { return q.term.Field }
func (q *SpanTerm) Boost() float64 { return q.boost }

func (q *SpanTerm) ExtractTerms() []Term {
	return []Term{q.term}
}

func (q *SpanTerm) WithBoost(boost float64) SpanQuery {
	c := *q
	c.boost = boost
	return &c
}

func (q *SpanTerm) Spans(r Reader) (spans.Spans, error) {
	postings, err := r.Postings(q.term.Field, q.term.Text)
	if err != nil {
		return nil, fmt.Errorf("reading postings for %s: %w", q.term, err)
	}
	return spans.NewTermSpans(postings), nil
}

func (q *SpanTerm) Rewrite(TermLister) (SpanQuery, error) {
	return q, nil
}

func (q *SpanTerm) Equal(other SpanQuery) bool {
	o, ok := other.(*SpanTerm)
	return ok && q.term == o.term && q.boost == o.boost
}

func (q *SpanTerm) Hash() uint64 {
	return hashOf("spanTerm", q.boost, []string{q.term.Field, q.term.Text})
}

func (q *SpanTerm) String() string {
	return q.term.String() + boostSuffix(q.boost)
}
