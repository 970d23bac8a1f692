package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

// SpanNear matches its clauses in order with at most slop unmatched
// positions between them.
type SpanNear struct {
	field   string
	clauses []SpanQuery
	slop    int
	boost   float64
}

// NewSpanNear fails when clauses is empty, mixes fields, or slop is negative.
func NewSpanNear(slop int, clauses ...SpanQuery) (*SpanNear, error) {
	if slop < 0 {
		return nil, fmt.Errorf("%w: negative slop %d", apperrors.ErrInvalidQuery, slop)
	}
	field, err := sameField("spanNear", clauses)
	if err != nil {
		return nil, err
	}
	return &SpanNear{
		field:   field,
		clauses: append([]SpanQuery(nil), clauses...),
		slop:    slop,
		boost:   1,
	}, nil
}

func (q *SpanNear) Clauses() []SpanQuery { return append([]SpanQuery(nil), q.clauses...) }
func (q *SpanNear) Slop() int            { return q.slop }
func (q *SpanNear) Field() string        { return q.field }
func (q *SpanNear) Boost() float64       { return q.boost }

func (q *SpanNear) WithBoost(boost float64) SpanQuery {
	c := *q
	c.boost = boost
	return &c
}

func (q *SpanNear) ExtractTerms() []Term {
	var terms []Term
	for _, c := range q.clauses {
		terms = append(terms, c.ExtractTerms()...)
	}
	return terms
}

func (q *SpanNear) Spans(r Reader) (spans.Spans, error) {
	children := make([]spans.Spans, 0, len(q.clauses))
	for _, c := range q.clauses {
		s, err := c.Spans(r)
		if err != nil {
			return nil, err
		}
		children = append(children, s)
	}
	return spans.NewNearSpans(q.slop, children...), nil
}

func (q *SpanNear) Rewrite(r TermLister) (SpanQuery, error) {
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
	return &SpanNear{field: q.field, clauses: clauses, slop: q.slop, boost: q.boost}, nil
}

func (q *SpanNear) Equal(other SpanQuery) bool {
	o, ok := other.(*SpanNear)
	return ok && q.field == o.field && q.slop == o.slop && q.boost == o.boost &&
		clausesEqual(q.clauses, o.clauses)
}

func (q *SpanNear) Hash() uint64 {
	children := make([]uint64, len(q.clauses))
	for i, c := range q.clauses {
		children[i] = c.Hash()
	}
	return hashOf("spanNear", q.boost, []string{q.field, strconv.Itoa(q.slop)}, children...)
}

func (q *SpanNear) String() string {
	parts := make([]string, len(q.clauses))
	for i, c := range q.clauses {
		parts[i] = c.String()
	}
	return fmt.Sprintf("spanNear([%s], %d)%s", strings.Join(parts, ", "), q.slop, boostSuffix(q.boost))
}
