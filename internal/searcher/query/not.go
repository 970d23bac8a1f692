package query

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

// SpanNot keeps the spans of include that overlap no span of exclude.
type SpanNot struct {
	include SpanQuery
	exclude SpanQuery
	boost   float64
}

// NewSpanNot fails unless include and exclude target the same field.
func NewSpanNot(include, exclude SpanQuery) (*SpanNot, error) {
	if include == nil || exclude == nil {
		return nil, fmt.Errorf("%w: spanNot needs include and exclude", apperrors.ErrInvalidQuery)
	}
	if include.Field() != exclude.Field() {
		return nil, fmt.Errorf("%w: spanNot include on %q, exclude on %q",
			apperrors.ErrFieldMismatch, include.Field(), exclude.Field())
	}
	return &SpanNot{include: include, exclude: exclude, boost: 1}, nil
}

func (q *SpanNot) Include() SpanQuery { return q.include }
func (q *SpanNot) Exclude() SpanQuery { return q.exclude }
func (q *SpanNot) Field() string      { return q.include.Field() }
func (q *SpanNot) Boost() float64     { return q.boost }

func (q *SpanNot) WithBoost(boost float64) SpanQuery {
	c := *q
	c.boost = boost
	return &c
}

// ExtractTerms reports only include terms; excluded terms never score.
func (q *SpanNot) ExtractTerms() []Term {
	return q.include.ExtractTerms()
}

func (q *SpanNot) Spans(r Reader) (spans.Spans, error) {
	include, err := q.include.Spans(r)
	if err != nil {
		return nil, err
	}
	exclude, err := q.exclude.Spans(r)
	if err != nil {
		return nil, err
	}
	return spans.NewNotSpans(include, exclude), nil
}

// Rewrite returns the receiver unless a child changed, in which case the
// copy keeps the boost.
func (q *SpanNot) Rewrite(r TermLister) (SpanQuery, error) {
	include, err := q.include.Rewrite(r)
	if err != nil {
		return nil, err
	}
	exclude, err := q.exclude.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if include == q.include && exclude == q.exclude {
		return q, nil
	}
	return &SpanNot{include: include, exclude: exclude, boost: q.boost}, nil
}

func (q *SpanNot) Equal(other SpanQuery) bool {
	o, ok := other.(*SpanNot)
	return ok && q.boost == o.boost && q.include.Equal(o.include) && q.exclude.Equal(o.exclude)
}

func (q *SpanNot) Hash() uint64 {
	return hashOf("spanNot", q.boost, nil, q.include.Hash(), q.exclude.Hash())
}

func (q *SpanNot) String() string {
	return fmt.Sprintf("spanNot(%s, %s)%s", q.include, q.exclude, boostSuffix(q.boost))
}
