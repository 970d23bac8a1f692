package query

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
)

// Filter restricts a search to a set of local document ids without
// affecting scores.
type Filter interface {
	DocIDSet(r Reader) (*roaring.Bitmap, error)
	String() string
}

// TermFilter admits documents containing a term.
type TermFilter struct {
	Term Term
}

func NewTermFilter(field, text string) *TermFilter {
	return &TermFilter{Term: Term{Field: field, Text: text}}
}

func (f *TermFilter) DocIDSet(r Reader) (*roaring.Bitmap, error) {
	postings, err := r.Postings(f.Term.Field, f.Term.Text)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", f.Term, err)
	}
	bits := roaring.New()
	for _, p := range postings {
		bits.Add(uint32(p.DocID))
	}
	return bits, nil
}

func (f *TermFilter) String() string {
	return "+" + f.Term.String()
}

// QueryFilter admits documents with at least one span of a query.
type QueryFilter struct {
	Query SpanQuery
}

func (f *QueryFilter) DocIDSet(r Reader) (*roaring.Bitmap, error) {
	s, err := Evaluate(f.Query, nil, r)
	if err != nil {
		return nil, err
	}
	bits := roaring.New()
	for ok := s.Next(); ok; ok = s.SkipTo(s.Doc() + 1) {
		bits.Add(uint32(s.Doc()))
	}
	return bits, nil
}

func (f *QueryFilter) String() string {
	return "+(" + f.Query.String() + ")"
}

// Evaluate rewrites q against r and returns its spans, restricted to the
// documents admitted by filter when one is given.
func Evaluate(q SpanQuery, filter Filter, r Reader) (spans.Spans, error) {
	rewritten, err := RewriteAll(q, r)
	if err != nil {
		return nil, err
	}
	s, err := rewritten.Spans(r)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return s, nil
	}
	allowed, err := filter.DocIDSet(r)
	if err != nil {
		return nil, err
	}
	return spans.NewFilteredSpans(s, allowed), nil
}
