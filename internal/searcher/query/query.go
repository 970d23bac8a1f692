// Package query defines the positional query tree evaluated by the span
// iterators. Nodes are immutable once built, so rewritten trees can share
// unchanged subtrees with the original.
package query

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

// TermLister enumerates indexed terms; it is all a rewrite needs.
type TermLister interface {
	Terms(field, prefix string) ([]string, error)
}

// Reader is the view of one index partition that queries evaluate against.
type Reader interface {
	TermLister
	Postings(field, text string) (index.PostingList, error)
	MaxDoc() int
}

// Term is a single analysed token of a field.
type Term struct {
	Field string
	Text  string
}

func (t Term) String() string {
	return t.Field + ":" + t.Text
}

// SpanQuery is a query node that produces spans over a single field.
type SpanQuery interface {
	Field() string
	Boost() float64
	WithBoost(boost float64) SpanQuery
	// ExtractTerms lists the terms that contribute to scoring.
	ExtractTerms() []Term
	Spans(r Reader) (spans.Spans, error)
	// Rewrite returns an equivalent query, or the receiver itself when
	// nothing needed restructuring.
	Rewrite(r TermLister) (SpanQuery, error)
	Equal(other SpanQuery) bool
	Hash() uint64
	String() string
}

// RewriteAll rewrites q until it stops changing.
func RewriteAll(q SpanQuery, r TermLister) (SpanQuery, error) {
	for {
		next, err := q.Rewrite(r)
		if err != nil {
			return nil, fmt.Errorf("rewriting %s: %w", q, err)
		}
		if next == q {
			return q, nil
		}
		q = next
	}
}

func sameField(kind string, clauses []SpanQuery) (string, error) {
	if len(clauses) == 0 {
		return "", fmt.Errorf("%w: %s needs at least one clause", apperrors.ErrInvalidQuery, kind)
	}
	field := clauses[0].Field()
	for _, c := range clauses[1:] {
		if c.Field() != field {
			return "", fmt.Errorf("%w: %s mixes %q and %q", apperrors.ErrFieldMismatch, kind, field, c.Field())
		}
	}
	return field, nil
}

func rewriteClauses(clauses []SpanQuery, r TermLister) ([]SpanQuery, bool, error) {
	var out []SpanQuery
	for i, c := range clauses {
		nc, err := c.Rewrite(r)
		if err != nil {
			return nil, false, err
		}
		if nc != c && out == nil {
			out = make([]SpanQuery, len(clauses))
			copy(out, clauses[:i])
		}
		if out != nil {
			out[i] = nc
		}
	}
	if out == nil {
		return clauses, false, nil
	}
	return out, true, nil
}

func clausesEqual(a, b []SpanQuery) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// hashOf mixes a node kind, its string parts, child hashes and boost.
func hashOf(kind string, boost float64, strs []string, children ...uint64) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(kind)
	for _, s := range strs {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(s)
	}
	var buf [8]byte
	for _, c := range children {
		binary.LittleEndian.PutUint64(buf[:], c)
		_, _ = d.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(boost))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

func boostSuffix(boost float64) string {
	if boost == 1 {
		return ""
	}
	return "^" + strconv.FormatFloat(boost, 'g', -1, 64)
}
