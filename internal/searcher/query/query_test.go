package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/spans"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

func testIndex(t *testing.T) *index.MemoryIndex {
	t.Helper()
	idx := index.NewMemoryIndex()
	for _, body := range []string{
		"quick brown fox",
		"the quick red fox",
		"lazy dog quiet cat",
		"brown dog quick fox",
	} {
		idx.AddDocument(map[string]string{"body": body, "title": "pets"})
	}
	return idx
}

func term(text string) *SpanTerm { return NewSpanTerm("body", text) }

func TestConstructionRejectsMixedFields(t *testing.T) {
	title := NewSpanTerm("title", "pets")

	_, err := NewSpanNot(term("quick"), title)
	assert.ErrorIs(t, err, apperrors.ErrFieldMismatch)

	_, err = NewSpanOr(term("quick"), title)
	assert.ErrorIs(t, err, apperrors.ErrFieldMismatch)

	_, err = NewSpanNear(0, term("quick"), title)
	assert.ErrorIs(t, err, apperrors.ErrFieldMismatch)

	_, err = NewSpanOr()
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)

	_, err = NewSpanNear(-1, term("quick"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestSpanNotRewriteReturnsSelfWhenUnchanged(t *testing.T) {
	idx := testIndex(t)
	q, err := NewSpanNot(term("quick"), term("red"))
	require.NoError(t, err)

	rewritten, err := q.Rewrite(idx)
	require.NoError(t, err)
	assert.Same(t, q, rewritten)
}

func TestSpanNotRewriteKeepsBoost(t *testing.T) {
	idx := testIndex(t)
	q, err := NewSpanNot(NewSpanPrefix("body", "qui"), term("red"))
	require.NoError(t, err)
	boosted := q.WithBoost(2)

	rewritten, err := boosted.Rewrite(idx)
	require.NoError(t, err)
	not, ok := rewritten.(*SpanNot)
	require.True(t, ok)
	assert.Equal(t, 2.0, not.Boost())

	or, ok := not.Include().(*SpanOr)
	require.True(t, ok)
	want, err := NewSpanOr(term("quick"), term("quiet"))
	require.NoError(t, err)
	assert.True(t, want.Equal(or))
	assert.Equal(t, []Term{{"body", "quick"}, {"body", "quiet"}}, not.ExtractTerms())
}

func TestEqualAndHash(t *testing.T) {
	a, err := NewSpanNot(term("quick"), term("red"))
	require.NoError(t, err)
	b, err := NewSpanNot(term("quick"), term("red"))
	require.NoError(t, err)
	swapped, err := NewSpanNot(term("red"), term("quick"))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(swapped))
	assert.NotEqual(t, a.Hash(), swapped.Hash())

	boosted := a.WithBoost(3)
	assert.False(t, a.Equal(boosted))
	assert.NotEqual(t, a.Hash(), boosted.Hash())
	assert.Equal(t, 1.0, a.Boost(), "WithBoost must not mutate the receiver")

	assert.False(t, term("quick").Equal(NewSpanPrefix("body", "quick")))
}

func TestString(t *testing.T) {
	near, err := NewSpanNear(2, term("quick"), term("fox"))
	require.NoError(t, err)
	not, err := NewSpanNot(near, NewSpanPrefix("body", "re"))
	require.NoError(t, err)

	assert.Equal(t, "spanNot(spanNear([body:quick, body:fox], 2), body:re*)^2", not.WithBoost(2).String())
}

func TestEvaluateNearAndNot(t *testing.T) {
	idx := testIndex(t)

	exact, err := NewSpanNear(0, term("quick"), term("fox"))
	require.NoError(t, err)
	s, err := Evaluate(exact, nil, idx)
	require.NoError(t, err)
	assert.Equal(t, []spans.Span{{Doc: 3, Start: 2, End: 4}}, spans.Collect(s))

	sloppy, err := NewSpanNear(1, term("quick"), term("fox"))
	require.NoError(t, err)
	s, err = Evaluate(sloppy, nil, idx)
	require.NoError(t, err)
	assert.Equal(t, []spans.Span{{Doc: 0, Start: 0, End: 3}, {Doc: 1, Start: 1, End: 4}, {Doc: 3, Start: 2, End: 4}}, spans.Collect(s))

	not, err := NewSpanNot(sloppy, term("red"))
	require.NoError(t, err)
	s, err = Evaluate(not, nil, idx)
	require.NoError(t, err)
	assert.Equal(t, []spans.Span{{Doc: 0, Start: 0, End: 3}, {Doc: 3, Start: 2, End: 4}}, spans.Collect(s))
}

func TestEvaluateWithFilters(t *testing.T) {
	idx := testIndex(t)

	s, err := Evaluate(term("fox"), NewTermFilter("body", "brown"), idx)
	require.NoError(t, err)
	assert.Equal(t, []spans.Span{{Doc: 0, Start: 2, End: 3}, {Doc: 3, Start: 3, End: 4}}, spans.Collect(s))

	bits, err := (&QueryFilter{Query: term("dog")}).DocIDSet(idx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, bits.ToArray())
}

func TestPrefixWithoutMatchesIsEmpty(t *testing.T) {
	idx := testIndex(t)
	q := NewSpanPrefix("body", "zzz")

	rewritten, err := RewriteAll(q, idx)
	require.NoError(t, err)
	or, ok := rewritten.(*SpanOr)
	require.True(t, ok)
	assert.Empty(t, or.Clauses())

	s, err := Evaluate(q, nil, idx)
	require.NoError(t, err)
	assert.False(t, s.Next())
}

func TestSingleClauseCollapses(t *testing.T) {
	idx := testIndex(t)
	or, err := NewSpanOr(term("lazy"))
	require.NoError(t, err)

	rewritten, err := RewriteAll(or.WithBoost(4), idx)
	require.NoError(t, err)
	assert.True(t, term("lazy").WithBoost(4).Equal(rewritten))
}
