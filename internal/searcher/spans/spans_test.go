package spans

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/index"
)

func TestTermSpans(t *testing.T) {
	postings := index.PostingList{
		{DocID: 0, Positions: []int{1, 4}},
		{DocID: 3, Positions: []int{0}},
		{DocID: 9, Positions: []int{2, 3}},
	}
	assert.Equal(t, []Span{{0, 1, 2}, {0, 4, 5}, {3, 0, 1}, {9, 2, 3}, {9, 3, 4}},
		Collect(NewTermSpans(postings)))

	ts := NewTermSpans(postings)
	require.True(t, ts.SkipTo(2))
	assert.Equal(t, Span{3, 0, 1}, Span{ts.Doc(), ts.Start(), ts.End()})
	require.True(t, ts.SkipTo(3), "already positioned at or past target")
	assert.Equal(t, 3, ts.Doc())
	require.True(t, ts.SkipTo(4))
	assert.Equal(t, Span{9, 2, 3}, Span{ts.Doc(), ts.Start(), ts.End()})
	assert.False(t, ts.SkipTo(10))
	assert.False(t, ts.Next())
	assert.Equal(t, 9, ts.Doc())
}

func TestTermSpansSkipToEquivalentToNext(t *testing.T) {
	postings := index.PostingList{
		{DocID: 1, Positions: []int{0, 2}},
		{DocID: 2, Positions: []int{5}},
		{DocID: 6, Positions: []int{1}},
	}
	for target := 0; target <= 7; target++ {
		skipped := NewTermSpans(postings)
		stepped := NewTermSpans(postings)

		okSkip := skipped.SkipTo(target)
		okStep := stepped.Next()
		for okStep && stepped.Doc() < target {
			okStep = stepped.Next()
		}
		require.Equal(t, okStep, okSkip, "target %d", target)
		if okSkip {
			assert.Equal(t, Collect(stepped), Collect(skipped), "target %d", target)
		}
	}
}

func TestTermSpansEmpty(t *testing.T) {
	ts := NewTermSpans(nil)
	assert.False(t, ts.Next())
	assert.False(t, ts.SkipTo(0))
}

func TestOrSpans(t *testing.T) {
	or := NewOrSpans(
		NewSliceSpans(Span{0, 3, 4}, Span{2, 0, 1}),
		NewSliceSpans(Span{0, 1, 2}, Span{0, 3, 5}, Span{5, 0, 1}),
		NewSliceSpans(),
	)
	assert.Equal(t, []Span{{0, 1, 2}, {0, 3, 4}, {0, 3, 5}, {2, 0, 1}, {5, 0, 1}}, Collect(or))
	assert.False(t, or.Next())
	assert.Equal(t, 5, or.Doc())
}

func TestOrSpansSkipTo(t *testing.T) {
	or := NewOrSpans(
		NewSliceSpans(Span{0, 0, 1}, Span{4, 2, 3}),
		NewSliceSpans(Span{1, 0, 1}, Span{4, 1, 2}, Span{8, 0, 1}),
	)
	require.True(t, or.SkipTo(3))
	assert.Equal(t, Span{4, 1, 2}, Span{or.Doc(), or.Start(), or.End()})
	require.True(t, or.Next())
	assert.Equal(t, Span{4, 2, 3}, Span{or.Doc(), or.Start(), or.End()})
	require.True(t, or.SkipTo(5))
	assert.Equal(t, 8, or.Doc())
	assert.False(t, or.SkipTo(9))
}

func TestNearSpansOrderedWithSlop(t *testing.T) {
	quick := NewSliceSpans(Span{0, 1, 2}, Span{1, 0, 1}, Span{2, 5, 6})
	fox := NewSliceSpans(Span{0, 3, 4}, Span{1, 1, 2}, Span{2, 0, 1}, Span{3, 0, 1})

	// slop 0 only matches adjacent "quick fox".
	exact := Collect(NewNearSpans(0, quick, fox))
	assert.Equal(t, []Span{{1, 0, 2}}, exact)

	quick = NewSliceSpans(Span{0, 1, 2}, Span{1, 0, 1}, Span{2, 5, 6})
	fox = NewSliceSpans(Span{0, 3, 4}, Span{1, 1, 2}, Span{2, 0, 1}, Span{3, 0, 1})
	sloppy := Collect(NewNearSpans(1, quick, fox))
	assert.Equal(t, []Span{{0, 1, 4}, {1, 0, 2}}, sloppy, "doc 2 is out of order")
}

func TestNearSpansThreeClausesAndSkipTo(t *testing.T) {
	a := NewSliceSpans(Span{1, 0, 1}, Span{4, 0, 1}, Span{4, 6, 7})
	b := NewSliceSpans(Span{1, 1, 2}, Span{4, 1, 2}, Span{4, 7, 8})
	c := NewSliceSpans(Span{1, 2, 3}, Span{4, 2, 3}, Span{4, 8, 9})
	near := NewNearSpans(0, a, b, c)

	require.True(t, near.SkipTo(2))
	assert.Equal(t, Span{4, 0, 3}, Span{near.Doc(), near.Start(), near.End()})
	require.True(t, near.Next())
	assert.Equal(t, Span{4, 6, 9}, Span{near.Doc(), near.Start(), near.End()})
	assert.False(t, near.Next())
	assert.False(t, near.Next())
	assert.Equal(t, 4, near.Doc())
}

func TestFilteredSpans(t *testing.T) {
	in := NewSliceSpans(Span{0, 0, 1}, Span{2, 0, 1}, Span{2, 3, 4}, Span{5, 1, 2}, Span{9, 0, 1})
	allowed := roaring.BitmapOf(2, 6, 9)

	f := NewFilteredSpans(in, allowed)
	assert.Equal(t, []Span{{2, 0, 1}, {2, 3, 4}, {9, 0, 1}}, Collect(f))
	assert.False(t, f.Next())
	assert.Equal(t, 9, f.Doc())

	empty := NewFilteredSpans(NewSliceSpans(Span{1, 0, 1}), roaring.New())
	assert.False(t, empty.Next())
}

func TestFilteredSpansSkipTo(t *testing.T) {
	f := NewFilteredSpans(
		NewSliceSpans(Span{0, 0, 1}, Span{3, 2, 3}, Span{3, 5, 6}, Span{7, 0, 1}),
		roaring.BitmapOf(0, 3, 7),
	)
	require.True(t, f.SkipTo(0), "first SkipTo must advance even to doc 0")
	assert.Equal(t, Span{0, 0, 1}, Span{f.Doc(), f.Start(), f.End()})
	require.True(t, f.SkipTo(0), "already positioned at the target")
	assert.Equal(t, Span{0, 0, 1}, Span{f.Doc(), f.Start(), f.End()})

	require.True(t, f.SkipTo(2))
	assert.Equal(t, Span{3, 2, 3}, Span{f.Doc(), f.Start(), f.End()})
	require.True(t, f.Next())
	assert.Equal(t, Span{3, 5, 6}, Span{f.Doc(), f.Start(), f.End()})
	require.True(t, f.SkipTo(4))
	assert.Equal(t, 7, f.Doc())
	assert.False(t, f.SkipTo(8))
}

func TestNearSpansFindsChainPastWideEarlierSpan(t *testing.T) {
	// The earliest middle span (1,5) leaves no room for the last clause;
	// the later, narrower (2,3) does.
	first := NewSliceSpans(Span{0, 0, 1})
	middle := NewSliceSpans(Span{0, 1, 5}, Span{0, 2, 3})
	last := NewSliceSpans(Span{0, 3, 4})

	assert.Equal(t, []Span{{0, 0, 4}}, Collect(NewNearSpans(1, first, middle, last)))
}

func TestNearSpansChainRespectsSlopBudget(t *testing.T) {
	first := NewSliceSpans(Span{0, 0, 1})
	middle := NewSliceSpans(Span{0, 2, 3}, Span{0, 3, 4})
	last := NewSliceSpans(Span{0, 5, 6})

	// Both chains leave three unmatched positions.
	assert.Empty(t, Collect(NewNearSpans(2, first, middle, last)))

	first = NewSliceSpans(Span{0, 0, 1})
	middle = NewSliceSpans(Span{0, 2, 3}, Span{0, 3, 4})
	last = NewSliceSpans(Span{0, 5, 6})
	assert.Equal(t, []Span{{0, 0, 6}}, Collect(NewNearSpans(3, first, middle, last)))
}
