package spans

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// FilteredSpans hides spans whose document is not in allowed. Rejected
// documents are jumped over with SkipTo rather than scanned.
type FilteredSpans struct {
	in      Spans
	docs    roaring.IntPeekable
	cur     Span
	started bool
	done    bool
}

func NewFilteredSpans(in Spans, allowed *roaring.Bitmap) *FilteredSpans {
	return &FilteredSpans{
		in:   in,
		docs: allowed.Iterator(),
	}
}

func (f *FilteredSpans) Next() bool {
	if f.done {
		return false
	}
	return f.settle(f.in.Next())
}

func (f *FilteredSpans) SkipTo(target int) bool {
	if f.done {
		return false
	}
	if f.started && f.cur.Doc >= target {
		return true
	}
	return f.settle(f.in.SkipTo(target))
}

// settle moves in forward until it sits on a permitted document.
func (f *FilteredSpans) settle(more bool) bool {
	for more {
		doc := f.in.Doc()
		if doc < 0 {
			break
		}
		f.docs.AdvanceIfNeeded(uint32(doc))
		if !f.docs.HasNext() {
			break
		}
		next := int(f.docs.PeekNext())
		if next == doc {
			f.cur = Span{Doc: doc, Start: f.in.Start(), End: f.in.End()}
			f.started = true
			return true
		}
		more = f.in.SkipTo(next)
	}
	f.done = true
	return false
}

func (f *FilteredSpans) Doc() int   { return f.cur.Doc }
func (f *FilteredSpans) Start() int { return f.cur.Start }
func (f *FilteredSpans) End() int   { return f.cur.End }
