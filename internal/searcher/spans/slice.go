package spans

import "sort"

// SliceSpans iterates a fixed list of spans. The list must already be in
// (doc, start) order.
type SliceSpans struct {
	spans []Span
	i     int
	cur   Span
	done  bool
}

func NewSliceSpans(spans ...Span) *SliceSpans {
	return &SliceSpans{spans: spans, i: -1}
}

func (s *SliceSpans) Next() bool {
	if s.done {
		return false
	}
	s.i++
	return s.position()
}

func (s *SliceSpans) SkipTo(target int) bool {
	if s.done {
		return false
	}
	if s.i >= 0 && s.cur.Doc >= target {
		return true
	}
	from := s.i + 1
	rest := s.spans[from:]
	s.i = from + sort.Search(len(rest), func(k int) bool {
		return rest[k].Doc >= target
	})
	return s.position()
}

func (s *SliceSpans) position() bool {
	if s.i >= len(s.spans) {
		s.done = true
		return false
	}
	s.cur = s.spans[s.i]
	return true
}

func (s *SliceSpans) Doc() int   { return s.cur.Doc }
func (s *SliceSpans) Start() int { return s.cur.Start }
func (s *SliceSpans) End() int   { return s.cur.End }
