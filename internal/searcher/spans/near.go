package spans

import "sort"

// NearSpans matches its children in order inside one document: each child
// span must start at or after the previous one ends, and the total number
// of unmatched positions between the first start and the last end may not
// exceed slop. The reported span runs from the first child's start to the
// last child's end.
type NearSpans struct {
	children []Spans
	slop     int
	more     bool
	started  bool
	matches  []Span
	idx      int
	cur      Span
	perChild [][]Span
}

func NewNearSpans(slop int, children ...Spans) *NearSpans {
	return &NearSpans{
		children: children,
		slop:     slop,
		more:     len(children) > 0,
		perChild: make([][]Span, len(children)),
	}
}

func (n *NearSpans) Next() bool {
	if n.idx+1 < len(n.matches) {
		n.idx++
		n.cur = n.matches[n.idx]
		return true
	}
	if !n.started {
		n.started = true
		for _, child := range n.children {
			if n.more && !child.Next() {
				n.more = false
			}
		}
	}
	return n.nextMatchingDoc()
}

func (n *NearSpans) SkipTo(target int) bool {
	if n.idx < len(n.matches) && n.cur.Doc >= target {
		return true
	}
	n.matches = n.matches[:0]
	n.idx = 0
	if !n.started {
		n.started = true
		for _, child := range n.children {
			if n.more && !child.SkipTo(target) {
				n.more = false
			}
		}
		return n.nextMatchingDoc()
	}
	for _, child := range n.children {
		if n.more && child.Doc() < target && !child.SkipTo(target) {
			n.more = false
		}
	}
	return n.nextMatchingDoc()
}

// nextMatchingDoc aligns all children on a common document, collects their
// spans there and computes the in-order matches. Documents without a match
// are skipped.
func (n *NearSpans) nextMatchingDoc() bool {
	for n.more {
		doc, ok := n.align()
		if !ok {
			n.more = false
			break
		}
		for k, child := range n.children {
			n.perChild[k] = n.perChild[k][:0]
			for child.Doc() == doc {
				n.perChild[k] = append(n.perChild[k], Span{Doc: doc, Start: child.Start(), End: child.End()})
				if !child.Next() {
					n.more = false
					break
				}
			}
		}
		n.matches = orderedMatches(n.perChild, n.slop, n.matches[:0])
		if len(n.matches) > 0 {
			n.idx = 0
			n.cur = n.matches[0]
			return true
		}
	}
	n.matches = n.matches[:0]
	n.idx = 0
	return false
}

func (n *NearSpans) align() (int, bool) {
	target := 0
	for _, child := range n.children {
		if child.Doc() > target {
			target = child.Doc()
		}
	}
	for {
		aligned := true
		for _, child := range n.children {
			if child.Doc() < target && !child.SkipTo(target) {
				return 0, false
			}
			if child.Doc() > target {
				target = child.Doc()
				aligned = false
			}
		}
		if aligned {
			return target, true
		}
	}
}

// orderedMatches reports, for every span of the first child, the earliest
// in-order chain through the remaining children whose gaps fit in slop.
// Child spans may be wider than one position, so the earliest next span is
// not always part of a fitting chain and candidates are searched in order.
func orderedMatches(perChild [][]Span, slop int, out []Span) []Span {
	if len(perChild) == 0 {
		return out
	}
	for _, first := range perChild[0] {
		if end, ok := chainEnd(perChild[1:], first.End, slop); ok {
			out = append(out, Span{Doc: first.Doc, Start: first.Start, End: end})
		}
	}
	return out
}

// chainEnd extends a chain ending at end through rest, spending at most
// budget unmatched positions, and returns where the first fitting chain ends.
func chainEnd(rest [][]Span, end, budget int) (int, bool) {
	if len(rest) == 0 {
		return end, true
	}
	list := rest[0]
	for k := sort.Search(len(list), func(i int) bool { return list[i].Start >= end }); k < len(list); k++ {
		gap := list[k].Start - end
		if gap > budget {
			break
		}
		if last, ok := chainEnd(rest[1:], list[k].End, budget-gap); ok {
			return last, true
		}
	}
	return 0, false
}

func (n *NearSpans) Doc() int   { return n.cur.Doc }
func (n *NearSpans) Start() int { return n.cur.Start }
func (n *NearSpans) End() int   { return n.cur.End }
