// Package spans implements positional match iterators. A span is a
// (doc, start, end) triple with start < end; every iterator yields its spans
// in non-decreasing (doc, start) order.
package spans

// Spans is a forward-only cursor over spans.
//
// Doc, Start and End are only meaningful after Next or SkipTo returned true.
// Once an iterator is exhausted, Next and SkipTo keep returning false and the
// last reported span is left untouched.
type Spans interface {
	// Next moves to the following span.
	Next() bool
	// SkipTo moves to the first span whose document is >= target. An
	// iterator already positioned on such a span does not move.
	SkipTo(target int) bool
	Doc() int
	Start() int
	End() int
}

// Span is a single materialised match.
type Span struct {
	Doc   int `json:"doc"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Collect drains s into a slice.
func Collect(s Spans) []Span {
	var out []Span
	for s.Next() {
		out = append(out, Span{Doc: s.Doc(), Start: s.Start(), End: s.End()})
	}
	return out
}

func before(a, b Spans) bool {
	if a.Doc() != b.Doc() {
		return a.Doc() < b.Doc()
	}
	if a.Start() != b.Start() {
		return a.Start() < b.Start()
	}
	return a.End() < b.End()
}
