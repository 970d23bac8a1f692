package spans

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/index"
)

// TermSpans yields one single-position span per occurrence of a term.
type TermSpans struct {
	postings index.PostingList
	i        int
	p        int
	started  bool
	done     bool
	doc      int
	pos      int
}

func NewTermSpans(postings index.PostingList) *TermSpans {
	return &TermSpans{postings: postings}
}

func (t *TermSpans) Next() bool {
	if t.done {
		return false
	}
	if !t.started {
		t.started = true
		t.i, t.p = 0, 0
	} else {
		t.p++
	}
	for t.i < len(t.postings) && t.p >= len(t.postings[t.i].Positions) {
		t.i++
		t.p = 0
	}
	return t.position()
}

func (t *TermSpans) SkipTo(target int) bool {
	if t.done {
		return false
	}
	if t.started && t.doc >= target {
		return true
	}
	from := 0
	if t.started {
		from = t.i + 1
	}
	rest := t.postings[from:]
	t.i = from + sort.Search(len(rest), func(k int) bool {
		return rest[k].DocID >= target
	})
	t.p = 0
	t.started = true
	for t.i < len(t.postings) && len(t.postings[t.i].Positions) == 0 {
		t.i++
	}
	return t.position()
}

func (t *TermSpans) position() bool {
	if t.i >= len(t.postings) {
		t.done = true
		return false
	}
	t.doc = t.postings[t.i].DocID
	t.pos = t.postings[t.i].Positions[t.p]
	return true
}

func (t *TermSpans) Doc() int   { return t.doc }
func (t *TermSpans) Start() int { return t.pos }
func (t *TermSpans) End() int   { return t.pos + 1 }
