package spans

import "container/heap"

// OrSpans merges any number of child iterators into one ordered stream.
type OrSpans struct {
	children []Spans
	queue    spanQueue
	started  bool
	cur      Span
}

func NewOrSpans(children ...Spans) *OrSpans {
	return &OrSpans{children: children}
}

func (o *OrSpans) Next() bool {
	if !o.started {
		return o.init(func(s Spans) bool { return s.Next() })
	}
	if len(o.queue) == 0 {
		return false
	}
	if o.queue[0].Next() {
		heap.Fix(&o.queue, 0)
	} else {
		heap.Pop(&o.queue)
	}
	return o.top()
}

func (o *OrSpans) SkipTo(target int) bool {
	if !o.started {
		return o.init(func(s Spans) bool { return s.SkipTo(target) })
	}
	for len(o.queue) > 0 && o.queue[0].Doc() < target {
		if o.queue[0].SkipTo(target) {
			heap.Fix(&o.queue, 0)
		} else {
			heap.Pop(&o.queue)
		}
	}
	return o.top()
}

func (o *OrSpans) init(advance func(Spans) bool) bool {
	o.started = true
	o.queue = make(spanQueue, 0, len(o.children))
	for _, child := range o.children {
		if advance(child) {
			o.queue = append(o.queue, child)
		}
	}
	heap.Init(&o.queue)
	return o.top()
}

func (o *OrSpans) top() bool {
	if len(o.queue) == 0 {
		return false
	}
	t := o.queue[0]
	o.cur = Span{Doc: t.Doc(), Start: t.Start(), End: t.End()}
	return true
}

func (o *OrSpans) Doc() int   { return o.cur.Doc }
func (o *OrSpans) Start() int { return o.cur.Start }
func (o *OrSpans) End() int   { return o.cur.End }

type spanQueue []Spans

func (q spanQueue) Len() int           { return len(q) }
func (q spanQueue) Less(i, j int) bool { return before(q[i], q[j]) }
func (q spanQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *spanQueue) Push(x any) {
	*q = append(*q, x.(Spans))
}

func (q *spanQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
