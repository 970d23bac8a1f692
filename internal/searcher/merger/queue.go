package merger

import "container/heap"

// HitQueue retains the best hits seen so far, up to a fixed capacity. The
// worst retained hit sits at the top of the heap so it can be replaced in
// O(log n).
type HitQueue struct {
	capacity int
	h        hitHeap
}

func NewHitQueue(capacity int, better Better) *HitQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &HitQueue{
		capacity: capacity,
		h:        hitHeap{better: better, hits: make([]ScoredHit, 0, min(capacity, 1024))},
	}
}

// Insert reports whether hit was retained.
func (q *HitQueue) Insert(hit ScoredHit) bool {
	if q.capacity == 0 {
		return false
	}
	if q.h.Len() < q.capacity {
		heap.Push(&q.h, hit)
		return true
	}
	if !q.h.better(hit, q.h.hits[0]) {
		return false
	}
	q.h.hits[0] = hit
	heap.Fix(&q.h, 0)
	return true
}

func (q *HitQueue) Len() int { return q.h.Len() }

// DrainDescending empties the queue, best hit first.
func (q *HitQueue) DrainDescending() []ScoredHit {
	out := make([]ScoredHit, q.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&q.h).(ScoredHit)
	}
	return out
}

type hitHeap struct {
	better Better
	hits   []ScoredHit
}

func (h hitHeap) Len() int           { return len(h.hits) }
func (h hitHeap) Less(i, j int) bool { return h.better(h.hits[j], h.hits[i]) }
func (h hitHeap) Swap(i, j int)      { h.hits[i], h.hits[j] = h.hits[j], h.hits[i] }

func (h *hitHeap) Push(x any) {
	h.hits = append(h.hits, x.(ScoredHit))
}

func (h *hitHeap) Pop() any {
	old := h.hits
	n := len(old)
	item := old[n-1]
	h.hits = old[:n-1]
	return item
}
