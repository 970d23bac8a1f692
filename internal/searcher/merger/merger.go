package merger

// Merger folds per-shard pages into one global top N. It is fed from a
// single goroutine and holds no lock.
//
// For sorted searches the comparator starts unresolved and is fixed once,
// from the sort types reported by the first page. Values of later pages are
// coerced to those types, so one comparator orders every hit.
type Merger struct {
	nDocs     int
	sort      *Sort
	queue     *HitQueue
	totalHits int
	maxScore  float64
	sawHits   bool
}

func New(nDocs int, sort *Sort) *Merger {
	m := &Merger{nDocs: nDocs, sort: sort}
	if sort == nil || !sort.NeedsResolve() {
		m.queue = NewHitQueue(nDocs, sort.Comparator())
	}
	return m
}

// Add merges one page. A page ordered by the merger's own types is best
// first, so its first rejected hit ends it.
func (m *Merger) Add(page *TopDocs) {
	if page == nil {
		return
	}
	if m.queue == nil {
		m.sort = m.sort.Resolve(page.SortFields)
		m.queue = NewHitQueue(m.nDocs, m.sort.Comparator())
	}
	m.totalHits += page.TotalHits
	if len(page.Hits) > 0 && (!m.sawHits || page.MaxScore > m.maxScore) {
		m.maxScore = page.MaxScore
		m.sawHits = true
	}
	sameOrder := m.sameTypes(page.SortFields)
	for _, hit := range page.Hits {
		if !sameOrder {
			hit.Fields = m.coerce(hit.Fields)
		}
		if !m.queue.Insert(hit) && sameOrder {
			break
		}
	}
}

// sameTypes reports whether a page was sorted with the merger's types.
func (m *Merger) sameTypes(fields []SortField) bool {
	if m.sort == nil {
		return true
	}
	if len(fields) != len(m.sort.Fields) {
		return false
	}
	for i, f := range m.sort.Fields {
		if fields[i].Field != f.Field || fields[i].Type != f.Type {
			return false
		}
	}
	return true
}

func (m *Merger) coerce(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
		if i < len(m.sort.Fields) {
			switch t := m.sort.Fields[i].Type; t {
			case SortScore, SortDoc:
			default:
				out[i] = Coerce(t, v)
			}
		}
	}
	return out
}

// Result drains the merged hits; call it once, after the last Add.
func (m *Merger) Result() *TopDocs {
	td := Empty()
	td.TotalHits = m.totalHits
	td.MaxScore = m.maxScore
	if m.sort != nil {
		td.SortFields = m.sort.Fields
	}
	if m.queue != nil {
		td.Hits = m.queue.DrainDescending()
	}
	return td
}
