package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/tokenizer"
)

// MemoryIndex is a positional inverted index for one shard. Documents get
// consecutive local ids starting at zero in the order they are added, so
// every posting list stays sorted by construction.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[string]PostingList
	stored   []map[string]string
	lengths  map[string][]int
	totalLen map[string]int64
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:    make(map[string]map[string]PostingList),
		lengths:  make(map[string][]int),
		totalLen: make(map[string]int64),
	}
}

// AddDocument tokenizes every field, appends the positional postings and
// stores the raw field values. It returns the new local document id.
func (m *MemoryIndex) AddDocument(fields map[string]string) int {
	type termData struct {
		field string
		term  string
		pos   []int
	}
	analyzed := make([]termData, 0, len(fields)*8)
	fieldLens := make(map[string]int, len(fields))
	for field, text := range fields {
		fieldLens[field] = tokenizer.WordCount(text)
		byTerm := make(map[string]int)
		for _, token := range tokenizer.Tokenize(text) {
			idx, exists := byTerm[token.Term]
			if !exists {
				idx = len(analyzed)
				byTerm[token.Term] = idx
				analyzed = append(analyzed, termData{field: field, term: token.Term, pos: make([]int, 0, 4)})
			}
			analyzed[idx].pos = append(analyzed[idx].pos, token.Position)
		}
	}

	stored := make(map[string]string, len(fields))
	for k, v := range fields {
		stored[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docID := len(m.stored)
	m.stored = append(m.stored, stored)
	for _, td := range analyzed {
		terms, exists := m.index[td.field]
		if !exists {
			terms = make(map[string]PostingList)
			m.index[td.field] = terms
		}
		terms[td.term] = append(terms[td.term], Posting{DocID: docID, Positions: td.pos})
		m.size += int64(len(td.term) + len(td.pos)*8 + 64)
	}
	for field, lens := range m.lengths {
		if _, ok := fieldLens[field]; !ok {
			m.lengths[field] = append(lens, 0)
		}
	}
	for field, n := range fieldLens {
		lens, exists := m.lengths[field]
		if !exists {
			lens = make([]int, docID, docID+1)
		}
		m.lengths[field] = append(lens, n)
		m.totalLen[field] += int64(n)
	}
	return docID
}

// Postings returns the posting list for field:text. The returned slice must
// not be modified.
func (m *MemoryIndex) Postings(field, text string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[field][text], nil
}

// Terms lists, in sorted order, the indexed terms of field that start with
// prefix.
func (m *MemoryIndex) Terms(field, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0)
	for term := range m.index[field] {
		if strings.HasPrefix(term, prefix) {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	return terms, nil
}

func (m *MemoryIndex) DocFreq(field, text string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index[field][text])
}

// MaxDoc is one greater than the largest local document id.
func (m *MemoryIndex) MaxDoc() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stored)
}

// FieldLength is the number of word positions of field in doc.
func (m *MemoryIndex) FieldLength(doc int, field string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lens := m.lengths[field]
	if doc < 0 || doc >= len(lens) {
		return 0
	}
	return lens[doc]
}

func (m *MemoryIndex) AvgFieldLength(field string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.stored) == 0 {
		return 0
	}
	return float64(m.totalLen[field]) / float64(len(m.stored))
}

// Stored returns a copy of the raw fields of doc, or nil when doc is out of
// range.
func (m *MemoryIndex) Stored(doc int) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc < 0 || doc >= len(m.stored) {
		return nil
	}
	out := make(map[string]string, len(m.stored[doc]))
	for k, v := range m.stored[doc] {
		out[k] = v
	}
	return out
}

// StoredValue returns the raw value of one field of doc.
func (m *MemoryIndex) StoredValue(doc int, field string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc < 0 || doc >= len(m.stored) {
		return "", false
	}
	v, ok := m.stored[doc][field]
	return v, ok
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}
