// Package merger keeps the best N hits of a search, within one shard and
// across shards.
package merger

// ScoredHit is one ranked document. Doc is shard-local until the executor
// translates it to a global id.
type ScoredHit struct {
	Doc    int     `json:"doc"`
	Score  float64 `json:"score"`
	Fields []any   `json:"fields,omitempty"`
	Shard  int     `json:"shard"`
}

// TopDocs is a page of hits, best first.
type TopDocs struct {
	TotalHits  int         `json:"total_hits"`
	Hits       []ScoredHit `json:"hits"`
	MaxScore   float64     `json:"max_score"`
	SortFields []SortField `json:"sort_fields,omitempty"`
}

// Empty reports a page without hits.
func Empty() *TopDocs {
	return &TopDocs{Hits: []ScoredHit{}}
}
