package index

// Posting lists the positions of one term inside one document. DocID is
// local to the shard that owns the index.
type Posting struct {
	DocID     int   `json:"doc"`
	Positions []int `json:"pos"`
}

// Frequency is the number of occurrences of the term in the document.
func (p Posting) Frequency() int {
	return len(p.Positions)
}

// PostingList is ordered by ascending DocID; positions within a posting are
// ascending too.
type PostingList []Posting
