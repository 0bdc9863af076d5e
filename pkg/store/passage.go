package store

import "time"

// Passage is one retrievable unit of source text. Immutable once stored;
// owned by exactly one collection.
type Passage struct {
	ID        string
	Text      string
	Source    string
	Page      *int
	IndexedAt time.Time
}

// SearchMode selects between plain similarity ranking and a diversity-aware
// variant that trades some relevance for reduced redundancy among results.
type SearchMode string

const (
	SearchSimilarity SearchMode = "similarity"
	SearchDiversity  SearchMode = "diversity"
)
