// Package author provides models and repositories for author reputation.
package author

import "errors"

// Common errors for author operations.
var (
	ErrAuthorNotFound = errors.New("author not found")
	ErrEmptyBatch     = errors.New("empty update batch")
)

// Author represents a content author with engine-derived reputation fields.
// KnowledgeScore is recomputed from scratch each cycle; ReputationScore is
// its display transform (knowledge score x100, rounded).
type Author struct {
	ID              string  `json:"id"`
	KnowledgeScore  float64 `json:"knowledge_score"`
	ReputationScore int     `json:"reputation_score"`
}

// ContributionSum aggregates the interaction counters of an author's
// currently published articles. Archived articles are excluded upstream,
// which is what makes reputation decay implicitly over time.
type ContributionSum struct {
	AuthorID    string `json:"author_id"`
	Suggestions int64  `json:"suggestions"`
	Saves       int64  `json:"saves"`
	Upvotes     int64  `json:"upvotes"`
}

// ReputationUpdate carries the recomputed reputation for one author.
type ReputationUpdate struct {
	ID              string
	KnowledgeScore  float64
	ReputationScore int
}
