// Package article provides models and repositories for content articles
// and their engine-derived scoring fields.
package article

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for article operations.
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrNegativeCounter = errors.New("interaction counter is negative")
	ErrEmptyBatch      = errors.New("empty update batch")
)

// Status represents the publication state of an article.
// The scoring engine only ever considers published articles.
type Status string

// Valid article statuses.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Tier represents the discrete lifecycle stage of an article.
// Transitions move forward only: pending -> discovery -> growth -> viral,
// with discovery and growth able to drop directly to archived.
// Archived is terminal.
type Tier string

// Lifecycle tiers, stored as stable string values in the database.
const (
	TierPending   Tier = "pending"
	TierDiscovery Tier = "discovery"
	TierGrowth    Tier = "growth"
	TierViral     Tier = "viral"
	TierArchived  Tier = "archived"
)

// ValidTier reports whether t is a known tier value.
func ValidTier(t Tier) bool {
	switch t {
	case TierPending, TierDiscovery, TierGrowth, TierViral, TierArchived:
		return true
	}
	return false
}

// KVScore is the knowledge-verification quality class derived from the
// confidence-adjusted engagement ratio. Written only by the scoring engine.
type KVScore string

// Quality classes.
const (
	KVLow    KVScore = "low"
	KVMedium KVScore = "medium"
	KVHigh   KVScore = "high"
)

// Counters holds the raw interaction counts for an article. The engine
// reads them; they are mutated only by the interaction-recording paths.
type Counters struct {
	Views       int64 `json:"views"`
	Saves       int64 `json:"saves"`
	Suggestions int64 `json:"suggestions"`
	Upvotes     int64 `json:"upvotes"`
}

// Validate rejects counters that cannot come from a well-behaved store.
// A negative counter marks the article as failed for the current run.
func (c Counters) Validate() error {
	if c.Views < 0 || c.Saves < 0 || c.Suggestions < 0 || c.Upvotes < 0 {
		return fmt.Errorf("%w: views=%d saves=%d suggestions=%d upvotes=%d",
			ErrNegativeCounter, c.Views, c.Saves, c.Suggestions, c.Upvotes)
	}
	return nil
}

// Interactions returns the unweighted sum of non-view interactions.
func (c Counters) Interactions() int64 {
	return c.Saves + c.Suggestions + c.Upvotes
}

// SaveRate returns saves/views, or 0 when there are no views.
func (c Counters) SaveRate() float64 {
	if c.Views <= 0 {
		return 0
	}
	return float64(c.Saves) / float64(c.Views)
}

// EngagementRate returns (saves+suggestions+upvotes)/views, or 0 when
// there are no views.
func (c Counters) EngagementRate() float64 {
	if c.Views <= 0 {
		return 0
	}
	return float64(c.Interactions()) / float64(c.Views)
}

// Article represents a content article with its engine-derived fields.
// The engine never creates or deletes articles; it only writes KVScore,
// IsEvergreen, RankScore and Tier.
type Article struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Status      Status    `json:"status"`
	Tier        Tier      `json:"tier"`
	KVScore     KVScore   `json:"kv_score"`
	IsEvergreen bool      `json:"is_evergreen"`
	RankScore   float64   `json:"rank_score"`
	Counters    Counters  `json:"counters"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoreUpdate carries the rescoring result for one article.
type ScoreUpdate struct {
	ID          string
	KVScore     KVScore
	IsEvergreen bool
	RankScore   float64
}

// TierUpdate carries a tier transition for one article.
type TierUpdate struct {
	ID   string
	Tier Tier
}

// Filter narrows a ListPublished query. The zero value selects all
// published articles.
type Filter struct {
	// ID restricts the listing to a single article when non-nil.
	ID *string
	// Tiers restricts the listing to articles in any of the given tiers.
	// Empty means all tiers.
	Tiers []Tier
}

// Matches reports whether a matches the filter. Status is checked by the
// repository, not here.
func (f Filter) Matches(a *Article) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	if len(f.Tiers) > 0 {
		found := false
		for _, t := range f.Tiers {
			if a.Tier == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
