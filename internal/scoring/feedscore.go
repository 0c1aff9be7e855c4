package scoring

import (
	"math"
	"time"

	"github.com/onnwee/knowledgeshare/internal/article"
)

// Raw signal weights for the ranking formula. Suggestions represent the
// deepest engagement and are weighted highest.
const (
	RankUpvoteWeight     = 1
	RankSaveWeight       = 2
	RankSuggestionWeight = 5
)

// EvergreenSaveRate is the save-rate floor above which a high-KV article
// is flagged evergreen and decays far slower.
const EvergreenSaveRate = 0.1

// AgeOffsetHours is added to the article age before applying gravity so
// brand-new articles do not spike from a near-zero denominator.
const AgeOffsetHours = 2.0

// ViewerContext carries the optional personalization signals for a rank
// computation. The zero value is the global-feed context: no follower
// relationship, no context match, no boosts applied.
type ViewerContext struct {
	IsFollower      bool
	HasContextMatch bool
}

// GlobalFeed is the no-personalization viewer context used by the batch
// rescoring path.
var GlobalFeed = ViewerContext{}

// RankInput is the per-article input to the feed ranking formula.
type RankInput struct {
	Tier        article.Tier
	KVScore     article.KVScore
	IsEvergreen bool
	Counters    article.Counters
	CreatedAt   time.Time
}

// RawSignal computes the weighted interaction signal for ranking.
func RawSignal(c article.Counters) int64 {
	return c.Upvotes*RankUpvoteWeight + c.Saves*RankSaveWeight + c.Suggestions*RankSuggestionWeight
}

// IsEvergreen reports whether an article qualifies as evergreen: high KV
// with a sustained save rate.
func IsEvergreen(c article.Counters, kv article.KVScore) bool {
	return kv == article.KVHigh && c.SaveRate() > EvergreenSaveRate
}

// FeedScore computes the context-free-or-personalized feed rank score.
//
// The score is tierBase + log10(1+signal)*scale, capped by the KV gate,
// boosted by the viewer context, then divided by (ageHours+2)^gravity.
// Archived articles are excluded upstream; if one reaches here it gets a
// zero tier base and decays like anything else.
func FeedScore(in RankInput, viewer ViewerContext, w RankWeights, now time.Time) float64 {
	rawSignal := RawSignal(in.Counters)

	var tierBase float64
	switch in.Tier {
	case article.TierPending:
		tierBase = w.TierBase.Pending
	case article.TierDiscovery:
		tierBase = w.TierBase.Discovery
	case article.TierGrowth:
		tierBase = w.TierBase.Growth
	case article.TierViral:
		tierBase = w.TierBase.Viral
	}

	// Logarithmic containment: log10 of the signal keeps slight virality
	// from dominating lower tiers.
	discoveryScore := tierBase + math.Log10(1+float64(rawSignal))*w.SignalScale

	// KV acts as a limiter, never a booster.
	gatedScore := discoveryScore
	switch in.KVScore {
	case article.KVLow:
		gatedScore = math.Min(discoveryScore, w.LowCap)
	case article.KVMedium:
		gatedScore = math.Min(discoveryScore, w.MediumCap)
	case article.KVHigh:
		// Uncapped.
	}

	boost := 1.0
	if viewer.IsFollower {
		boost *= w.FollowerBoost
	}
	if viewer.HasContextMatch {
		boost *= w.ContextBoost
	}

	gravity := w.Gravity
	if in.IsEvergreen {
		gravity = w.EvergreenGravity
	}

	ageHours := math.Max(0, now.Sub(in.CreatedAt).Hours())
	denominator := math.Pow(ageHours+AgeOffsetHours, gravity)
	if denominator == 0 {
		return 0
	}

	return (gatedScore * boost) / denominator
}
