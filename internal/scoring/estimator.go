package scoring

import (
	"math"

	"github.com/onnwee/knowledgeshare/internal/article"
)

// WilsonZ is the fixed confidence constant for the Wilson lower bound,
// corresponding to a 95% confidence interval.
const WilsonZ = 1.96

// KV class thresholds on the Wilson lower bound.
const (
	KVHighThreshold   = 0.6
	KVMediumThreshold = 0.3
)

// Positive-signal weights for the quality estimate. Suggestions carry the
// strongest quality signal, saves medium, upvotes baseline.
const (
	KVSuggestionWeight = 3
	KVSaveWeight       = 2
	KVUpvoteWeight     = 1
)

// WilsonLowerBound returns the lower bound of the Wilson score confidence
// interval for the proportion positive/total. It is a conservative
// estimate that stays low for small samples. Returns 0 when total is 0.
func WilsonLowerBound(positive, total int64) float64 {
	if total == 0 {
		return 0
	}

	n := float64(total)
	phat := float64(positive) / n
	z2 := WilsonZ * WilsonZ

	numerator := phat + z2/(2*n) - WilsonZ*math.Sqrt((phat*(1-phat)+z2/(4*n))/n)
	denominator := 1 + z2/n

	return numerator / denominator
}

// PositiveSignal computes the weighted positive interaction count used as
// the success count in the Wilson estimate.
func PositiveSignal(c article.Counters) int64 {
	return c.Suggestions*KVSuggestionWeight + c.Saves*KVSaveWeight + c.Upvotes*KVUpvoteWeight
}

// MapKV maps a Wilson lower bound to a discrete quality class.
func MapKV(score float64) article.KVScore {
	if score >= KVHighThreshold {
		return article.KVHigh
	}
	if score >= KVMediumThreshold {
		return article.KVMedium
	}
	return article.KVLow
}

// ComputeKV derives the confidence-adjusted quality estimate and class
// from raw interaction counters. The total is clamped to at least the
// positive signal so the ratio never exceeds 1.
func ComputeKV(c article.Counters) (float64, article.KVScore) {
	positive := PositiveSignal(c)
	total := c.Views
	if positive > total {
		total = positive
	}
	score := WilsonLowerBound(positive, total)
	return score, MapKV(score)
}
