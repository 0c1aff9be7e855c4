package scoring

import (
	"math"

	"github.com/onnwee/knowledgeshare/internal/author"
)

// Contribution point weights. Suggestions prove the deepest engagement
// with an author's work; saves medium; upvotes baseline.
const (
	ContributionSuggestionWeight = 10
	ContributionSaveWeight       = 5
	ContributionUpvoteWeight     = 1
)

// DefaultDecayFactor is the per-cycle decay applied to a carried-over
// knowledge score. The batch recompute always starts from zero, so decay
// in practice is implicit: archived articles drop out of the contribution
// sum and the score falls with them.
const DefaultDecayFactor = 0.995

// ReputationScale converts a knowledge score to its integer display form.
const ReputationScale = 100

// ContributionPoints computes an author's weighted contribution total
// from the interaction sums of their published articles.
func ContributionPoints(s author.ContributionSum) int64 {
	return s.Suggestions*ContributionSuggestionWeight +
		s.Saves*ContributionSaveWeight +
		s.Upvotes*ContributionUpvoteWeight
}

// KnowledgeScore computes the author reputation aggregate:
//
//	newKS = currentKS*decayFactor + log10(1 + contributionPoints)
//
// Growth is logarithmic to prevent inflation; decay keeps long-inactive
// authors from dominating forever when a carried-over score is used.
func KnowledgeScore(currentKS float64, contributionPoints int64, decayFactor float64) float64 {
	growth := math.Log10(1 + float64(contributionPoints))
	return currentKS*decayFactor + growth
}

// ReputationScore converts a knowledge score to its rounded display form.
func ReputationScore(knowledgeScore float64) int {
	return int(math.Round(knowledgeScore * ReputationScale))
}
