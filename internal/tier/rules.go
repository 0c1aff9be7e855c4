// Package tier implements the lifecycle tier state machine for articles.
//
// Tiers move forward only: pending -> discovery -> growth -> viral.
// Discovery and growth can drop directly to archived when sustained volume
// fails to produce engagement. Archived is terminal and viral does not
// currently demote.
package tier

import (
	"github.com/onnwee/knowledgeshare/internal/article"
)

// PendingToDiscovery promotes out of the pending pool on either raw views
// or a minimal interaction count.
type PendingToDiscovery struct {
	MinViews        int64 `json:"min_views"`
	MinInteractions int64 `json:"min_interactions"`
}

// DiscoveryToGrowth promotes on volume plus either save rate or an
// absolute suggestion count.
type DiscoveryToGrowth struct {
	MinViews       int64   `json:"min_views"`
	MinSaveRate    float64 `json:"min_save_rate"`
	MinSuggestions int64   `json:"min_suggestions"`
}

// DiscoveryToArchive demotes when volume is high but engagement stays low.
type DiscoveryToArchive struct {
	MinViews          int64   `json:"min_views"`
	MaxEngagementRate float64 `json:"max_engagement_rate"`
}

// GrowthToViral promotes on high volume with sustained engagement.
type GrowthToViral struct {
	MinViews          int64   `json:"min_views"`
	MinEngagementRate float64 `json:"min_engagement_rate"`
}

// GrowthToArchive demotes when growth-stage volume fails to engage.
type GrowthToArchive struct {
	MinViews          int64   `json:"min_views"`
	MaxEngagementRate float64 `json:"max_engagement_rate"`
}

// Thresholds is the full transition threshold table. It is passed
// explicitly into Next rather than read from package state, so tests and
// environments can tune it freely.
type Thresholds struct {
	PendingToDiscovery PendingToDiscovery `json:"pending_to_discovery"`
	DiscoveryToGrowth  DiscoveryToGrowth  `json:"discovery_to_growth"`
	DiscoveryToArchive DiscoveryToArchive `json:"discovery_to_archive"`
	GrowthToViral      GrowthToViral      `json:"growth_to_viral"`
	GrowthToArchive    GrowthToArchive    `json:"growth_to_archive"`
}

// DefaultThresholds returns the production threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PendingToDiscovery: PendingToDiscovery{MinViews: 10, MinInteractions: 3},
		DiscoveryToGrowth:  DiscoveryToGrowth{MinViews: 100, MinSaveRate: 0.05, MinSuggestions: 1},
		DiscoveryToArchive: DiscoveryToArchive{MinViews: 200, MaxEngagementRate: 0.01},
		GrowthToViral:      GrowthToViral{MinViews: 500, MinEngagementRate: 0.05},
		GrowthToArchive:    GrowthToArchive{MinViews: 500, MaxEngagementRate: 0.01},
	}
}

// Next evaluates the transition rules for the current tier and counters.
// It returns the next tier and true when a transition applies, or the
// current tier and false when the article stays where it is.
//
// Demotion to archived is checked before promotion: sustained low
// engagement at volume outweighs a thin promotion signal when both
// thresholds are crossed in the same window.
func Next(current article.Tier, c article.Counters, th Thresholds) (article.Tier, bool) {
	switch current {
	case article.TierPending:
		if c.Views >= th.PendingToDiscovery.MinViews ||
			c.Interactions() >= th.PendingToDiscovery.MinInteractions {
			return article.TierDiscovery, true
		}

	case article.TierDiscovery:
		if c.Views > th.DiscoveryToArchive.MinViews &&
			c.EngagementRate() < th.DiscoveryToArchive.MaxEngagementRate {
			return article.TierArchived, true
		}
		if c.Views > th.DiscoveryToGrowth.MinViews &&
			(c.SaveRate() > th.DiscoveryToGrowth.MinSaveRate ||
				c.Suggestions >= th.DiscoveryToGrowth.MinSuggestions) {
			return article.TierGrowth, true
		}

	case article.TierGrowth:
		if c.Views > th.GrowthToArchive.MinViews &&
			c.EngagementRate() < th.GrowthToArchive.MaxEngagementRate {
			return article.TierArchived, true
		}
		if c.Views > th.GrowthToViral.MinViews &&
			c.EngagementRate() > th.GrowthToViral.MinEngagementRate {
			return article.TierViral, true
		}

	case article.TierViral, article.TierArchived:
		// No outgoing transitions.
	}

	return current, false
}
