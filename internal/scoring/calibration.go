package scoring

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/onnwee/knowledgeshare/internal/tier"
)

// TierBases holds the base rank score granted by each lifecycle tier.
// Archived articles are never ranked, so they carry no base.
type TierBases struct {
	Pending   float64 `json:"pending"`
	Discovery float64 `json:"discovery"`
	Growth    float64 `json:"growth"`
	Viral     float64 `json:"viral"`
}

// RankWeights holds the tunable parameters of the feed ranking formula.
type RankWeights struct {
	TierBase TierBases `json:"tier_base"`

	// SignalScale multiplies log10(1 + raw signal) before the KV gate.
	SignalScale float64 `json:"signal_scale"`

	// LowCap and MediumCap are the KV gate ceilings. High is uncapped.
	LowCap    float64 `json:"low_cap"`
	MediumCap float64 `json:"medium_cap"`

	// FollowerBoost and ContextBoost are multiplicative and independent.
	FollowerBoost float64 `json:"follower_boost"`
	ContextBoost  float64 `json:"context_boost"`

	// Gravity controls freshness decay; evergreen articles resist it.
	Gravity          float64 `json:"gravity"`
	EvergreenGravity float64 `json:"evergreen_gravity"`
}

// Calibration bundles all deploy-time tunable scoring parameters.
type Calibration struct {
	Rank RankWeights     `json:"rank"`
	Tier tier.Thresholds `json:"tier"`
}

// CalibrationFile represents the JSON structure of the calibration file.
type CalibrationFile struct {
	Version string      `json:"version"` // Config version for future compatibility
	Weights Calibration `json:"weights"`
}

// DefaultRankWeights returns the production ranking parameters.
//
// The tier bases give earlier tiers enough initial visibility while the
// log10 signal term bounds the influence of viral spikes, so a single
// breakout article cannot dominate lower tiers indefinitely. The KV caps
// make quality a limiter, never a multiplier.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		TierBase: TierBases{
			Pending:   10,
			Discovery: 20,
			Growth:    40,
			Viral:     80,
		},
		SignalScale:      20,
		LowCap:           60,
		MediumCap:        120,
		FollowerBoost:    1.2,
		ContextBoost:     1.3,
		Gravity:          1.8,
		EvergreenGravity: 0.5,
	}
}

// DefaultCalibration returns the default rank weights and tier thresholds.
func DefaultCalibration() *Calibration {
	return &Calibration{
		Rank: DefaultRankWeights(),
		Tier: tier.DefaultThresholds(),
	}
}

// LoadCalibration loads scoring parameters from a JSON calibration file.
// Partial configurations are merged with defaults for graceful
// degradation; on any error the defaults are returned alongside the error
// so callers can log and continue.
func LoadCalibration(filePath string) (*Calibration, error) {
	if filePath == "" {
		return DefaultCalibration(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var cfg CalibrationFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultCalibration(), &cfg.Weights)
	slog.Info("loaded scoring calibration", "path", filePath)

	return merged, nil
}

// MergeCalibration merges override values onto a base calibration.
// Only non-zero override values are applied, which allows partial
// calibration files.
func MergeCalibration(base *Calibration, override *Calibration) *Calibration {
	// Guard against nil base to avoid panics; fall back to defaults.
	if base == nil {
		base = DefaultCalibration()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	mergeFloat(&result.Rank.TierBase.Pending, override.Rank.TierBase.Pending)
	mergeFloat(&result.Rank.TierBase.Discovery, override.Rank.TierBase.Discovery)
	mergeFloat(&result.Rank.TierBase.Growth, override.Rank.TierBase.Growth)
	mergeFloat(&result.Rank.TierBase.Viral, override.Rank.TierBase.Viral)
	mergeFloat(&result.Rank.SignalScale, override.Rank.SignalScale)
	mergeFloat(&result.Rank.LowCap, override.Rank.LowCap)
	mergeFloat(&result.Rank.MediumCap, override.Rank.MediumCap)
	mergeFloat(&result.Rank.FollowerBoost, override.Rank.FollowerBoost)
	mergeFloat(&result.Rank.ContextBoost, override.Rank.ContextBoost)
	mergeFloat(&result.Rank.Gravity, override.Rank.Gravity)
	mergeFloat(&result.Rank.EvergreenGravity, override.Rank.EvergreenGravity)

	mergeInt(&result.Tier.PendingToDiscovery.MinViews, override.Tier.PendingToDiscovery.MinViews)
	mergeInt(&result.Tier.PendingToDiscovery.MinInteractions, override.Tier.PendingToDiscovery.MinInteractions)
	mergeInt(&result.Tier.DiscoveryToGrowth.MinViews, override.Tier.DiscoveryToGrowth.MinViews)
	mergeFloat(&result.Tier.DiscoveryToGrowth.MinSaveRate, override.Tier.DiscoveryToGrowth.MinSaveRate)
	mergeInt(&result.Tier.DiscoveryToGrowth.MinSuggestions, override.Tier.DiscoveryToGrowth.MinSuggestions)
	mergeInt(&result.Tier.DiscoveryToArchive.MinViews, override.Tier.DiscoveryToArchive.MinViews)
	mergeFloat(&result.Tier.DiscoveryToArchive.MaxEngagementRate, override.Tier.DiscoveryToArchive.MaxEngagementRate)
	mergeInt(&result.Tier.GrowthToViral.MinViews, override.Tier.GrowthToViral.MinViews)
	mergeFloat(&result.Tier.GrowthToViral.MinEngagementRate, override.Tier.GrowthToViral.MinEngagementRate)
	mergeInt(&result.Tier.GrowthToArchive.MinViews, override.Tier.GrowthToArchive.MinViews)
	mergeFloat(&result.Tier.GrowthToArchive.MaxEngagementRate, override.Tier.GrowthToArchive.MaxEngagementRate)

	return &result
}

func mergeFloat(dst *float64, override float64) {
	if override != 0 {
		*dst = override
	}
}

func mergeInt(dst *int64, override int64) {
	if override != 0 {
		*dst = override
	}
}
