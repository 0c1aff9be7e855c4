package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRankWeights(t *testing.T) {
	w := DefaultRankWeights()

	if w.TierBase.Pending != 10 || w.TierBase.Discovery != 20 || w.TierBase.Growth != 40 || w.TierBase.Viral != 80 {
		t.Errorf("unexpected tier bases: %+v", w.TierBase)
	}
	if w.SignalScale != 20 {
		t.Errorf("expected signal scale 20, got %f", w.SignalScale)
	}
	if w.LowCap != 60 || w.MediumCap != 120 {
		t.Errorf("unexpected KV caps: low=%f medium=%f", w.LowCap, w.MediumCap)
	}
	if w.FollowerBoost != 1.2 || w.ContextBoost != 1.3 {
		t.Errorf("unexpected boosts: follower=%f context=%f", w.FollowerBoost, w.ContextBoost)
	}
	if w.Gravity != 1.8 || w.EvergreenGravity != 0.5 {
		t.Errorf("unexpected gravity: %f evergreen=%f", w.Gravity, w.EvergreenGravity)
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	cal, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("expected no error for empty path, got %v", err)
	}
	if cal.Rank != DefaultRankWeights() {
		t.Error("expected default rank weights for empty path")
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	cal, err := LoadCalibration("/nonexistent/calibration.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	// Defaults still returned so the caller can log and continue.
	if cal == nil || cal.Rank != DefaultRankWeights() {
		t.Error("expected defaults alongside the error")
	}
}

func TestLoadCalibration_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	cal, err := LoadCalibration(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if cal == nil || cal.Rank != DefaultRankWeights() {
		t.Error("expected defaults alongside the error")
	}
}

func TestLoadCalibration_PartialOverride(t *testing.T) {
	content := `{
		"version": "1.0",
		"weights": {
			"rank": {
				"signal_scale": 25,
				"tier_base": {"viral": 100}
			},
			"tier": {
				"pending_to_discovery": {"min_views": 20}
			}
		}
	}`
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cal.Rank.SignalScale != 25 {
		t.Errorf("expected overridden signal scale 25, got %f", cal.Rank.SignalScale)
	}
	if cal.Rank.TierBase.Viral != 100 {
		t.Errorf("expected overridden viral base 100, got %f", cal.Rank.TierBase.Viral)
	}
	if cal.Tier.PendingToDiscovery.MinViews != 20 {
		t.Errorf("expected overridden min views 20, got %d", cal.Tier.PendingToDiscovery.MinViews)
	}

	// Everything not named in the file keeps its default.
	if cal.Rank.TierBase.Pending != 10 {
		t.Errorf("expected default pending base 10, got %f", cal.Rank.TierBase.Pending)
	}
	if cal.Rank.Gravity != 1.8 {
		t.Errorf("expected default gravity 1.8, got %f", cal.Rank.Gravity)
	}
	if cal.Tier.GrowthToViral.MinViews != 500 {
		t.Errorf("expected default growth-to-viral min views 500, got %d", cal.Tier.GrowthToViral.MinViews)
	}
}

func TestMergeCalibration_NilOverride(t *testing.T) {
	base := DefaultCalibration()
	merged := MergeCalibration(base, nil)

	if merged == base {
		t.Error("expected a copy, not the base pointer")
	}
	if merged.Rank != base.Rank {
		t.Error("expected merged rank weights to equal base")
	}
}

func TestMergeCalibration_NilBase(t *testing.T) {
	override := &Calibration{}
	override.Rank.SignalScale = 30

	merged := MergeCalibration(nil, override)
	if merged.Rank.SignalScale != 30 {
		t.Errorf("expected override applied onto defaults, got %f", merged.Rank.SignalScale)
	}
	if merged.Rank.Gravity != 1.8 {
		t.Errorf("expected default gravity retained, got %f", merged.Rank.Gravity)
	}
}

func TestMergeCalibration_ZeroValuesIgnored(t *testing.T) {
	base := DefaultCalibration()
	override := &Calibration{} // all zero

	merged := MergeCalibration(base, override)
	if merged.Rank != base.Rank || merged.Tier != base.Tier {
		t.Error("expected all-zero override to leave base untouched")
	}
}
