// Package scoring implements the knowledge/feed scoring engine: the
// Wilson-bound quality estimator, the gated feed ranking formula, the
// author knowledge score, and the batch recompute service that applies
// them to the store.
//
// Basic usage:
//
//	// Load calibration (typically at startup)
//	calibration, err := scoring.LoadCalibration("configs/scoring.calibration.json")
//	if err != nil {
//		slog.Warn("using default calibration", "error", err)
//	}
//
//	svc := scoring.NewService(scoring.ServiceConfig{
//		Articles:    articleRepo,
//		Authors:     authorRepo,
//		Cache:       invalidator,
//		Calibration: calibration,
//	})
//
//	summary, err := svc.RescoreArticles(ctx, 200, nil)
//
// The pure formula functions have no shared state and are safe to call
// concurrently. All mutation goes through the repositories, in bounded
// sub-batches each wrapped in its own transaction; a failed sub-batch
// never rolls back previously committed ones.
//
// Calibration:
//
// Rank weights and tier thresholds are deploy-time tunable via a JSON
// calibration file loaded at startup. This enables A/B testing without
// code changes (but requires a restart to pick up new values).
package scoring
