package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/knowledgeshare/internal/article"
	"github.com/onnwee/knowledgeshare/internal/author"
	"github.com/onnwee/knowledgeshare/internal/cache"
	"github.com/onnwee/knowledgeshare/internal/tier"
)

// DefaultBatchSize bounds the number of rows written per transaction.
const DefaultBatchSize = 200

// Entry point names used in logs and metric labels.
const (
	EntryRescore    = "rescore_articles"
	EntryRetier     = "retier_articles"
	EntryReputation = "recalc_author_scores"
)

// retierPool is the set of tiers re-evaluated by the tiering pass.
// Viral is already maximal for this pass and archived is terminal.
var retierPool = []article.Tier{article.TierPending, article.TierDiscovery, article.TierGrowth}

// Summary reports the outcome of one recompute invocation. Partial
// failure is reported here rather than as an error: only a failed store
// read aborts an invocation.
type Summary struct {
	// Attempted is the number of items examined.
	Attempted int
	// Updated is the number of items whose writes committed.
	Updated int
	// Failed counts items skipped by validation plus items in failed
	// sub-batches.
	Failed int
}

// ServiceConfig configures the batch recompute service.
type ServiceConfig struct {
	Articles article.Repository
	Authors  author.Repository
	// Cache invalidates the reputation leaderboard after a reputation
	// recompute. Optional; nil disables invalidation.
	Cache cache.Invalidator
	// Calibration provides rank weights and tier thresholds. Nil uses
	// defaults.
	Calibration *Calibration
	// LeaderboardKey is the cache key cleared after reputation runs.
	LeaderboardKey string
	// Logger for recompute activity.
	Logger *slog.Logger
	// Metrics for performance tracking. Optional.
	Metrics *Metrics
	// Now is the clock used for freshness decay. Defaults to time.Now.
	Now func() time.Time
}

// Service is the batch recompute orchestrator. Each entry point is
// idempotent: re-running on unchanged counters produces identical derived
// fields. The three entry points write disjoint field sets and may run
// concurrently with each other.
type Service struct {
	articles       article.Repository
	authors        author.Repository
	cache          cache.Invalidator
	calibration    *Calibration
	leaderboardKey string
	logger         *slog.Logger
	metrics        *Metrics
	now            func() time.Time
}

// NewService creates a new batch recompute service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Calibration == nil {
		cfg.Calibration = DefaultCalibration()
	}
	if cfg.LeaderboardKey == "" {
		cfg.LeaderboardKey = cache.DefaultLeaderboardKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		articles:       cfg.Articles,
		authors:        cfg.Authors,
		cache:          cfg.Cache,
		calibration:    cfg.Calibration,
		leaderboardKey: cfg.LeaderboardKey,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		now:            cfg.Now,
	}
}

// RescoreArticles recomputes kv_score, is_evergreen and rank_score for
// published articles, optionally restricted to a single article.
// Updates are persisted in sub-batches of batchSize, each its own
// transaction; a failed sub-batch does not roll back committed ones.
func (s *Service) RescoreArticles(ctx context.Context, batchSize int, articleID *string) (Summary, error) {
	start := s.now()
	defer s.observe(EntryRescore, start)

	articles, err := s.articles.ListPublished(ctx, article.Filter{ID: articleID})
	if err != nil {
		s.countError(EntryRescore)
		return Summary{}, fmt.Errorf("failed to load articles for rescoring: %w", err)
	}

	summary := Summary{Attempted: len(articles)}
	now := s.now()
	updates := make([]article.ScoreUpdate, 0, len(articles))

	for _, a := range articles {
		if err := a.Counters.Validate(); err != nil {
			s.logger.Warn("skipping article with invalid counters",
				"article_id", a.ID,
				"error", err)
			summary.Failed++
			continue
		}

		_, kv := ComputeKV(a.Counters)
		evergreen := IsEvergreen(a.Counters, kv)
		rank := FeedScore(RankInput{
			Tier:        a.Tier,
			KVScore:     kv,
			IsEvergreen: evergreen,
			Counters:    a.Counters,
			CreatedAt:   a.CreatedAt,
		}, GlobalFeed, s.calibration.Rank, now)

		updates = append(updates, article.ScoreUpdate{
			ID:          a.ID,
			KVScore:     kv,
			IsEvergreen: evergreen,
			RankScore:   rank,
		})
	}

	s.flushScoreUpdates(ctx, updates, batchSize, &summary)

	s.logger.Info("article rescoring completed",
		"attempted", summary.Attempted,
		"updated", summary.Updated,
		"failed", summary.Failed)
	s.recordRun(EntryRescore, summary)

	return summary, nil
}

// RetierArticles evaluates tier transitions for published articles in the
// pending, discovery and growth pool and persists the articles whose tier
// actually changes.
func (s *Service) RetierArticles(ctx context.Context, batchSize int) (Summary, error) {
	start := s.now()
	defer s.observe(EntryRetier, start)

	articles, err := s.articles.ListPublished(ctx, article.Filter{Tiers: retierPool})
	if err != nil {
		s.countError(EntryRetier)
		return Summary{}, fmt.Errorf("failed to load articles for retiering: %w", err)
	}

	summary := Summary{Attempted: len(articles)}
	var updates []article.TierUpdate

	for _, a := range articles {
		if err := a.Counters.Validate(); err != nil {
			s.logger.Warn("skipping article with invalid counters",
				"article_id", a.ID,
				"error", err)
			summary.Failed++
			continue
		}

		next, changed := s.nextTier(a.Tier, a.Counters)
		if !changed {
			continue
		}
		updates = append(updates, article.TierUpdate{ID: a.ID, Tier: next})
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for i := 0; i < len(updates); i += batchSize {
		end := i + batchSize
		if end > len(updates) {
			end = len(updates)
		}
		slice := updates[i:end]
		if err := s.articles.UpdateTiers(ctx, slice); err != nil {
			s.logger.Error("failed to persist tier sub-batch",
				"offset", i,
				"size", len(slice),
				"error", err)
			summary.Failed += len(slice)
			s.countError(EntryRetier)
			continue
		}
		summary.Updated += len(slice)
	}

	s.logger.Info("article retiering completed",
		"attempted", summary.Attempted,
		"transitions", len(updates),
		"updated", summary.Updated,
		"failed", summary.Failed)
	s.recordRun(EntryRetier, summary)

	return summary, nil
}

// RecalcAuthorScores recomputes knowledge and reputation scores from the
// contribution sums of currently published articles, optionally for a
// single author. After all sub-batches complete, the leaderboard cache
// entry is invalidated; invalidation failure is logged and swallowed.
func (s *Service) RecalcAuthorScores(ctx context.Context, batchSize int, authorID *string) (Summary, error) {
	start := s.now()
	defer s.observe(EntryReputation, start)

	sums, err := s.authors.AggregateContributions(ctx, authorID)
	if err != nil {
		s.countError(EntryReputation)
		return Summary{}, fmt.Errorf("failed to aggregate contributions: %w", err)
	}

	summary := Summary{Attempted: len(sums)}
	updates := make([]author.ReputationUpdate, 0, len(sums))

	for _, sum := range sums {
		if sum.Suggestions < 0 || sum.Saves < 0 || sum.Upvotes < 0 {
			s.logger.Warn("skipping author with invalid contribution sums",
				"author_id", sum.AuthorID)
			summary.Failed++
			continue
		}

		// Knowledge score is recomputed from scratch each cycle: decay is
		// implicit, driven by articles aging into the archived tier and
		// dropping out of the contribution sum.
		points := ContributionPoints(sum)
		ks := KnowledgeScore(0, points, DefaultDecayFactor)

		updates = append(updates, author.ReputationUpdate{
			ID:              sum.AuthorID,
			KnowledgeScore:  ks,
			ReputationScore: ReputationScore(ks),
		})
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for i := 0; i < len(updates); i += batchSize {
		end := i + batchSize
		if end > len(updates) {
			end = len(updates)
		}
		slice := updates[i:end]
		if err := s.authors.UpdateReputations(ctx, slice); err != nil {
			s.logger.Error("failed to persist reputation sub-batch",
				"offset", i,
				"size", len(slice),
				"error", err)
			summary.Failed += len(slice)
			s.countError(EntryReputation)
			continue
		}
		summary.Updated += len(slice)
	}

	s.invalidateLeaderboard(ctx)

	s.logger.Info("author reputation recompute completed",
		"attempted", summary.Attempted,
		"updated", summary.Updated,
		"failed", summary.Failed)
	s.recordRun(EntryReputation, summary)

	return summary, nil
}

// nextTier applies the tier state machine with the configured thresholds.
func (s *Service) nextTier(current article.Tier, c article.Counters) (article.Tier, bool) {
	return tier.Next(current, c, s.calibration.Tier)
}

// flushScoreUpdates persists score updates in bounded sub-batches.
func (s *Service) flushScoreUpdates(ctx context.Context, updates []article.ScoreUpdate, batchSize int, summary *Summary) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for i := 0; i < len(updates); i += batchSize {
		end := i + batchSize
		if end > len(updates) {
			end = len(updates)
		}
		slice := updates[i:end]
		if err := s.articles.UpdateScores(ctx, slice); err != nil {
			s.logger.Error("failed to persist score sub-batch",
				"offset", i,
				"size", len(slice),
				"error", err)
			summary.Failed += len(slice)
			s.countError(EntryRescore)
			continue
		}
		summary.Updated += len(slice)
	}
}

// invalidateLeaderboard clears the cached leaderboard. Best-effort: a
// stale cache self-heals on the next cycle.
func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, s.leaderboardKey); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache",
			"key", s.leaderboardKey,
			"error", err)
	}
}

func (s *Service) observe(entryPoint string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRecomputeDuration(entryPoint, s.now().Sub(start).Seconds())
}

func (s *Service) countError(entryPoint string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncRecomputeErrors(entryPoint)
}

func (s *Service) recordRun(entryPoint string, summary Summary) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncRecomputeTotal(entryPoint)
	s.metrics.SetLastRecompute(entryPoint, float64(s.now().Unix()), float64(summary.Updated))
}
