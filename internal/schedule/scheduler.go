// Package schedule maps interval triggers onto the scoring engine's
// batch entry points. It owns no scoring logic; it adapts timer events
// to calls, guards against overlapping invocations of the same job, and
// logs and reports outcomes.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/knowledgeshare/internal/scoring"
	"github.com/onnwee/knowledgeshare/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Job names, used as scheduler trigger names and job metric labels.
const (
	JobRescoreArticles  = "recalc-article-scores"
	JobRetierArticles   = "recalc-tier-pool"
	JobRecalcUserScores = "recalc-user-scores"
)

// Default cadences. Rescoring is most frequent; reputation least, since
// it depends on tiering having already archived stale articles.
const (
	DefaultRescoreInterval    = 5 * time.Minute
	DefaultRetierInterval     = 10 * time.Minute
	DefaultReputationInterval = 60 * time.Minute
)

// Engine is the subset of the scoring service the scheduler drives.
type Engine interface {
	RescoreArticles(ctx context.Context, batchSize int, articleID *string) (scoring.Summary, error)
	RetierArticles(ctx context.Context, batchSize int) (scoring.Summary, error)
	RecalcAuthorScores(ctx context.Context, batchSize int, authorID *string) (scoring.Summary, error)
}

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Config configures the scoring scheduler.
type Config struct {
	// RescoreInterval is the cadence of the article rescoring job.
	RescoreInterval time.Duration
	// RetierInterval is the cadence of the tier pool job.
	RetierInterval time.Duration
	// ReputationInterval is the cadence of the author reputation job.
	ReputationInterval time.Duration
	// BatchSize bounds each persisted sub-batch.
	BatchSize int
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking. Optional.
	JobMetrics JobMetrics
}

// Scheduler runs the three scoring jobs on independent cadences. The
// jobs may run concurrently with each other (they write disjoint field
// sets), but each job never overlaps itself: its loop is sequential and
// a tick that arrives mid-run is absorbed by the ticker.
type Scheduler struct {
	config Config
	engine Engine

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a new scoring scheduler.
func New(config Config, engine Engine) *Scheduler {
	if config.RescoreInterval == 0 {
		config.RescoreInterval = DefaultRescoreInterval
	}
	if config.RetierInterval == 0 {
		config.RetierInterval = DefaultRetierInterval
	}
	if config.ReputationInterval == 0 {
		config.ReputationInterval = DefaultReputationInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = scoring.DefaultBatchSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Scheduler{
		config: config,
		engine: engine,
	}
}

// Start begins the job loops. Returns immediately; the jobs run in
// background goroutines until Stop is called or the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(3)
	go s.runJob(ctx, JobRescoreArticles, s.config.RescoreInterval, s.rescore)
	go s.runJob(ctx, JobRetierArticles, s.config.RetierInterval, s.retier)
	go s.runJob(ctx, JobRecalcUserScores, s.config.ReputationInterval, s.reputation)
}

// Stop signals the job loops to stop and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runJob is the loop for one named job.
func (s *Scheduler) runJob(ctx context.Context, name string, interval time.Duration, run func(ctx context.Context) (scoring.Summary, error)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.config.Logger.Info("scoring job stopping due to context cancellation", "job", name)
			return
		case <-s.stopCh:
			s.config.Logger.Info("scoring job stopping due to stop signal", "job", name)
			return
		case <-ticker.C:
			s.invoke(ctx, name, run)
		}
	}
}

// invoke runs one job invocation and records its outcome. Each invocation
// gets a run ID so log lines from one run can be correlated.
func (s *Scheduler) invoke(ctx context.Context, name string, run func(ctx context.Context) (scoring.Summary, error)) {
	runID := uuid.NewString()
	ctx, endSpan := tracing.StartSpan(ctx, name)

	start := time.Now()
	summary, err := run(ctx)
	duration := time.Since(start).Seconds()

	tracing.SetAttributes(ctx,
		attribute.Int("job.attempted", summary.Attempted),
		attribute.Int("job.updated", summary.Updated),
		attribute.Int("job.failed", summary.Failed),
	)
	endSpan(err)

	status := "success"
	if err != nil {
		status = "failure"
		s.config.Logger.Error("scoring job failed",
			"job", name,
			"run_id", runID,
			"duration_seconds", duration,
			"error", err)
		if s.config.JobMetrics != nil {
			s.config.JobMetrics.IncJobErrors(name, "invocation_error")
		}
	} else {
		s.config.Logger.Info("scoring job completed",
			"job", name,
			"run_id", runID,
			"duration_seconds", duration,
			"attempted", summary.Attempted,
			"updated", summary.Updated,
			"failed", summary.Failed)
		if summary.Failed > 0 && s.config.JobMetrics != nil {
			s.config.JobMetrics.IncJobErrors(name, "partial_failure")
		}
	}

	if s.config.JobMetrics != nil {
		s.config.JobMetrics.IncJobsTotal(name, status)
		s.config.JobMetrics.ObserveJobDuration(name, duration)
	}
}

// RunNow immediately invokes the named job without waiting for its
// ticker. Unknown names are logged and ignored. Useful for testing and
// for forcing a recompute after bulk imports.
func (s *Scheduler) RunNow(ctx context.Context, name string) {
	switch name {
	case JobRescoreArticles:
		s.invoke(ctx, name, s.rescore)
	case JobRetierArticles:
		s.invoke(ctx, name, s.retier)
	case JobRecalcUserScores:
		s.invoke(ctx, name, s.reputation)
	default:
		s.config.Logger.Warn("unknown scoring job", "job", name)
	}
}

func (s *Scheduler) rescore(ctx context.Context) (scoring.Summary, error) {
	return s.engine.RescoreArticles(ctx, s.config.BatchSize, nil)
}

func (s *Scheduler) retier(ctx context.Context) (scoring.Summary, error) {
	return s.engine.RetierArticles(ctx, s.config.BatchSize)
}

func (s *Scheduler) reputation(ctx context.Context) (scoring.Summary, error) {
	return s.engine.RecalcAuthorScores(ctx, s.config.BatchSize, nil)
}
