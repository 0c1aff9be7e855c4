// Package main is the entry point for the scoring worker. It runs the
// three recompute jobs on their cadences and serves health and metrics
// endpoints.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/knowledgeshare/internal/article"
	"github.com/onnwee/knowledgeshare/internal/author"
	"github.com/onnwee/knowledgeshare/internal/cache"
	"github.com/onnwee/knowledgeshare/internal/config"
	"github.com/onnwee/knowledgeshare/internal/health"
	"github.com/onnwee/knowledgeshare/internal/jobs"
	"github.com/onnwee/knowledgeshare/internal/logging"
	"github.com/onnwee/knowledgeshare/internal/schedule"
	"github.com/onnwee/knowledgeshare/internal/scoring"
	"github.com/onnwee/knowledgeshare/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("KnowledgeShare Scoring Worker")
		fmt.Println()
		fmt.Println("Usage: worker [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	logger.Info("starting scoring worker", "config", cfg.LogSummary())

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "knowledgeshare-worker",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancelPing()

	// Redis is optional: without it the worker runs but leaderboard
	// invalidation is disabled.
	var invalidator cache.Invalidator
	var redisChecker *health.RedisChecker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		invalidator = cache.NewRedisInvalidator(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		logger.Warn("REDIS_ADDR not set; leaderboard invalidation disabled")
	}

	// Calibration
	calibration := scoring.DefaultCalibration()
	if cfg.CalibrationPath != "" {
		calibration, err = scoring.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			logger.Warn("failed to load calibration file, using defaults",
				"path", cfg.CalibrationPath, "error", err)
		} else {
			logger.Info("loaded calibration file", "path", cfg.CalibrationPath)
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	scoringMetrics := scoring.NewMetrics()
	if err := scoringMetrics.Register(registry); err != nil {
		logger.Error("failed to register scoring metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	// Scoring service and scheduler
	service := scoring.NewService(scoring.ServiceConfig{
		Articles:       article.NewPostgresRepository(db, logger),
		Authors:        author.NewPostgresRepository(db, logger),
		Cache:          invalidator,
		Calibration:    calibration,
		LeaderboardKey: cfg.LeaderboardKey,
		Logger:         logger,
		Metrics:        scoringMetrics,
	})

	scheduler := schedule.New(schedule.Config{
		RescoreInterval:    cfg.RescoreInterval,
		RetierInterval:     cfg.RetierInterval,
		ReputationInterval: cfg.ReputationInterval,
		BatchSize:          cfg.BatchSize,
		Logger:             logger,
		JobMetrics:         jobMetrics,
	}, service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)

	// HTTP server for health and metrics
	dbChecker := health.NewDBChecker(db)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, checkCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer checkCancel()

		status := http.StatusOK
		result := map[string]string{"status": "healthy"}

		if err := dbChecker.HealthCheck(checkCtx); err != nil {
			status = http.StatusServiceUnavailable
			result["status"] = "unhealthy"
			result["database"] = err.Error()
		}
		if redisChecker != nil {
			if err := redisChecker.HealthCheck(checkCtx); err != nil {
				// Redis is best-effort; report but stay healthy
				result["redis"] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting worker http server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer provider", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("worker stopped")
}
