// Package config provides configuration loading and validation for the
// scoring worker. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the scoring worker.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (leaderboard cache)
	RedisAddr      string `koanf:"redis_addr"`
	LeaderboardKey string `koanf:"leaderboard_key"`

	// Scoring jobs
	BatchSize          int           `koanf:"batch_size"`
	RescoreInterval    time.Duration `koanf:"rescore_interval"`
	RetierInterval     time.Duration `koanf:"retier_interval"`
	ReputationInterval time.Duration `koanf:"reputation_interval"`

	// CalibrationPath points at the optional JSON calibration file for
	// rank weights and tier thresholds.
	CalibrationPath string `koanf:"calibration_path"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidBatchSize   = errors.New("BATCH_SIZE must be positive")
	ErrInvalidInterval    = errors.New("job intervals must be positive durations")
)

// Default values for non-secret configuration.
const (
	DefaultPort               = 8081
	DefaultEnv                = "development"
	DefaultBatchSize          = 200
	DefaultLeaderboardKey     = "leaderboard:top20"
	DefaultRescoreInterval    = 5 * time.Minute
	DefaultRetierInterval     = 10 * time.Minute
	DefaultReputationInterval = 60 * time.Minute
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). If a config file path is provided and the file cannot be
// loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	batchSize, batchErr := getEnvIntOrDefault("BATCH_SIZE", k.Int("batch_size"), DefaultBatchSize)
	if batchErr != nil {
		loadErrs = append(loadErrs, batchErr)
	}

	rescoreInterval, err := getEnvDurationOrDefault("RESCORE_INTERVAL", k.String("rescore_interval"), DefaultRescoreInterval)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	retierInterval, err := getEnvDurationOrDefault("RETIER_INTERVAL", k.String("retier_interval"), DefaultRetierInterval)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	reputationInterval, err := getEnvDurationOrDefault("REPUTATION_INTERVAL", k.String("reputation_interval"), DefaultReputationInterval)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		Port:               port,
		Env:                getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:        getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:          getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		LeaderboardKey:     getEnvOrDefault("LEADERBOARD_KEY", k.String("leaderboard_key"), DefaultLeaderboardKey),
		BatchSize:          batchSize,
		RescoreInterval:    rescoreInterval,
		RetierInterval:     retierInterval,
		ReputationInterval: reputationInterval,
		CalibrationPath:    getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		TracingEnabled:     getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing_enabled"), false),
		TracingExporter:    getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), "otlp-http"),
		OTLPEndpoint:       getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingInsecure:    getEnvBoolOrDefault("TRACING_INSECURE", k.Bool("tracing_insecure"), false),
	}

	sampleRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), 0.1)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}
	cfg.TracingSampleRate = sampleRate

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a duration if set,
// otherwise the koanf value, or default. Values use Go duration syntax ("5m", "1h").
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	if koanfVal != "" {
		d, err := time.ParseDuration(koanfVal)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault returns the environment variable as a bool if set,
// otherwise the koanf value, or default. Any value other than "true" or "1"
// is treated as false.
func getEnvBoolOrDefault(envKey string, koanfVal bool, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		return val == "true" || val == "1"
	}
	if koanfVal {
		return true
	}
	return defaultVal
}

// getEnvFloatOrDefault returns the environment variable as a float if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and
// sane. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.BatchSize <= 0 {
		errs = append(errs, ErrInvalidBatchSize)
	}
	if c.RescoreInterval <= 0 || c.RetierInterval <= 0 || c.ReputationInterval <= 0 {
		errs = append(errs, ErrInvalidInterval)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Credentials embedded in the database URL are masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                fmt.Sprintf("%d", c.Port),
		"env":                 c.Env,
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"redis_addr":          c.RedisAddr,
		"leaderboard_key":     c.LeaderboardKey,
		"batch_size":          fmt.Sprintf("%d", c.BatchSize),
		"rescore_interval":    c.RescoreInterval.String(),
		"retier_interval":     c.RetierInterval.String(),
		"reputation_interval": c.ReputationInterval.String(),
		"calibration_path":    c.CalibrationPath,
		"tracing_enabled":     fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":    c.TracingExporter,
		"otlp_endpoint":       c.OTLPEndpoint,
	}
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return "****"
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
