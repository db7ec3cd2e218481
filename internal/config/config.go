package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	JWTSecret    string

	// Firewall admin API endpoint; empty selects the in-process IP set,
	// which is only useful for local development.
	IPSetEndpoint string
	IPSetName     string
	IPSetScope    string

	SweepSchedule    string
	AnalyzerSchedule string

	// Defaults for the seeded auto-block policy.
	AutoBlockThreshold     int
	AutoBlockDurationHours int
	AutoBlockWindowMinutes int
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("ARGUS_ENV", "development"),
		HTTPPort:     getEnv("ARGUS_HTTP_PORT", "8080"),
		DatabasePath: getEnv("ARGUS_DB_PATH", filepath.Join("data", "argus.db")),
		JWTSecret:    getEnv("ARGUS_JWT_SECRET", ""),

		IPSetEndpoint: getEnv("ARGUS_IPSET_ENDPOINT", ""),
		IPSetName:     getEnv("ARGUS_IPSET_NAME", "argus-blocklist"),
		IPSetScope:    getEnv("ARGUS_IPSET_SCOPE", "REGIONAL"),

		SweepSchedule:    getEnv("ARGUS_SWEEP_SCHEDULE", "@every 5m"),
		AnalyzerSchedule: getEnv("ARGUS_ANALYZER_SCHEDULE", "@every 1h"),

		AutoBlockThreshold:     getEnvInt("ARGUS_AUTOBLOCK_THRESHOLD", 25),
		AutoBlockDurationHours: getEnvInt("ARGUS_AUTOBLOCK_DURATION_HOURS", 24),
		AutoBlockWindowMinutes: getEnvInt("ARGUS_AUTOBLOCK_WINDOW_MINUTES", 60),
	}

	if cfg.Environment == "production" && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("ARGUS_JWT_SECRET is required in production")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
