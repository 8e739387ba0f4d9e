// Package config loads EPROE's runtime configuration: asset paths, the
// carrier-policy overlay directory, logging level, and the bounded
// statistics table's eviction thresholds.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the flat, dual-tagged configuration struct. The env tags are
// authoritative; the yaml tags let the same struct be loaded from a file
// for local development and tests.
type Config struct {
	DefaultPolicyPath string        `env:"EPROE_DEFAULT_POLICY_PATH" yaml:"default_policy_path"`
	CarrierPolicyDir  string        `env:"EPROE_CARRIER_POLICY_DIR" yaml:"carrier_policy_dir"`
	LogLevel          string        `env:"EPROE_LOG_LEVEL" yaml:"log_level"`
	StatsMaxAPNs      int           `env:"EPROE_STATS_MAX_APNS" yaml:"stats_max_apns"`
	StatsMaxCount     int           `env:"EPROE_STATS_MAX_COUNT" yaml:"stats_max_count"`
	TeardownGrace     time.Duration `env:"EPROE_TEARDOWN_GRACE" yaml:"teardown_grace"`
}

// Default returns the configuration baseline matching spec.md §4.6's
// eviction thresholds (10 distinct APNs, 1000 total count).
func Default() Config {
	return Config{
		DefaultPolicyPath: "policies/default.json",
		CarrierPolicyDir:  "",
		LogLevel:          "info",
		StatsMaxAPNs:      10,
		StatsMaxCount:     1000,
		TeardownGrace:     2 * time.Second,
	}
}

// Load reads an optional .env file via godotenv, then overlays values from
// the process environment on top of Default(). A missing .env file is not
// an error; godotenv.Load is best-effort the same way the teacher's
// application bootstrap treats it.
func Load(envFile string) (Config, error) {
	_ = godotenv.Load(envFile)

	cfg := Default()

	if v := os.Getenv("EPROE_DEFAULT_POLICY_PATH"); v != "" {
		cfg.DefaultPolicyPath = v
	}
	if v := os.Getenv("EPROE_CARRIER_POLICY_DIR"); v != "" {
		cfg.CarrierPolicyDir = v
	}
	if v := os.Getenv("EPROE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("EPROE_STATS_MAX_APNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StatsMaxAPNs = n
		}
	}
	if v := os.Getenv("EPROE_STATS_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StatsMaxCount = n
		}
	}
	if v := os.Getenv("EPROE_TEARDOWN_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TeardownGrace = d
		}
	}

	return cfg, nil
}

// LoadYAML reads a Config from a YAML file, for callers (tests, the CLI
// driver) that prefer a file over environment variables.
func LoadYAML(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ZerologLevel parses LogLevel into a zerolog.Level, defaulting to Info on
// an unrecognized string.
func (c Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
