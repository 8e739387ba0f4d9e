package config

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesEvictionThresholds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.StatsMaxAPNs)
	assert.Equal(t, 1000, cfg.StatsMaxCount)
}

func TestLoad_EnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("EPROE_STATS_MAX_APNS", "25")
	t.Setenv("EPROE_LOG_LEVEL", "debug")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.StatsMaxAPNs)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestZerologLevel_DefaultsToInfoOnUnknown(t *testing.T) {
	cfg := Config{LogLevel: "not-a-real-level"}
	assert.Equal(t, zerolog.InfoLevel, cfg.ZerologLevel())
}

func TestLoadYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	content := "default_policy_path: policies/custom.json\nstats_max_apns: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "policies/custom.json", cfg.DefaultPolicyPath)
	assert.Equal(t, 4, cfg.StatsMaxAPNs)
}
