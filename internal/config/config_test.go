package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dry_run: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.Equal(t, 0.40, cfg.Scorer.ProfitWeight)
	assert.Equal(t, 70.0, cfg.Scorer.MinScore)
	assert.Equal(t, 5.0, cfg.Sizing.MinReservePercent)
	assert.Equal(t, 25.0, cfg.Sizing.MaxReservePercent)
	assert.Equal(t, 100, cfg.Tracker.WindowSize)
	assert.Equal(t, 0.90, cfg.Tracker.AlertThreshold)
	assert.Equal(t, 0.95, cfg.Tracker.TargetSuccessRate)
	assert.Equal(t, 0.999, cfg.Tracker.ExcellentSuccessRate)
	assert.Equal(t, "apex:tracker:snapshot", cfg.Redis.SnapshotKey)
	assert.Equal(t, "apex:alerts", cfg.Redis.AlertStream)
}

func TestLoad_ExplicitValues(t *testing.T) {
	raw := `
scorer:
  profit_weight: 0.5
  risk_weight: 0.2
  liquidity_weight: 0.2
  success_weight: 0.1
  min_score: 60
tracker:
  window_size: 20
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Scorer.ProfitWeight)
	assert.Equal(t, 60.0, cfg.Scorer.MinScore)
	assert.Equal(t, 20, cfg.Tracker.WindowSize)
}

func TestLoad_InvalidWeights(t *testing.T) {
	raw := `
scorer:
  profit_weight: 0.5
  risk_weight: 0.5
  liquidity_weight: 0.5
  success_weight: 0.5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestValidate_ReservePercents(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	c.Sizing.MinReservePercent = 30
	c.Sizing.MaxReservePercent = 10
	assert.Error(t, c.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
