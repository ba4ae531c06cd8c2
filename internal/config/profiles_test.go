package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/model"
)

func TestDefaultProfilesAreValid(t *testing.T) {
	for name, cfg := range DefaultProfiles() {
		t.Run(string(name), func(t *testing.T) {
			require.NoError(t, cfg.Validate(len(DefaultUniverse)))
			assert.Equal(t, name, cfg.Profile)
		})
	}
}

func TestConservativeHasNoStopLoss(t *testing.T) {
	cfg := DefaultProfiles()[model.ProfileConservative]
	assert.False(t, cfg.StopLossEnabled)
}

func TestLoadProfilesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
balanced:
  max_weight_pct: 0.2
  regime_overrides:
    bull:
      disable_stop_loss: true
custom:
  min_positions: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	balanced := profiles[model.ProfileBalanced]
	assert.Equal(t, 0.2, balanced.MaxWeightPct)
	assert.Equal(t, 0.15, balanced.StopLossPct, "absent fields keep defaults")
	assert.True(t, balanced.RegimeOverrides["bull"].DisableStopLoss)

	custom, err := Profile(profiles, "CUSTOM")
	require.NoError(t, err)
	assert.Equal(t, 4, custom.MinPositions)
	assert.Equal(t, model.Profile("custom"), custom.Profile)
}

func TestLoadProfilesErrors(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("balanced: [1, 2"), 0o600))
	_, err = LoadProfiles(path)
	assert.Error(t, err)

	_, err = Profile(DefaultProfiles(), "reckless")
	assert.ErrorContains(t, err, "unknown profile")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("UNIVERSE", " aapl, msft ,,nvda")
	t.Setenv("INITIAL_CAPITAL", "25000")
	t.Setenv("EARLIEST_START", "2020-02-03")
	t.Setenv("LATEST_END", "not-a-date")
	t.Setenv("DATABASE_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, cfg.Universe)
	assert.Equal(t, 25000.0, cfg.InitialCapital)
	assert.Equal(t, 2020, cfg.EarliestStart.Year())
	assert.Equal(t, 2025, cfg.LatestEnd.Year())
	assert.True(t, cfg.DatabaseEnabled)
	assert.Equal(t, "SPY", cfg.Benchmark)
}
