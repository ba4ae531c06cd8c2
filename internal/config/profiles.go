package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alias1177/SmartVest/internal/model"
)

// DefaultProfiles returns the built-in risk profiles.
//
// Conservative holds low-volatility names without per-position stops and
// relies on crash protection and forced rebalancing. Balanced and
// aggressive run both stops; in a bull regime the trailing stop is
// switched off and the stop-loss widened.
func DefaultProfiles() map[model.Profile]model.RiskConfig {
	base := model.RiskConfig{
		CrashTriggerPct:        0.10,
		CrashSellFraction:      0.5,
		CrashWindowDays:        30,
		ForcedRebalanceDDPct:   0.15,
		CooldownDays:           30,
		ReentryGainPct:         0.05,
		ReentryWaitDays:        10,
		ReentryMaxCashFraction: 0.5,
		SectorCapPct:           0.30,
		MinPositions:           8,
		RebalanceMonths:        3,
		BenchmarkFallback:      true,
		MaxStaleDays:           5,
	}

	conservative := base
	conservative.Profile = model.ProfileConservative
	conservative.MaxWeightPct = 0.12
	conservative.SelectionTopN = 12
	conservative.ForcedRebalanceDDPct = 0.12

	balanced := base
	balanced.Profile = model.ProfileBalanced
	balanced.StopLossEnabled = true
	balanced.StopLossPct = 0.15
	balanced.TrailingStopEnabled = true
	balanced.TrailingStopPct = 0.20
	balanced.MaxWeightPct = 0.15
	balanced.SelectionTopN = 10
	balanced.RegimeOverrides = map[string]model.RegimeOverride{
		"bull": {DisableTrailingStop: true, StopLossPct: 0.25},
	}

	aggressive := base
	aggressive.Profile = model.ProfileAggressive
	aggressive.StopLossEnabled = true
	aggressive.StopLossPct = 0.20
	aggressive.TrailingStopEnabled = true
	aggressive.TrailingStopPct = 0.25
	aggressive.MaxWeightPct = 0.15
	aggressive.SelectionTopN = 10
	aggressive.ForcedRebalanceDDPct = 0.20
	aggressive.RegimeOverrides = map[string]model.RegimeOverride{
		"bull": {DisableTrailingStop: true, StopLossPct: 0.30},
	}

	return map[model.Profile]model.RiskConfig{
		model.ProfileConservative: conservative,
		model.ProfileBalanced:     balanced,
		model.ProfileAggressive:   aggressive,
	}
}

// LoadProfiles returns the built-in profiles overlaid with the YAML file at
// path. Keys in the file are profile names; fields that are absent keep
// their built-in values. An empty path returns the defaults.
func LoadProfiles(path string) (map[model.Profile]model.RiskConfig, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return overlayProfiles(profiles, data)
}

func overlayProfiles(profiles map[model.Profile]model.RiskConfig, data []byte) (map[model.Profile]model.RiskConfig, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	for name, node := range raw {
		profile := model.Profile(strings.ToLower(name))
		cfg, ok := profiles[profile]
		if !ok {
			cfg = profiles[model.ProfileBalanced]
		}
		cfg.RegimeOverrides = cloneOverrides(cfg.RegimeOverrides)
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", name, err)
		}
		cfg.Profile = profile
		profiles[profile] = cfg
	}
	return profiles, nil
}

// Profile resolves a single profile by name
func Profile(profiles map[model.Profile]model.RiskConfig, name string) (model.RiskConfig, error) {
	cfg, ok := profiles[model.Profile(strings.ToLower(name))]
	if !ok {
		return model.RiskConfig{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(ProfileNames(profiles), ", "))
	}
	return cfg, nil
}

// ProfileNames lists profile names sorted
func ProfileNames(profiles map[model.Profile]model.RiskConfig) []string {
	names := make([]string, 0, len(profiles))
	for p := range profiles {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

func cloneOverrides(in map[string]model.RegimeOverride) map[string]model.RegimeOverride {
	if in == nil {
		return nil
	}
	out := make(map[string]model.RegimeOverride, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
