package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile names a risk profile
type Profile string

const (
	ProfileConservative Profile = "conservative"
	ProfileBalanced     Profile = "balanced"
	ProfileAggressive   Profile = "aggressive"
)

// Profiles lists the built-in profiles from most to least defensive
func Profiles() []Profile {
	return []Profile{ProfileConservative, ProfileBalanced, ProfileAggressive}
}

// RegimeOverride relaxes the base stop rules while a regime is active.
// A zero percentage keeps the base threshold.
type RegimeOverride struct {
	DisableStopLoss     bool    `yaml:"disable_stop_loss" json:"disable_stop_loss"`
	DisableTrailingStop bool    `yaml:"disable_trailing_stop" json:"disable_trailing_stop"`
	StopLossPct         float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" validate:"gte=0,lt=1"`
	TrailingStopPct     float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct" validate:"gte=0,lt=1"`
}

// RiskConfig is the resolved, per-trial risk profile. Percentages are
// fractions: 0.15 means 15%.
type RiskConfig struct {
	Profile Profile `yaml:"-" json:"profile" validate:"required"`

	StopLossEnabled     bool    `yaml:"stop_loss_enabled" json:"stop_loss_enabled"`
	StopLossPct         float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" validate:"gte=0,lt=1"`
	TrailingStopEnabled bool    `yaml:"trailing_stop_enabled" json:"trailing_stop_enabled"`
	TrailingStopPct     float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct" validate:"gte=0,lt=1"`

	CrashTriggerPct      float64 `yaml:"crash_trigger_pct" json:"crash_trigger_pct" validate:"gt=0,lt=1"`
	CrashSellFraction    float64 `yaml:"crash_sell_fraction" json:"crash_sell_fraction" validate:"gte=0,lte=1"`
	CrashWindowDays      int     `yaml:"crash_window_days" json:"crash_window_days" validate:"gte=1"`
	ForcedRebalanceDDPct float64 `yaml:"forced_rebalance_dd_pct" json:"forced_rebalance_dd_pct" validate:"gt=0,lt=1"`
	CooldownDays         int     `yaml:"cooldown_days" json:"cooldown_days" validate:"gte=0"`

	ReentryGainPct         float64 `yaml:"reentry_gain_pct" json:"reentry_gain_pct" validate:"gte=0"`
	ReentryWaitDays        int     `yaml:"reentry_wait_days" json:"reentry_wait_days" validate:"gte=0"`
	ReentryMaxCashFraction float64 `yaml:"reentry_max_cash_fraction" json:"reentry_max_cash_fraction" validate:"gte=0,lte=1"`

	MaxWeightPct      float64 `yaml:"max_weight_pct" json:"max_weight_pct" validate:"gt=0,lte=1"`
	SectorCapPct      float64 `yaml:"sector_cap_pct" json:"sector_cap_pct" validate:"gt=0,lte=1"`
	MinPositions      int     `yaml:"min_positions" json:"min_positions" validate:"gte=0"`
	SelectionTopN     int     `yaml:"selection_top_n" json:"selection_top_n" validate:"gte=0"`
	RebalanceMonths   int     `yaml:"rebalance_months" json:"rebalance_months" validate:"gte=1"`
	BenchmarkFallback bool    `yaml:"benchmark_fallback" json:"benchmark_fallback"`

	MaxStaleDays int     `yaml:"max_stale_days" json:"max_stale_days" validate:"gte=0"`
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=0,lt=1"`

	RegimeOverrides map[string]RegimeOverride `yaml:"regime_overrides" json:"regime_overrides,omitempty" validate:"dive,keys,oneof=bull bear,endkeys"`
}

// ErrInvalidConfig is returned when a RiskConfig fails validation
type ErrInvalidConfig struct {
	Field   string
	Message string
}

func (e ErrInvalidConfig) Error() string {
	return "invalid config: " + e.Field + " - " + e.Message
}

var configValidate = validator.New()

// Validate checks ranges and cross-field constraints. universeSize is the
// number of tradable tickers the trial can select from.
func (c *RiskConfig) Validate(universeSize int) error {
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ErrInvalidConfig{
				Field:   strings.TrimPrefix(fe.Namespace(), "RiskConfig."),
				Message: fmt.Sprintf("failed %q constraint (value %v)", fe.ActualTag(), fe.Value()),
			}
		}
		return &ErrInvalidConfig{Field: "risk_config", Message: err.Error()}
	}

	if c.MinPositions > universeSize {
		return &ErrInvalidConfig{
			Field:   "MinPositions",
			Message: fmt.Sprintf("min_positions %d exceeds universe size %d", c.MinPositions, universeSize),
		}
	}
	if c.StopLossEnabled && c.StopLossPct == 0 {
		return &ErrInvalidConfig{Field: "StopLossPct", Message: "stop loss enabled with a zero threshold"}
	}
	if c.TrailingStopEnabled && c.TrailingStopPct == 0 {
		return &ErrInvalidConfig{Field: "TrailingStopPct", Message: "trailing stop enabled with a zero threshold"}
	}
	return nil
}

// Override returns the relaxation configured for the regime, if any
func (c *RiskConfig) Override(r Regime) (RegimeOverride, bool) {
	o, ok := c.RegimeOverrides[strings.ToLower(r.String())]
	return o, ok
}
