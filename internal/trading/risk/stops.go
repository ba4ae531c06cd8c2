package risk

import "github.com/Alias1177/SmartVest/internal/model"

// StopRule is the resolved stop configuration for a single regime
type StopRule struct {
	StopLoss        bool
	StopLossPct     float64
	TrailingStop    bool
	TrailingStopPct float64
}

// Check returns the exit triggered by price for an active position.
// Stop-loss is evaluated before the trailing stop.
func (r StopRule) Check(p model.Position, price float64) (model.EventKind, bool) {
	if r.StopLoss && price <= p.CostBasis*(1-r.StopLossPct) {
		return model.EventStopLoss, true
	}
	if r.TrailingStop && price <= p.PeakPrice*(1-r.TrailingStopPct) {
		return model.EventTrailingStop, true
	}
	return "", false
}

// StopPolicy holds one StopRule per regime. It is resolved once per trial
// from the profile so the daily evaluation never branches on profile names.
type StopPolicy struct {
	bear StopRule
	bull StopRule
}

// NewStopPolicy applies regime overrides on top of the base rule. An
// override can only relax: it disables a stop or widens its threshold.
func NewStopPolicy(cfg model.RiskConfig) StopPolicy {
	base := StopRule{
		StopLoss:        cfg.StopLossEnabled,
		StopLossPct:     cfg.StopLossPct,
		TrailingStop:    cfg.TrailingStopEnabled,
		TrailingStopPct: cfg.TrailingStopPct,
	}
	return StopPolicy{
		bear: relax(base, cfg, model.RegimeBear),
		bull: relax(base, cfg, model.RegimeBull),
	}
}

func relax(rule StopRule, cfg model.RiskConfig, regime model.Regime) StopRule {
	o, ok := cfg.Override(regime)
	if !ok {
		return rule
	}
	if o.DisableStopLoss {
		rule.StopLoss = false
	} else if o.StopLossPct > rule.StopLossPct {
		rule.StopLossPct = o.StopLossPct
	}
	if o.DisableTrailingStop {
		rule.TrailingStop = false
	} else if o.TrailingStopPct > rule.TrailingStopPct {
		rule.TrailingStopPct = o.TrailingStopPct
	}
	return rule
}

// For returns the rule in force for the regime
func (p StopPolicy) For(regime model.Regime) StopRule {
	if regime == model.RegimeBull {
		return p.bull
	}
	return p.bear
}
