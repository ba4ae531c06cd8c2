package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alias1177/SmartVest/internal/model"
)

// Registry holds the batch execution collectors. It satisfies the batch
// and backtest observer interfaces and is safe for concurrent use.
type Registry struct {
	registry *prometheus.Registry

	Trials        *prometheus.CounterVec
	TrialDuration *prometheus.HistogramVec
	RiskEvents    *prometheus.CounterVec
	Rebalances    *prometheus.CounterVec
	ActiveTrials  prometheus.Gauge
}

// NewRegistry creates the collectors on a dedicated prometheus registry
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartvest_trials_total",
				Help: "Finished trials by profile and status",
			},
			[]string{"profile", "status"},
		),

		TrialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartvest_trial_duration_seconds",
				Help:    "Wall-clock duration of one trial",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"profile"},
		),

		RiskEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartvest_risk_events_total",
				Help: "Risk controller decisions by kind",
			},
			[]string{"kind"},
		),

		Rebalances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartvest_rebalances_total",
				Help: "Committed rebalances by reason",
			},
			[]string{"reason"},
		),

		ActiveTrials: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartvest_active_trials",
				Help: "Trials currently being replayed",
			},
		),
	}

	r.registry.MustRegister(r.Trials, r.TrialDuration, r.RiskEvents, r.Rebalances, r.ActiveTrials)
	return r
}

// Gatherer exposes the underlying registry, e.g. for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the collectors in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RiskEvent counts a stop, re-entry or portfolio trigger
func (r *Registry) RiskEvent(kind model.EventKind) {
	r.RiskEvents.WithLabelValues(string(kind)).Inc()
}

// Rebalanced counts a committed rebalance
func (r *Registry) Rebalanced(reason model.RebalanceReason) {
	r.Rebalances.WithLabelValues(string(reason)).Inc()
}

// TrialStarted marks a trial as in flight
func (r *Registry) TrialStarted() {
	r.ActiveTrials.Inc()
}

// TrialFinished records the outcome and duration of a trial
func (r *Registry) TrialFinished(result *model.TrialResult) {
	r.ActiveTrials.Dec()
	r.Trials.WithLabelValues(string(result.Profile), string(result.Status)).Inc()
	r.TrialDuration.WithLabelValues(string(result.Profile)).Observe(result.Duration.Seconds())
}
