package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
)

const namespace = "twin"

// #region metrics

// Metrics exposes Prometheus collectors for simulation activity.
type Metrics struct {
	runsCompleted *prometheus.CounterVec
	invalidInputs *prometheus.CounterVec
	lastImpact    prometheus.Gauge
	runDuration   prometheus.Histogram
	contributions *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
// Registration errors are returned rather than panicking.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "runs_completed_total",
				Help:      "Completed simulation runs by recovery status.",
			},
			[]string{"status"},
		),
		invalidInputs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "invalid_inputs_total",
				Help:      "Rejected input updates by factor.",
			},
			[]string{"factor"},
		),
		lastImpact: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "last_impact",
				Help:      "Impact score of the most recent completed run.",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "run_duration_seconds",
				Help:      "Wall time from run start to completion, presentation delay included.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		contributions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "factor_contribution",
				Help:      "Per-factor contribution of the most recent completed run.",
			},
			[]string{"factor"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.runsCompleted, m.invalidInputs, m.lastImpact, m.runDuration, m.contributions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// #endregion metrics

// #region observe

// Observe records one completed run.
func (m *Metrics) Observe(res engine.Result) error {
	if m == nil {
		return nil
	}
	m.runsCompleted.WithLabelValues(string(res.Status)).Inc()
	m.lastImpact.Set(float64(res.Impact))
	if !res.StartedAt.IsZero() && !res.CompletedAt.IsZero() {
		m.runDuration.Observe(res.CompletedAt.Sub(res.StartedAt).Seconds())
	}
	for _, c := range res.Contributions {
		m.contributions.WithLabelValues(c.Factor).Set(float64(c.Points))
	}
	return nil
}

// Subscriber returns an engine subscriber that feeds Observe.
func (m *Metrics) Subscriber() engine.Subscriber {
	return m.Observe
}

// UnknownFactor is the label recorded for updates naming no registered factor.
const UnknownFactor = "unknown"

// InvalidInput counts one rejected update for factor. Callers map names
// outside the model to UnknownFactor so label cardinality stays bounded.
func (m *Metrics) InvalidInput(factor string) {
	if m == nil {
		return
	}
	factor = strings.TrimSpace(factor)
	if factor == "" {
		factor = UnknownFactor
	}
	m.invalidInputs.WithLabelValues(factor).Inc()
}

// #endregion observe

// #region handler

// Handler serves the collectors registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// #endregion handler
