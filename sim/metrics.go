package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	LiveInstances     prometheus.Gauge
	InstancesCreated  *prometheus.CounterVec
	SelectionAttempts *prometheus.CounterVec
	ShotsExecuted     prometheus.Counter
	OptimiserCuts     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LiveInstances: f.NewGauge(prometheus.GaugeOpts{
			Name: "qdispatch_live_instances",
			Help: "Number of simulator instances currently owned by the registry",
		}),
		InstancesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdispatch_instances_created_total",
			Help: "Total simulator instances constructed, by backend and method",
		}, []string{"backend", "method"}),
		SelectionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qdispatch_selection_attempts_total",
			Help: "Candidate instantiation attempts made by the selector, by outcome",
		}, []string{"backend", "method", "outcome"}),
		ShotsExecuted: f.NewCounter(prometheus.CounterOpts{
			Name: "qdispatch_shots_executed_total",
			Help: "Total shots executed by the pipeline",
		}),
		OptimiserCuts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qdispatch_optimiser_cuts",
			Help: "Cut count reported by the most recent optimiser run",
		}, []string{"optimiser"}),
	}
}

func (m *Metrics) instanceCreated(c Candidate) {
	if m == nil {
		return
	}
	m.LiveInstances.Inc()
	m.InstancesCreated.WithLabelValues(c.Type.String(), c.Method.String()).Inc()
}

func (m *Metrics) instanceDestroyed() {
	if m == nil {
		return
	}
	m.LiveInstances.Dec()
}

func (m *Metrics) selectionAttempt(c Candidate, outcome string) {
	if m == nil {
		return
	}
	m.SelectionAttempts.WithLabelValues(c.Type.String(), c.Method.String(), outcome).Inc()
}

// AddShots records executed shots.
func (m *Metrics) AddShots(n int) {
	if m == nil {
		return
	}
	m.ShotsExecuted.Add(float64(n))
}

// SetCuts records the cut count of the latest run of the named optimiser.
func (m *Metrics) SetCuts(optimiser string, cuts float64) {
	if m == nil {
		return
	}
	m.OptimiserCuts.WithLabelValues(optimiser).Set(cuts)
}
