package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records run and stage statistics.
type Metrics struct {
	runs          *prometheus.CounterVec
	cycles        prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	stalls        prometheus.Counter
}

// NewMetrics registers the workflow collectors with reg. A nil reg leaves
// the collectors unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codecrew",
			Name:      "runs_total",
			Help:      "Completed runs by terminal status.",
		}, []string{"status"}),
		cycles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "codecrew",
			Name:      "cycles_per_run",
			Help:      "Coder/tester cycles used by each run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10, 15, 20},
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codecrew",
			Name:      "stage_duration_seconds",
			Help:      "Stage latency by stage and result.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage", "result"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codecrew",
			Name:      "collaborator_failures_total",
			Help:      "Collaborator failures downgraded to failing outcomes, by stage.",
		}, []string{"stage"}),
		stalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: "codecrew",
			Name:      "stalls_detected_total",
			Help:      "Runs that repeated the same code across the stall window.",
		}),
	}
}

func (m *Metrics) observeStage(stage Phase, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String(), result).Observe(d.Seconds())
}

func (m *Metrics) collaboratorFailure(stage Phase) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage.String()).Inc()
}

func (m *Metrics) stall() {
	if m == nil {
		return
	}
	m.stalls.Inc()
}

func (m *Metrics) runFinished(status Status, cycles int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(status)).Inc()
	m.cycles.Observe(float64(cycles))
}
