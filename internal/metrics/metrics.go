// Package metrics exposes Prometheus collectors for the matching pipeline.
//
// A nil *Recorder is valid and records nothing, so components can be built
// without a registry in tests and one-off commands.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "travel_buddy"

type Recorder struct {
	analyses   *prometheus.CounterVec
	aiFailures *prometheus.CounterVec
	aiDuration prometheus.Histogram
	upserts    *prometheus.CounterVec
	candidates *prometheus.CounterVec
}

// New registers the collectors on reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Match analyses produced, by analysis method.",
		}, []string{"method"}),
		aiFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_unavailable_total",
			Help:      "AI assessments discarded in favour of the deterministic scorer, by reason.",
		}, []string{"reason"}),
		aiDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_assessment_duration_seconds",
			Help:      "Duration of AI assessment attempts in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		upserts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_upserts_total",
			Help:      "Match entry upserts, by outcome.",
		}, []string{"outcome"}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_dropped_total",
			Help:      "Candidates dropped by the filter pipeline, by step.",
		}, []string{"step"}),
	}
}

func (r *Recorder) Analysis(method string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(method).Inc()
}

func (r *Recorder) AIUnavailable(reason string) {
	if r == nil {
		return
	}
	r.aiFailures.WithLabelValues(reason).Inc()
}

func (r *Recorder) AIDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.aiDuration.Observe(d.Seconds())
}

func (r *Recorder) Upsert(outcome string) {
	if r == nil {
		return
	}
	r.upserts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Dropped(step string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.candidates.WithLabelValues(step).Add(float64(n))
}
