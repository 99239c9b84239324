package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's prometheus instruments.
type Metrics struct {
	Outcomes      *prometheus.CounterVec
	ChunkFailures prometheus.Counter
	RunDuration   prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics. A nil registerer
// leaves the instruments unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachsync",
			Subsystem: "ingest",
			Name:      "outcomes_total",
			Help:      "Transcript outcomes by terminal status.",
		}, []string{"status"}),
		ChunkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coachsync",
			Subsystem: "ingest",
			Name:      "chunk_failures_total",
			Help:      "Chunks that failed to embed or persist.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coachsync",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Duration of full multi-credential sync runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes, m.ChunkFailures, m.RunDuration)
	}
	return m
}

// Observe folds one outcome into the counters.
func (m *Metrics) Observe(o *Outcome) {
	if m == nil || o == nil {
		return
	}
	m.Outcomes.WithLabelValues(string(o.Status)).Inc()
	if o.ChunksTotal > o.ChunksProcessed {
		m.ChunkFailures.Add(float64(o.ChunksTotal - o.ChunksProcessed))
	}
}
