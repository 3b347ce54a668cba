package projection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels of the stage duration histogram
const (
	StageCompose   = "compose"
	StageEmbed     = "embed"
	StageJointNorm = "joint_norm"
	StagePCA       = "pca"
)

// Task status labels of the projections counter
const (
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// DefaultStageBuckets spans sub-millisecond toy inputs to multi-second songs
// with large delay embeddings.
var DefaultStageBuckets = []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds the prometheus collectors of a Projector
type Metrics struct {
	Projections   *prometheus.CounterVec
	Warnings      prometheus.Counter
	StageDuration *prometheus.HistogramVec
	InFlight      prometheus.Gauge
}

// NewMetrics registers the projection collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Projections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopditty",
			Name:      "projections_total",
			Help:      "Finished projection tasks by terminal status.",
		}, []string{"status"}),
		Warnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loopditty",
			Name:      "projection_warnings_total",
			Help:      "Warning events emitted by projection tasks.",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loopditty",
			Name:      "projection_stage_duration_seconds",
			Help:      "Wall time spent in each projection stage.",
			Buckets:   DefaultStageBuckets,
		}, []string{"stage"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "loopditty",
			Name:      "projections_in_flight",
			Help:      "Projection tasks currently running.",
		}),
	}
}
