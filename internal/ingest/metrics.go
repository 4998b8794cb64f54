package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts accumulator activity.
type Metrics struct {
	SamplesIngested    prometheus.Counter
	SamplesTrimmed     prometheus.Counter
	FramesRegistered   prometheus.Counter
	SnapshotsPublished prometheus.Counter
	Resets             *prometheus.CounterVec
	Frames             prometheus.Gauge
}

// NewMetrics creates the accumulator metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SamplesIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "tfgraph_samples_ingested_total",
			Help: "Transform samples passed to the tree",
		}),
		SamplesTrimmed: f.NewCounter(prometheus.CounterOpts{
			Name: "tfgraph_samples_trimmed_total",
			Help: "Transform samples dropped by the retention window",
		}),
		FramesRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "tfgraph_frames_registered_total",
			Help: "Coordinate frames created in the tree",
		}),
		SnapshotsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "tfgraph_snapshots_published_total",
			Help: "New snapshots handed to readers",
		}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tfgraph_resets_total",
			Help: "Tree resets by reason",
		}, []string{"reason"}),
		Frames: f.NewGauge(prometheus.GaugeOpts{
			Name: "tfgraph_frames",
			Help: "Coordinate frames in the current session",
		}),
	}
}
