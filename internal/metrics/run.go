// Package metrics records per-run counters for the extractor and provides the
// running statistics used to summarise frequency tables.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the metrics of one extraction run. Each run gets its own
// registry so repeated runs in one process never collide.
type Run struct {
	Registry *prometheus.Registry

	RoutesRetained    prometheus.Gauge
	TripsRetained     prometheus.Gauge
	StopTimesRetained prometheus.Gauge
	StopTimesSkipped  prometheus.Gauge
	Segments          prometheus.Gauge
	SegmentsSliced    prometheus.Gauge
	ActiveStops       prometheus.Gauge
	EventsSkipped     prometheus.Counter
	StageDuration     *prometheus.GaugeVec
	LastSuccess       prometheus.Gauge
}

// NewRun creates and registers the run metrics with a new registry.
func NewRun() *Run {
	registry := prometheus.NewRegistry()

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: "railfreq_" + name, Help: help})
	}

	r := &Run{
		Registry:          registry,
		RoutesRetained:    gauge("routes_retained", "Routes matching the route type filter"),
		TripsRetained:     gauge("trips_retained", "Trips with a route and an active service"),
		StopTimesRetained: gauge("stop_times_retained", "Stop times attached to retained trips"),
		StopTimesSkipped:  gauge("stop_times_skipped", "Stop times dropped for an unknown stop or bad sequence"),
		Segments:          gauge("segments", "Directed stop-pair segments found"),
		SegmentsSliced:    gauge("segments_sliced", "Segments with line geometry"),
		ActiveStops:       gauge("active_stops", "Stops referenced by a retained trip"),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railfreq_events_skipped_total",
			Help: "Stop pairs dropped for an unusable departure hour",
		}),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "railfreq_stage_duration_seconds",
				Help: "Wall time of each pipeline stage",
			},
			[]string{"stage"},
		),
		LastSuccess: gauge("last_success_timestamp_seconds", "Unix time of the last completed run"),
	}

	registry.MustRegister(
		r.RoutesRetained,
		r.TripsRetained,
		r.StopTimesRetained,
		r.StopTimesSkipped,
		r.Segments,
		r.SegmentsSliced,
		r.ActiveStops,
		r.EventsSkipped,
		r.StageDuration,
		r.LastSuccess,
	)
	return r
}

// ObserveStage records how long a stage took since start.
func (r *Run) ObserveStage(stage string, start time.Time) {
	r.StageDuration.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

// MarkSuccess stamps the completion time.
func (r *Run) MarkSuccess(now time.Time) {
	r.LastSuccess.Set(float64(now.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
