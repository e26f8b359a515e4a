// Package metrics exposes Prometheus collectors for the loading pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sunpath-tracker/backend/internal/models"
)

// Recorder groups the pipeline collectors. A nil *Recorder records nothing.
type Recorder struct {
	LoadsTotal    *prometheus.CounterVec
	PointsLoaded  prometheus.Counter
	LinesSkipped  *prometheus.CounterVec
	LoadDurationS prometheus.Histogram
	LoadsInFlight prometheus.Gauge
	gatherer      prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sunpath_loads_total",
				Help: "Loads by terminal status",
			},
			[]string{"status"},
		),
		PointsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sunpath_points_loaded_total",
			Help: "Data points appended to the series",
		}),
		LinesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sunpath_lines_skipped_total",
				Help: "Input lines skipped, labelled by failure kind",
			},
			[]string{"kind"},
		),
		LoadDurationS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sunpath_load_duration_seconds",
			Help:    "Wall-clock time of finished loads, pacing included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		LoadsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sunpath_loads_in_flight",
			Help: "Loads currently running",
		}),
		gatherer: reg,
	}
	reg.MustRegister(r.LoadsTotal, r.PointsLoaded, r.LinesSkipped, r.LoadDurationS, r.LoadsInFlight)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) LoadStarted() {
	if r == nil {
		return
	}
	r.LoadsInFlight.Inc()
}

func (r *Recorder) LoadFinished(status models.LoadStatus, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.LoadsInFlight.Dec()
	r.LoadsTotal.WithLabelValues(string(status)).Inc()
	if status != models.LoadStatusCancelled {
		r.LoadDurationS.Observe(elapsed.Seconds())
	}
}

func (r *Recorder) PointLoaded() {
	if r == nil {
		return
	}
	r.PointsLoaded.Inc()
}

func (r *Recorder) LineSkipped(kind models.FailureKind) {
	if r == nil {
		return
	}
	r.LinesSkipped.WithLabelValues(string(kind)).Inc()
}
