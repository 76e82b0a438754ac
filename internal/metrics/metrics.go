// Package metrics exposes the ingestion pipeline counters in Prometheus
// format. A Recorder owns its registry so tests and multiple servers in one
// process do not collide on the default one.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/intake/internal/core"
)

const namespace = "intake"

// Recorder implements core.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	uploads      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	bestEffort   *prometheus.CounterVec
	compensation *prometheus.CounterVec
	orphans      prometheus.Counter
	duration     *prometheus.HistogramVec
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Completed ingestions by dataset and whether the content was a duplicate.",
		}, []string{"dataset", "duplicate"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failures_total",
			Help:      "Failed ingestions by dataset and error kind.",
		}, []string{"dataset", "kind"}),
		bestEffort: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Failures of writes that do not fail an ingestion (audit, cursor, digest, notify).",
		}, []string{"op"}),
		compensation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_failures_total",
			Help:      "Artifacts that could not be removed after a manifest write failed.",
		}, []string{"dataset"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_artifacts_total",
			Help:      "Artifacts found without a manifest by the reconciler.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent storing one upload.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"dataset"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.uploads,
		r.failures,
		r.bestEffort,
		r.compensation,
		r.orphans,
		r.duration,
	)
	return r
}

// TrackActive exposes fn as the intake_uploads_active gauge.
func (r *Recorder) TrackActive(fn func() int) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uploads_active",
		Help:      "Ingestions currently holding an upload slot.",
	}, func() float64 { return float64(fn()) }))
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) UploadCompleted(dataset string, duplicate bool, took time.Duration) {
	r.uploads.WithLabelValues(dataset, strconv.FormatBool(duplicate)).Inc()
	r.duration.WithLabelValues(dataset).Observe(took.Seconds())
}

func (r *Recorder) UploadFailed(dataset, kind string) {
	r.failures.WithLabelValues(dataset, kind).Inc()
}

func (r *Recorder) BestEffortFailed(op string) {
	r.bestEffort.WithLabelValues(op).Inc()
}

func (r *Recorder) CompensationFailed(dataset string) {
	r.compensation.WithLabelValues(dataset).Inc()
}

func (r *Recorder) OrphansFound(n int) {
	if n > 0 {
		r.orphans.Add(float64(n))
	}
}

var _ core.Recorder = (*Recorder)(nil)
