// Package metrics exposes Prometheus instrumentation for the build loop and
// the live-reload transport.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the metric instruments for one instance.
type Recorder struct {
	registry *prometheus.Registry

	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	reloadsTotal  *prometheus.CounterVec
	clients       prometheus.Gauge
}

// NewRecorder creates a recorder backed by its own registry so concurrent
// instances in tests do not collide on metric registration.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_builds_total",
			Help: "Completed builds by status.",
		}, []string{"status"}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loom_build_duration_seconds",
			Help:    "Build pipeline wall time.",
			Buckets: prometheus.DefBuckets,
		}),
		reloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_reloads_total",
			Help: "Live-reload broadcasts by target.",
		}, []string{"target"}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loom_livereload_clients",
			Help: "Connected live-reload clients.",
		}),
	}
}

// BuildSucceeded records a successful build and its duration in seconds.
func (r *Recorder) BuildSucceeded(seconds float64) {
	r.buildsTotal.WithLabelValues("success").Inc()
	r.buildDuration.Observe(seconds)
}

// BuildFailed records a failed build.
func (r *Recorder) BuildFailed() {
	r.buildsTotal.WithLabelValues("error").Inc()
}

// Reload records a live-reload broadcast. target is "full" or the partial
// target name.
func (r *Recorder) Reload(target string) {
	if target == "" {
		target = "full"
	}
	r.reloadsTotal.WithLabelValues(target).Inc()
}

// ClientConnected and ClientDisconnected track the SSE client gauge.
func (r *Recorder) ClientConnected()    { r.clients.Inc() }
func (r *Recorder) ClientDisconnected() { r.clients.Dec() }

// Handler returns the /metrics endpoint for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
