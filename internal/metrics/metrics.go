// Package metrics has the service instrumentation contract and its
// prometheus implementation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder knows how to record service measurements. Components depend on
// this interface so tests and ephemeral runs can drop the measurements.
type Recorder interface {
	ObserveHTTPRequest(handler, method string, code int, duration time.Duration)
	IncQueryStarted(kind string)
	IncQueryEnded(status string)
	SetRunningQueries(n int)
	IncStageFailure(stage string)
}

type noop struct{}

// Noop is a recorder that drops every measurement.
var Noop Recorder = noop{}

func (noop) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (noop) IncQueryStarted(string)                                {}
func (noop) IncQueryEnded(string)                                  {}
func (noop) SetRunningQueries(int)                                 {}
func (noop) IncStageFailure(string)                                {}

type recorder struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	queriesStarted *prometheus.CounterVec
	queriesEnded   *prometheus.CounterVec
	runningQueries prometheus.Gauge
	stageFailures  *prometheus.CounterVec
}

// NewRecorder returns a prometheus backed recorder registered on reg.
func NewRecorder(reg prometheus.Registerer) Recorder {
	return &recorder{
		httpRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_http_requests_total",
			Help: "Total HTTP requests handled by the sidecar API.",
		}, []string{"handler", "method", "code"}),

		httpDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringside_http_request_duration_seconds",
			Help:    "HTTP request duration of the sidecar API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler", "method"}),

		queriesStarted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_queries_started_total",
			Help: "Total queries accepted, by kind.",
		}, []string{"kind"}),

		queriesEnded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_queries_finished_total",
			Help: "Total queries ended, by final status.",
		}, []string{"status"}),

		runningQueries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ringside_running_queries",
			Help: "Queries currently running on this node.",
		}),

		stageFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_stage_failures_total",
			Help: "Total pipeline stage failures, by stage tag.",
		}, []string{"stage"}),
	}
}

func (r *recorder) ObserveHTTPRequest(handler, method string, code int, duration time.Duration) {
	r.httpRequests.WithLabelValues(handler, method, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

func (r *recorder) IncQueryStarted(kind string)  { r.queriesStarted.WithLabelValues(kind).Inc() }
func (r *recorder) IncQueryEnded(status string)  { r.queriesEnded.WithLabelValues(status).Inc() }
func (r *recorder) SetRunningQueries(n int)      { r.runningQueries.Set(float64(n)) }
func (r *recorder) IncStageFailure(stage string) { r.stageFailures.WithLabelValues(stage).Inc() }
