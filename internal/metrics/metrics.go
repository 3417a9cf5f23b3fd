// Package metrics exposes probe and control outcomes as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/reachprobe/internal/checker"
	"github.com/hazz-dev/reachprobe/internal/control"
)

const namespace = "reachprobe"

// Recorder holds the collectors on a private registry.
type Recorder struct {
	registry        *prometheus.Registry
	tcpAttempts     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	requestDuration prometheus.Histogram
	controlResults  *prometheus.CounterVec
	controlPassing  *prometheus.GaugeVec
}

// New creates a Recorder and registers its collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tcpAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_attempts_total",
			Help:      "TCP reachability samples by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Final HTTP GET requests by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of the final HTTP GET.",
			Buckets:   prometheus.DefBuckets,
		}),
		controlResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_results_total",
			Help:      "Executed examples by control and status.",
		}, []string{"control", "status"}),
		controlPassing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_passing",
			Help:      "1 when the latest run of the control passed, 0 otherwise.",
		}, []string{"control"}),
	}
	r.registry.MustRegister(
		r.tcpAttempts,
		r.httpRequests,
		r.requestDuration,
		r.controlResults,
		r.controlPassing,
	)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func resultLabel(res checker.CheckResult) string {
	if res.Up() {
		return "reachable"
	}
	return "unreachable"
}

// ObserveAttempt counts one TCP reachability sample.
func (r *Recorder) ObserveAttempt(res checker.CheckResult) {
	r.tcpAttempts.WithLabelValues(resultLabel(res)).Inc()
}

// ObserveRequest counts the final GET and records its duration.
func (r *Recorder) ObserveRequest(res checker.CheckResult) {
	label := "success"
	if !res.Up() {
		label = "failure"
	}
	r.httpRequests.WithLabelValues(label).Inc()
	r.requestDuration.Observe(res.ResponseTime.Seconds())
}

// ObserveReport counts every result and updates the per-control gauge.
func (r *Recorder) ObserveReport(report *control.Report) {
	for _, res := range report.Results {
		r.controlResults.WithLabelValues(res.Control, string(res.Status)).Inc()
	}
	for id, status := range report.ControlStatus() {
		v := 0.0
		if status == control.StatusPassed {
			v = 1
		}
		r.controlPassing.WithLabelValues(id).Set(v)
	}
}
