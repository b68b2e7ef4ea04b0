// Package metrics exposes Prometheus instrumentation for analyses and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/muletrace/internal/domain"
)

// Analysis outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTruncated = "truncated"
	OutcomeFailed    = "failed"
)

// Recorder owns a registry and the collectors registered on it. A nil *Recorder
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	recordsSkipped   prometheus.Counter
	ringsDetected    prometheus.Counter
	accountsFlagged  prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New builds a Recorder with its own registry, including Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muletrace_analyses_total",
			Help: "Total number of transaction batch analyses",
		}, []string{"source", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "muletrace_analysis_duration_seconds",
			Help:    "Wall-clock time spent analysing a batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"source"}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muletrace_records_skipped_total",
			Help: "Transaction records rejected as malformed",
		}),
		ringsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muletrace_fraud_rings_detected_total",
			Help: "Fraud ring records produced",
		}),
		accountsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muletrace_accounts_flagged_total",
			Help: "Suspicious accounts reported",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.analysesTotal,
		r.analysisDuration,
		r.recordsSkipped,
		r.ringsDetected,
		r.accountsFlagged,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveAnalysis records a completed analysis.
func (r *Recorder) ObserveAnalysis(source string, res domain.Result, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if res.Summary.CycleDetectionTruncated {
		outcome = OutcomeTruncated
	}
	r.analysesTotal.WithLabelValues(source, outcome).Inc()
	r.analysisDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	r.recordsSkipped.Add(float64(res.Summary.SkippedRecords))
	r.ringsDetected.Add(float64(res.Summary.FraudRingsDetected))
	r.accountsFlagged.Add(float64(res.Summary.SuspiciousAccountsFlagged))
}

// ObserveFailure records an analysis that produced no result.
func (r *Recorder) ObserveFailure(source string) {
	if r == nil {
		return
	}
	r.analysesTotal.WithLabelValues(source, OutcomeFailed).Inc()
}

// ObserveRequest records one HTTP exchange.
func (r *Recorder) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	code := strconv.Itoa(status)
	r.httpRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	r.httpRequestDuration.WithLabelValues(method, endpoint, code).Observe(elapsed.Seconds())
}
