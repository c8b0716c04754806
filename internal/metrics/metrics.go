// Package metrics provides Prometheus metrics for promptvault
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for promptvault
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Template metrics
	TemplateRendersTotal      prometheus.Counter
	TemplateMissingKeysTotal  prometheus.Counter
	TemplatePlaceholdersTotal prometheus.Counter

	// Diff metrics
	DiffDuration *prometheus.HistogramVec

	// Revision metrics
	RevisionsCapturedTotal *prometheus.CounterVec
	CapturesSkippedTotal   prometheus.Counter
	RevisionsPrunedTotal   prometheus.Counter
	PromptsTotal           prometheus.Gauge

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptvault_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptvault_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptvault_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.TemplateRendersTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_template_renders_total",
			Help: "Total number of template renders",
		},
	)

	m.TemplateMissingKeysTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_template_missing_keys_total",
			Help: "Total number of placeholders rendered without a value",
		},
	)

	m.TemplatePlaceholdersTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_template_placeholders_extracted_total",
			Help: "Total number of placeholder descriptors extracted",
		},
	)

	m.DiffDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptvault_diff_duration_seconds",
			Help:    "Duration of snapshot diffs in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"source"},
	)

	m.RevisionsCapturedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptvault_revisions_captured_total",
			Help: "Total number of revisions captured",
		},
		[]string{"milestone"},
	)

	m.CapturesSkippedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_revision_captures_skipped_total",
			Help: "Total number of captures skipped because content was unchanged",
		},
	)

	m.RevisionsPrunedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptvault_revisions_pruned_total",
			Help: "Total number of revisions removed by retention",
		},
	)

	m.PromptsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptvault_prompts_total",
			Help: "Number of prompts held by the server",
		},
	)

	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptvault_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// RunUptime updates the uptime gauge every interval until done is closed
func (m *Metrics) RunUptime(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		}
	}
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRender records one template render
func (m *Metrics) RecordRender(missing int) {
	m.TemplateRendersTotal.Inc()
	m.TemplateMissingKeysTotal.Add(float64(missing))
}

// RecordDiff records the duration of a diff
func (m *Metrics) RecordDiff(source string, duration time.Duration) {
	m.DiffDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RevisionCaptured implements version.Observer
func (m *Metrics) RevisionCaptured(milestone bool) {
	label := "false"
	if milestone {
		label = "true"
	}
	m.RevisionsCapturedTotal.WithLabelValues(label).Inc()
}

// CaptureSkipped implements version.Observer
func (m *Metrics) CaptureSkipped() {
	m.CapturesSkippedTotal.Inc()
}

// RevisionsPruned implements version.Observer
func (m *Metrics) RevisionsPruned(n int) {
	m.RevisionsPrunedTotal.Add(float64(n))
}
