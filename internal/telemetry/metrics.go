// Package telemetry provides Prometheus metrics and OpenTelemetry spans
// for the compile and execute stages, following the teacher's
// graph/metrics.go and graph/emit/otel.go conventions: a namespaced
// metrics struct registered against a caller-supplied registry, and a
// tracer wrapping each stage in a span.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for compilation and
// execution. All metrics are namespaced "weaver_".
type Metrics struct {
	compileDuration  *prometheus.HistogramVec
	rulesRefined     *prometheus.HistogramVec
	routingTreeDepth *prometheus.HistogramVec
	rowsProcessed    *prometheus.CounterVec
	edgesProduced    *prometheus.HistogramVec
}

// NewMetrics creates and registers all compiler/executor metrics with
// registry. Pass nil to use prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		compileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weaver",
			Name:      "compile_duration_seconds",
			Help:      "Time to compile a diagram definition into a WeaverSpec",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"status"}),
		rulesRefined: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weaver",
			Name:      "routing_rules_refined",
			Help:      "Number of disjoint routing rules produced by refinement",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"stage"}), // stage: selection, partition, combined
		routingTreeDepth: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weaver",
			Name:      "routing_tree_depth",
			Help:      "Depth of the compiled routing decision tree",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{}),
		rowsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weaver",
			Name:      "rows_processed_total",
			Help:      "Cumulative number of flow-table rows routed during execution",
		}, []string{"status"}), // status: routed, unmatched
		edgesProduced: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weaver",
			Name:      "edges_produced",
			Help:      "Number of edges in a compiled WeaverSpec",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{}),
	}
}

// ObserveCompile records a compile attempt's duration and outcome.
func (m *Metrics) ObserveCompile(seconds float64, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	m.compileDuration.WithLabelValues(status).Observe(seconds)
}

// ObserveRulesRefined records how many disjoint rules a refinement stage
// produced.
func (m *Metrics) ObserveRulesRefined(stage string, count int) {
	m.rulesRefined.WithLabelValues(stage).Observe(float64(count))
}

// ObserveRoutingTreeDepth records the compiled tree's depth.
func (m *Metrics) ObserveRoutingTreeDepth(depth int) {
	m.routingTreeDepth.WithLabelValues().Observe(float64(depth))
}

// ObserveEdgesProduced records how many edges a compile produced.
func (m *Metrics) ObserveEdgesProduced(count int) {
	m.edgesProduced.WithLabelValues().Observe(float64(count))
}

// AddRowsProcessed increments the routed/unmatched row counters.
func (m *Metrics) AddRowsProcessed(routed, unmatched int) {
	m.rowsProcessed.WithLabelValues("routed").Add(float64(routed))
	m.rowsProcessed.WithLabelValues("unmatched").Add(float64(unmatched))
}
