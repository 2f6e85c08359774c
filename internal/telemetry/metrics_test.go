package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveCompileLabelsByOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.ObserveCompile(0.01, true)
	m.ObserveCompile(0.02, false)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	hist := findHistogram(t, families, "weaver_compile_duration_seconds")
	if len(hist) != 2 {
		t.Fatalf("expected 2 label series (success, error), got %d", len(hist))
	}
}

func TestAddRowsProcessedIncrementsBothCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.AddRowsProcessed(10, 2)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var routed, unmatched float64
	for _, fam := range families {
		if fam.GetName() != "weaver_rows_processed_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, lbl := range metric.GetLabel() {
				if lbl.GetName() == "status" && lbl.GetValue() == "routed" {
					routed = metric.GetCounter().GetValue()
				}
				if lbl.GetName() == "status" && lbl.GetValue() == "unmatched" {
					unmatched = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if routed != 10 || unmatched != 2 {
		t.Fatalf("expected routed=10 unmatched=2, got routed=%v unmatched=%v", routed, unmatched)
	}
}

func TestObserveEdgesProducedRecordsSample(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.ObserveEdgesProduced(42)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != "weaver_edges_produced" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if metric.GetHistogram().GetSampleCount() != 1 {
				t.Fatalf("expected exactly one observation, got %d", metric.GetHistogram().GetSampleCount())
			}
		}
	}
}

func findHistogram(t *testing.T, families []*dto.MetricFamily, name string) []*dto.Metric {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() == name {
			return fam.GetMetric()
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}
