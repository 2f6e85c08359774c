package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rlupton/weaver/spec"
)

func TestParseMeasuresDefaultsToSum(t *testing.T) {
	measures, err := parseMeasures([]string{"value"})
	if err != nil {
		t.Fatalf("parseMeasures: %v", err)
	}
	if len(measures) != 1 || measures[0].Column != "value" || measures[0].Aggregation != "sum" {
		t.Fatalf("unexpected measures: %+v", measures)
	}
}

func TestParseMeasuresExplicitAggregation(t *testing.T) {
	measures, err := parseMeasures([]string{"cost:mean", "value:sum"})
	if err != nil {
		t.Fatalf("parseMeasures: %v", err)
	}
	if len(measures) != 2 || measures[0].Aggregation != "mean" || measures[1].Aggregation != "sum" {
		t.Fatalf("unexpected measures: %+v", measures)
	}
}

func TestParseMeasuresRejectsEmptyColumn(t *testing.T) {
	if _, err := parseMeasures([]string{":sum"}); err == nil {
		t.Fatal("expected an error for a measure with an empty column")
	}
}

func TestResolveLinkColorNoneSpecified(t *testing.T) {
	cs, err := resolveLinkColor(compileFlags{})
	if err != nil {
		t.Fatalf("resolveLinkColor: %v", err)
	}
	if cs != nil {
		t.Fatalf("expected a nil ColorSpec when no flag is set, got %+v", cs)
	}
}

func TestResolveLinkColorPrefersColorMapping(t *testing.T) {
	flags := compileFlags{
		colorMapping: `{"type": "categorical", "attr": "type", "lookup": {}, "default": "#888888"}`,
		linkColor:    `{"type": "categorical", "attr": "ignored", "lookup": {}, "default": "#000000"}`,
	}
	cs, err := resolveLinkColor(flags)
	if err != nil {
		t.Fatalf("resolveLinkColor: %v", err)
	}
	cat, ok := cs.(spec.CategoricalColorSpec)
	if !ok || cat.Attribute != "type" {
		t.Fatalf("expected --color-mapping to take priority, got %+v", cs)
	}
}

func TestResolveLinkColorAppliesPaletteName(t *testing.T) {
	flags := compileFlags{
		colorMapping: `{"type": "quantitative", "attr": "value", "domain": [0, 1]}`,
		paletteName:  "viridis",
	}
	cs, err := resolveLinkColor(flags)
	if err != nil {
		t.Fatalf("resolveLinkColor: %v", err)
	}
	quant, ok := cs.(spec.QuantitativeColorSpec)
	if !ok || len(quant.Palette) == 0 {
		t.Fatalf("expected the named palette's colors to be stamped onto the spec, got %+v", cs)
	}
}

func TestResolveLinkColorRejectsUnknownPaletteName(t *testing.T) {
	flags := compileFlags{
		colorMapping: `{"type": "quantitative", "attr": "value", "domain": [0, 1]}`,
		paletteName:  "not-a-real-palette",
	}
	if _, err := resolveLinkColor(flags); err == nil {
		t.Fatal("expected an error for an unknown palette name")
	}
}

func TestResolveLinkColorRejectsPaletteNameWithoutColorMapping(t *testing.T) {
	flags := compileFlags{paletteName: "viridis"}
	if _, err := resolveLinkColor(flags); err == nil {
		t.Fatal("expected an error for --palette-name without --color-mapping or --link-color")
	}
}

func TestSetupTracerWithoutEndpointWrapsStage(t *testing.T) {
	tracer, shutdown, err := setupTracer(context.Background(), compileFlags{})
	if err != nil {
		t.Fatalf("setupTracer: %v", err)
	}
	wantErr := errors.New("boom")
	got := tracer.StageCompile(context.Background(), "def-1", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(got, wantErr) {
		t.Fatalf("expected the no-op tracer to still run the wrapped stage, got %v", got)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected a no-op shutdown to succeed, got %v", err)
	}
}

func TestWriteSpecToFile(t *testing.T) {
	sp := spec.WeaverSpec{Version: spec.Version}
	out := filepath.Join(t.TempDir(), "out.json")
	if err := writeSpec(sp, compileFlags{out: out}); err != nil {
		t.Fatalf("writeSpec: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty spec output")
	}
}
