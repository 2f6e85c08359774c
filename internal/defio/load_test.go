package defio

import (
	"testing"

	"github.com/rlupton/weaver/sankey"
)

func TestLoadExplicitIDsAndWaypoint(t *testing.T) {
	doc := []byte(`{
		"nodes": {
			"a": {"type": "process_group", "title": "A", "selection": ["p1", "p2"]},
			"w": {"type": "waypoint", "title": "W"}
		},
		"bundles": {}
	}`)

	def, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pg, ok := def.ProcessGroupOf("a")
	if !ok {
		t.Fatalf("expected node a to be a process group")
	}
	if len(pg.Selection.IDs) != 2 || pg.Selection.IDs[0] != "p1" {
		t.Fatalf("unexpected selection: %+v", pg.Selection)
	}

	wp, ok := def.WaypointOf("w")
	if !ok {
		t.Fatalf("expected node w to be a waypoint")
	}
	if wp.Title != "W" {
		t.Fatalf("unexpected waypoint title: %q", wp.Title)
	}
}

func TestLoadQuerySelection(t *testing.T) {
	doc := []byte(`{"nodes": {"a": {"selection": "region = 'EU'"}}, "bundles": {}}`)
	def, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pg, ok := def.ProcessGroupOf("a")
	if !ok || !pg.Selection.IsQuery() || pg.Selection.Query != "region = 'EU'" {
		t.Fatalf("unexpected process group: %+v, ok=%v", pg, ok)
	}
}

func TestLoadBundleEndpointVariants(t *testing.T) {
	doc := []byte(`{
		"nodes": {"a": {"selection": ["p1"]}, "b": {"selection": ["p2"]}},
		"bundles": {
			"explicit": {"source": "a", "target": "b"},
			"literal_elsewhere": {"source": "Elsewhere", "target": "b"},
			"omitted_source": {"target": "b"}
		}
	}`)

	def, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if src := def.Bundles["explicit"].Source; src == sankey.Elsewhere || src.ID != "a" {
		t.Fatalf("unexpected explicit source: %+v", src)
	}
	if def.Bundles["literal_elsewhere"].Source != sankey.Elsewhere {
		t.Fatalf("expected literal Elsewhere to resolve to the sentinel, got %+v", def.Bundles["literal_elsewhere"].Source)
	}
	if def.Bundles["omitted_source"].Source != sankey.Elsewhere {
		t.Fatalf("expected an omitted source to resolve to the sentinel, got %+v", def.Bundles["omitted_source"].Source)
	}
}

func TestLoadOrderingSingleBandShorthand(t *testing.T) {
	doc := []byte(`{
		"nodes": {"a": {"selection": ["p1"]}},
		"bundles": {},
		"ordering": [["a", "b"], [["c"], ["d", "e"]]]
	}`)

	def, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(def.Ordering.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(def.Ordering.Layers))
	}
	if len(def.Ordering.Layers[0]) != 1 || len(def.Ordering.Layers[0][0]) != 2 {
		t.Fatalf("expected layer 0 to be a single two-element band, got %+v", def.Ordering.Layers[0])
	}
	if len(def.Ordering.Layers[1]) != 2 {
		t.Fatalf("expected layer 1 to keep its two explicit bands, got %+v", def.Ordering.Layers[1])
	}
}

func TestLoadPartition(t *testing.T) {
	doc := []byte(`{
		"nodes": {
			"a": {
				"selection": ["p1", "p2"],
				"partition": {"groups": [
					{"label": "EU", "query": [{"attr": "region", "values": ["EU"]}]},
					{"label": "US", "query": [{"attr": "region", "values": ["US"]}]}
				]}
			}
		},
		"bundles": {}
	}`)

	def, err := Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pg, _ := def.ProcessGroupOf("a")
	if pg.Partition == nil || len(pg.Partition.Groups) != 2 {
		t.Fatalf("expected a 2-group partition, got %+v", pg.Partition)
	}
	if pg.Partition.Groups[0].Label != "EU" || pg.Partition.Groups[0].Query[0].Attr != "region" {
		t.Fatalf("unexpected partition group: %+v", pg.Partition.Groups[0])
	}
}

func TestLoadEmptyDocumentIsAnError(t *testing.T) {
	if _, err := Load([]byte("")); err == nil {
		t.Fatal("expected an error for an empty document")
	}
}
