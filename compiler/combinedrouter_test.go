package compiler

import (
	"testing"

	"github.com/rlupton/weaver/sankey"
)

func simpleViewGraph(t *testing.T) (*sankey.ViewGraph, map[string]sankey.Bundle, map[string]any) {
	t.Helper()
	def := sankey.Definition{
		Nodes: map[string]any{
			"a": &sankey.ProcessGroup{Selection: sankey.ExplicitIDs("p1")},
			"b": &sankey.ProcessGroup{Selection: sankey.ExplicitIDs("p2")},
		},
		Bundles: map[string]sankey.Bundle{
			"b1": {Source: sankey.Ref("a"), Target: sankey.Ref("b")},
		},
		Ordering: sankey.NewOrdering(sankey.SingleBand("a"), sankey.SingleBand("b")),
	}
	vg, err := sankey.BuildViewGraph(def)
	if err != nil {
		t.Fatalf("BuildViewGraph: %v", err)
	}
	vg, err = sankey.Augment(vg, true)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}
	return vg, def.Bundles, def.Nodes
}

func TestBuildRouterRoutesRowToExpectedEdge(t *testing.T) {
	vg, bundles, nodes := simpleViewGraph(t)
	tree, edges, err := BuildRouter(vg, bundles, nodes, nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildRouter: %v", err)
	}
	if len(edges) != 1 || edges[0].Source != "a" || edges[0].Target != "b" {
		t.Fatalf("unexpected edges: %+v", edges)
	}

	get := func(attr string) (string, bool) {
		switch attr {
		case "source":
			return "p1", true
		case "target":
			return "p2", true
		}
		return "", false
	}
	got := RouteRow(tree, get)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected the row to route to edge 0, got %+v", got)
	}
}

func TestBuildRouterUnmatchedRowRoutesNowhere(t *testing.T) {
	vg, bundles, nodes := simpleViewGraph(t)
	tree, _, err := BuildRouter(vg, bundles, nodes, nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildRouter: %v", err)
	}

	get := func(attr string) (string, bool) { return "", false }
	got := RouteRow(tree, get)
	if len(got) != 0 {
		t.Fatalf("expected an unmatched row to route nowhere, got %+v", got)
	}
}

func TestBuildRoutingRulesDeduplicatesSharedEdges(t *testing.T) {
	def := sankey.Definition{
		Nodes: map[string]any{
			"a": &sankey.ProcessGroup{Selection: sankey.ExplicitIDs("p1", "p2")},
			"b": &sankey.ProcessGroup{Selection: sankey.ExplicitIDs("p3")},
		},
		Bundles: map[string]sankey.Bundle{
			"b1": {Source: sankey.Ref("a"), Target: sankey.Ref("b")},
		},
		Ordering: sankey.NewOrdering(sankey.SingleBand("a"), sankey.SingleBand("b")),
	}
	vg, err := sankey.BuildViewGraph(def)
	if err != nil {
		t.Fatalf("BuildViewGraph: %v", err)
	}
	vg, err = sankey.Augment(vg, true)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}

	_, edges, err := BuildRouter(vg, def.Bundles, def.Nodes, nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildRouter: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected a single deduplicated edge for the a->b hop, got %+v", edges)
	}
}

func TestGetPartitionRulesForMatchUnknownTypeErrors(t *testing.T) {
	if _, err := getPartitionRulesForMatch(nil, unknownMatch{}); err == nil {
		t.Fatal("expected an error for an unrecognised BundleMatch type")
	}
}

type unknownMatch struct{}

func (unknownMatch) isBundleMatch() {}

func TestExtractEdgeSpecsAssignsStableIndicesAndBundleIDs(t *testing.T) {
	rules := RoutingRules{
		{Label: []TaggedEdgeKey{{Key: EdgeKey{Source: "a", Target: "b"}, BundleID: "b1"}}},
		{Label: []TaggedEdgeKey{{Key: EdgeKey{Source: "a", Target: "b"}, BundleID: "b2"}}},
	}
	indexed, edgeSpecs := extractEdgeSpecs(rules)
	if len(edgeSpecs) != 1 {
		t.Fatalf("expected both rules to collapse onto one edge, got %+v", edgeSpecs)
	}
	if len(edgeSpecs[0].BundleIDs) != 2 {
		t.Fatalf("expected both bundle ids attributed to the shared edge, got %+v", edgeSpecs[0].BundleIDs)
	}
	for _, r := range indexed {
		if len(r.Label) != 1 || r.Label[0] != 0 {
			t.Fatalf("expected every rule to index edge 0, got %+v", r.Label)
		}
	}
}
