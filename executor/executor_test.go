package executor

import (
	"context"
	"testing"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/spec"
	"github.com/rlupton/weaver/table"
)

func mustRoutingTree(t *testing.T, n rule.Node[[]int]) spec.RoutingTree {
	t.Helper()
	rt, err := spec.ToRoutingTree(n)
	if err != nil {
		t.Fatalf("ToRoutingTree: %v", err)
	}
	return rt
}

// twoEdgeSpec builds a minimal spec routing on "type": type=="a" -> edge 0
// (a -> b), anything else -> edge 1 (a -> Elsewhere).
func twoEdgeSpec(t *testing.T) spec.WeaverSpec {
	t.Helper()
	tree := &rule.BranchNode[[]int]{
		Attr: "type",
		Branches: map[string]rule.Node[[]int]{
			"a": &rule.LeafNode[[]int]{Value: []int{0}},
		},
		Default: &rule.LeafNode[[]int]{Value: []int{1}},
	}

	return spec.WeaverSpec{
		Version: spec.Version,
		Nodes: map[string]spec.NodeSpec{
			"a": {Title: "A", Type: "process"},
			"b": {Title: "B", Type: "process"},
		},
		Edges: []spec.EdgeSpec{
			{Source: "a", Target: "b", Type: "a"},
			{Source: "a", Target: "", Type: "other"},
		},
		Measures: []spec.MeasureSpec{{Column: "value", Aggregation: "sum"}},
		Display: spec.DisplaySpec{
			LinkWidth: "value",
			LinkColor: spec.CategoricalColorSpec{Attribute: "type", Lookup: map[string]string{}, Default: "#888888"},
		},
		RoutingTree: mustRoutingTree(t, tree),
	}
}

func TestExecuteRoutesAndAggregates(t *testing.T) {
	s := twoEdgeSpec(t)
	tbl, err := table.New(
		map[string][]string{"type": {"a", "a", "other"}},
		map[string][]float64{"value": {1, 2, 5}},
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	result, err := Execute(context.Background(), s, tbl, WithWorkers(2))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(result.Links) != 1 {
		t.Fatalf("expected 1 regular link, got %d", len(result.Links))
	}
	link := result.Links[0]
	if link.Source != "a" || link.Target != "b" {
		t.Fatalf("unexpected link endpoints: %+v", link)
	}
	if link.Measures["value"] != 3 {
		t.Fatalf("expected aggregated value 3, got %v", link.Measures["value"])
	}

	toElsewhere, ok := result.ToElsewhere["a"]
	if !ok || len(toElsewhere) != 1 || toElsewhere[0].Measures["value"] != 5 {
		t.Fatalf("expected one to-Elsewhere link with value 5, got %+v", result.ToElsewhere)
	}

	if len(result.Nodes) != 2 {
		t.Fatalf("expected both nodes used, got %d", len(result.Nodes))
	}
}

func TestExecuteDropsUnusedNodes(t *testing.T) {
	s := twoEdgeSpec(t)
	s.Nodes["c"] = spec.NodeSpec{Title: "C", Type: "process"}

	tbl, err := table.New(map[string][]string{"type": {"a"}}, map[string][]float64{"value": {1}})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	result, err := Execute(context.Background(), s, tbl)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, n := range result.Nodes {
		if n.ID == "c" {
			t.Fatal("unused node c should have been pruned")
		}
	}
}

func TestExecuteEmptyTable(t *testing.T) {
	s := twoEdgeSpec(t)
	tbl, err := table.New(nil, nil)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	result, err := Execute(context.Background(), s, tbl)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Links) != 0 || len(result.Nodes) != 0 {
		t.Fatalf("expected an empty result, got %+v", result)
	}
}

func TestExecuteRowOrderIsStableAcrossWorkers(t *testing.T) {
	s := twoEdgeSpec(t)
	types := make([]string, 200)
	values := make([]float64, 200)
	for i := range types {
		types[i] = "a"
		values[i] = float64(i)
	}
	tbl, err := table.New(map[string][]string{"type": types}, map[string][]float64{"value": values})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	r1, err := Execute(context.Background(), s, tbl, WithWorkers(1))
	if err != nil {
		t.Fatalf("Execute (1 worker): %v", err)
	}
	r8, err := Execute(context.Background(), s, tbl, WithWorkers(8))
	if err != nil {
		t.Fatalf("Execute (8 workers): %v", err)
	}
	if r1.Links[0].Measures["value"] != r8.Links[0].Measures["value"] {
		t.Fatalf("aggregation should not depend on worker count: %v vs %v",
			r1.Links[0].Measures["value"], r8.Links[0].Measures["value"])
	}
}

func TestBuildGroupsDropsRedundantSingleMemberGroup(t *testing.T) {
	nodeSpecs := map[string]spec.NodeSpec{"x": {Title: "Group X"}}
	groups := []spec.GroupSpec{{ID: "g", Title: "Group X", Nodes: []string{"x"}}}
	out := buildGroups(groups, nodeSpecs, map[string]bool{"x": true})
	if len(out) != 0 {
		t.Fatalf("expected the redundant single-member group to be dropped, got %+v", out)
	}
}

func TestBuildGroupsKeepsDistinctTitleSingleMemberGroup(t *testing.T) {
	nodeSpecs := map[string]spec.NodeSpec{"x": {Title: "X"}}
	groups := []spec.GroupSpec{{ID: "g", Title: "Group", Nodes: []string{"x"}}}
	out := buildGroups(groups, nodeSpecs, map[string]bool{"x": true})
	if len(out) != 1 {
		t.Fatalf("expected the group to survive, got %+v", out)
	}
}

func TestFilterOrderingDropsEmptyLayers(t *testing.T) {
	o := spec.Ordering{
		{{"a", "b"}},
		{{"c"}},
	}
	out := filterOrdering(o, map[string]bool{"a": true})
	if len(out) != 1 {
		t.Fatalf("expected one surviving layer, got %d", len(out))
	}
	if len(out[0][0]) != 1 || out[0][0][0] != "a" {
		t.Fatalf("unexpected surviving band: %+v", out[0])
	}
}

func TestAggregateMeanOverEmptyRowsIsZero(t *testing.T) {
	tbl, err := table.New(nil, map[string][]float64{"value": {1, 2, 3}})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	out := aggregate(tbl, nil, []spec.MeasureSpec{{Column: "value", Aggregation: "mean"}})
	if out["value"] != 0 {
		t.Fatalf("expected 0 for mean over no rows, got %v", out["value"])
	}
}
