package rule

import "testing"

func getter(values map[string]string) GetValue {
	return func(attr string) (string, bool) {
		v, ok := values[attr]
		return v, ok
	}
}

func TestLeafNodeEvaluate(t *testing.T) {
	leaf := &LeafNode[int]{Value: 42}
	if got := leaf.Evaluate(getter(nil)); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestBranchNodeEvaluateFollowsMatchingBranch(t *testing.T) {
	n := &BranchNode[string]{
		Attr: "region",
		Branches: map[string]Node[string]{
			"EU": &LeafNode[string]{Value: "europe"},
		},
		Default: &LeafNode[string]{Value: "other"},
	}
	if got := n.Evaluate(getter(map[string]string{"region": "EU"})); got != "europe" {
		t.Fatalf("expected europe, got %q", got)
	}
	if got := n.Evaluate(getter(map[string]string{"region": "US"})); got != "other" {
		t.Fatalf("expected other for an unmapped value, got %q", got)
	}
	if got := n.Evaluate(getter(nil)); got != "other" {
		t.Fatalf("expected other for a missing attribute, got %q", got)
	}
}

func TestBuildTreeSingleRule(t *testing.T) {
	rs := Of(Rule[int]{Query: Query{"region": Includes("EU")}, Label: 1})
	tree, err := BuildTree(rs, nil, 0, nil)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	if got := tree.Evaluate(getter(map[string]string{"region": "EU"})); got != 1 {
		t.Fatalf("expected 1 for region=EU, got %d", got)
	}
	if got := tree.Evaluate(getter(map[string]string{"region": "US"})); got != 0 {
		t.Fatalf("expected default 0 for region=US, got %d", got)
	}
}

func TestBuildTreeOverlapWithoutCombineErrors(t *testing.T) {
	rs := Of(
		Rule[int]{Query: Query{"region": Includes("EU")}, Label: 1},
		Rule[int]{Label: 2}, // matches everywhere, including region=EU
	)
	if _, err := BuildTree(rs, nil, 0, nil); err == nil {
		t.Fatal("expected an error when more than one rule matches the same region with no Combine")
	}
}

func TestBuildTreeWithCombine(t *testing.T) {
	rs := Of(
		Rule[int]{Query: Query{"region": Includes("EU")}, Label: 1},
		Rule[int]{Label: 2},
	)
	combine := func(labels []int) (int, error) {
		sum := 0
		for _, l := range labels {
			sum += l
		}
		return sum, nil
	}
	tree, err := BuildTree(rs, nil, 0, combine)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if got := tree.Evaluate(getter(map[string]string{"region": "EU"})); got != 3 {
		t.Fatalf("expected combined value 3 for region=EU, got %d", got)
	}
	if got := tree.Evaluate(getter(map[string]string{"region": "US"})); got != 2 {
		t.Fatalf("expected combined value 2 for region=US, got %d", got)
	}
}

func TestBuildTreeAttrOrderIsRespected(t *testing.T) {
	rs := Of(
		Rule[string]{Query: Query{"region": Includes("EU"), "type": Includes("freight")}, Label: "match"},
	)
	tree, err := BuildTree(rs, []string{"region", "type"}, "none", nil)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	branch, ok := tree.(*BranchNode[string])
	if !ok || branch.Attr != "region" {
		t.Fatalf("expected the root branch to split on region first, got %+v", tree)
	}
}
