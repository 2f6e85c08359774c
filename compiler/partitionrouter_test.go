package compiler

import (
	"testing"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/sankey"
)

func TestExpandPartitionNilIsSingleCatchAll(t *testing.T) {
	rules, err := ExpandPartition(nil, nil, SideNone)
	if err != nil {
		t.Fatalf("ExpandPartition: %v", err)
	}
	if len(rules) != 1 || rules[0].Label != "" {
		t.Fatalf("expected a single unlabelled catch-all rule, got %+v", rules)
	}
}

func TestExpandPartitionGroupsGetPrefixedLabels(t *testing.T) {
	partition, err := sankey.Simple("region", sankey.Value("EU"), sankey.Value("US"))
	if err != nil {
		t.Fatalf("Simple: %v", err)
	}
	prefix := "a^"
	rules, err := ExpandPartition(partition, &prefix, SideSource)
	if err != nil {
		t.Fatalf("ExpandPartition: %v", err)
	}

	var sawEU, sawDefault bool
	for _, r := range rules {
		if r.Label == "a^EU" {
			sawEU = true
		}
		if r.Label == "a^_" {
			sawDefault = true
		}
	}
	if !sawEU || !sawDefault {
		t.Fatalf("expected both an EU label and a default label, got %+v", rules)
	}
}

func TestExpandPartitionTranslatesProcessAttribute(t *testing.T) {
	partition := &sankey.Partition{Groups: []sankey.Group{
		{Label: "EU", Query: []sankey.AttrValues{{Attr: "process.region", Values: []string{"EU"}}}},
	}}
	prefix := "a^"
	rules, err := ExpandPartition(partition, &prefix, SideSource)
	if err != nil {
		t.Fatalf("ExpandPartition: %v", err)
	}
	var sawEU bool
	for _, r := range rules {
		if r.Label != "a^EU" {
			continue
		}
		sawEU = true
		if _, ok := r.Query["source.region"]; !ok {
			t.Fatalf("expected process.region translated to source.region, got %+v", r.Query)
		}
	}
	if !sawEU {
		t.Fatalf("expected an a^EU rule, got %+v", rules)
	}
}

func TestExpandPartitionProcessAttributeWithoutSideErrors(t *testing.T) {
	partition := &sankey.Partition{Groups: []sankey.Group{
		{Label: "EU", Query: []sankey.AttrValues{{Attr: "process.region", Values: []string{"EU"}}}},
	}}
	if _, err := ExpandPartition(partition, nil, SideNone); err == nil {
		t.Fatal("expected an error translating a process attribute with no side")
	}
}

func TestExpandPartitionOverlappingGroupsErrors(t *testing.T) {
	partition := &sankey.Partition{Groups: []sankey.Group{
		{Label: "EU", Query: []sankey.AttrValues{{Attr: "region", Values: []string{"EU"}}}},
		{Label: "EUAgain", Query: []sankey.AttrValues{{Attr: "region", Values: []string{"EU"}}}},
	}}
	if _, err := ExpandPartition(partition, nil, SideNone); err == nil {
		t.Fatal("expected an error for overlapping partition groups")
	}
}

func TestBuildSegmentRoutingCombinesFourPartitions(t *testing.T) {
	sourcePartition, _ := sankey.Simple("region", sankey.Value("EU"))
	rules, err := BuildSegmentRouting("a", "b", sourcePartition, nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildSegmentRouting: %v", err)
	}
	for _, r := range rules {
		if r.Label.Source != "a^EU" && r.Label.Source != "a^_" {
			t.Fatalf("unexpected source label: %q", r.Label.Source)
		}
	}
}

func TestMergeSegmentRoutingsChainsInOrder(t *testing.T) {
	seg1 := rule.Of(rule.Rule[EdgeKey]{Label: EdgeKey{Source: "a", Target: "dummy"}})
	seg2 := rule.Of(rule.Rule[EdgeKey]{Label: EdgeKey{Source: "dummy", Target: "b"}})

	merged := MergeSegmentRoutings(seg1, seg2)
	if len(merged) != 1 || len(merged[0].Label) != 2 {
		t.Fatalf("expected a single 2-segment chain, got %+v", merged)
	}
	if merged[0].Label[0].Target != "dummy" || merged[0].Label[1].Source != "dummy" {
		t.Fatalf("expected the segments to chain through the dummy node, got %+v", merged[0].Label)
	}
}
