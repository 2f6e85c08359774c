package compiler

import (
	"fmt"
	"sort"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/sankey"
	"github.com/rlupton/weaver/spec"
)

// TaggedEdgeKey pairs an EdgeKey with the bundle id that contributed it, so
// edges sharing a segment can still be attributed to the right bundle for
// provenance.
type TaggedEdgeKey struct {
	Key      EdgeKey
	BundleID string
}

// RoutingRules maps row attributes to the ordered chain of tagged edge keys
// a matching row is routed across.
type RoutingRules = rule.Rules[[]TaggedEdgeKey]

// RoutingTree maps row attributes to the edge indices (into the returned
// EdgeSpec list) a matching row contributes to.
type RoutingTree = rule.Node[[]int]

type edgeKeyPair struct {
	From, To string
}

// BuildRoutingRules assembles the full routing rule set for a compiled
// diagram: selection rules choosing which bundle(s) a row belongs to,
// combined with the per-segment partition routing of the augmented view
// graph that bundle's path crosses.
func BuildRoutingRules(vg *sankey.ViewGraph, bundles map[string]sankey.Bundle, nodes map[string]any, flowPartition, timePartition *sankey.Partition, dim DimensionLookup) (RoutingRules, error) {
	selectionRules, err := BuildSelectionRules(bundles, nodes, dim)
	if err != nil {
		return nil, err
	}

	edgeRouting, bundleEdges, err := buildEdgeRoutingFromViewGraph(vg, bundles, flowPartition, timePartition)
	if err != nil {
		return nil, err
	}

	bundlePartitionRules, err := buildBundlePartitionRouting(edgeRouting, bundleEdges)
	if err != nil {
		return nil, err
	}

	var out RoutingRules
	for _, r := range selectionRules {
		partitionRules, err := getPartitionRulesForMatch(bundlePartitionRules, r.Label)
		if err != nil {
			return nil, err
		}
		for _, r2 := range partitionRules {
			combined := rule.IntersectQueries(r.Query, r2.Query)
			if rule.Satisfiable(combined) {
				out = append(out, rule.Rule[[]TaggedEdgeKey]{Query: combined, Label: r2.Label})
			}
		}
	}
	return out, nil
}

// BuildTreeFromRules extracts the unique edges referenced by rules
// (deduplicated by EdgeKey, not by bundle) and compiles the routing tree
// over edge indices.
func BuildTreeFromRules(rules RoutingRules) (RoutingTree, []spec.EdgeSpec, error) {
	indexedRules, edgeSpecs := extractEdgeSpecs(rules)
	tree, err := rule.BuildTree(indexedRules, nil, []int{}, nil)
	if err != nil {
		return nil, nil, err
	}
	return tree, edgeSpecs, nil
}

// BuildRouter is the combined entry point: routing rules, then tree.
func BuildRouter(vg *sankey.ViewGraph, bundles map[string]sankey.Bundle, nodes map[string]any, flowPartition, timePartition *sankey.Partition, dim DimensionLookup) (RoutingTree, []spec.EdgeSpec, error) {
	rules, err := BuildRoutingRules(vg, bundles, nodes, flowPartition, timePartition, dim)
	if err != nil {
		return nil, nil, err
	}
	return BuildTreeFromRules(rules)
}

// RouteRow evaluates the routing tree for one row, returning the edge
// indices it contributes to.
func RouteRow(tree RoutingTree, get rule.GetValue) []int {
	return tree.Evaluate(get)
}

func buildEdgeRoutingFromViewGraph(vg *sankey.ViewGraph, bundles map[string]sankey.Bundle, flowPartition, timePartition *sankey.Partition) (map[edgeKeyPair]rule.Rules[EdgeKey], map[string][]edgeKeyPair, error) {
	edgeRouting := map[edgeKeyPair]rule.Rules[EdgeKey]{}
	bundleEdgesUnordered := map[string][]edgeKeyPair{}

	for _, e := range vg.Edges {
		key := edgeKeyPair{From: e.From, To: e.To}
		if _, ok := edgeRouting[key]; !ok {
			sourcePartition := partitionOf(vg.Nodes[e.From])
			targetPartition := partitionOf(vg.Nodes[e.To])
			edgeFP := edgeFlowPartitionOverride(e.Bundles, bundles, flowPartition)
			rules, err := BuildSegmentRouting(e.From, e.To, sourcePartition, targetPartition, edgeFP, timePartition)
			if err != nil {
				return nil, nil, err
			}
			edgeRouting[key] = rules
		}
		for _, bid := range e.Bundles {
			bundleEdgesUnordered[bid] = append(bundleEdgesUnordered[bid], key)
		}
	}

	bundleEdges := map[string][]edgeKeyPair{}
	for bid, edges := range bundleEdgesUnordered {
		if len(edges) <= 1 {
			bundleEdges[bid] = edges
			continue
		}
		ordered, err := orderEdgeChain(edges)
		if err != nil {
			return nil, nil, fmt.Errorf("compiler: bundle %q: %w", bid, err)
		}
		bundleEdges[bid] = ordered
	}
	return edgeRouting, bundleEdges, nil
}

func partitionOf(node any) *sankey.Partition {
	switch n := node.(type) {
	case *sankey.ProcessGroup:
		return n.Partition
	case *sankey.Waypoint:
		return n.Partition
	default:
		return nil
	}
}

// edgeFlowPartitionOverride mirrors view_graph.py's per-edge flow_partition
// attachment: if exactly one bundle shares this segment and it names its
// own flow partition, that overrides the diagram-wide material partition
// for this segment only.
func edgeFlowPartitionOverride(bundleIDs []string, bundles map[string]sankey.Bundle, fallback *sankey.Partition) *sankey.Partition {
	if len(bundleIDs) == 1 {
		if b, ok := bundles[bundleIDs[0]]; ok && b.FlowPartition != nil {
			return b.FlowPartition
		}
	}
	return fallback
}

func orderEdgeChain(edges []edgeKeyPair) ([]edgeKeyPair, error) {
	bySource := map[string]edgeKeyPair{}
	targets := map[string]bool{}
	sources := map[string]bool{}
	for _, e := range edges {
		bySource[e.From] = e
		targets[e.To] = true
		sources[e.From] = true
	}
	var start string
	found := false
	for s := range sources {
		if !targets[s] {
			start = s
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("edge chain has no start (cyclic or disconnected)")
	}

	ordered := make([]edgeKeyPair, 0, len(edges))
	current := start
	for {
		e, ok := bySource[current]
		if !ok {
			break
		}
		ordered = append(ordered, e)
		current = e.To
	}
	return ordered, nil
}

func buildBundlePartitionRouting(edgeRouting map[edgeKeyPair]rule.Rules[EdgeKey], bundleEdges map[string][]edgeKeyPair) (map[string]rule.Rules[[]TaggedEdgeKey], error) {
	out := make(map[string]rule.Rules[[]TaggedEdgeKey], len(bundleEdges))
	ids := make([]string, 0, len(bundleEdges))
	for bid := range bundleEdges {
		ids = append(ids, bid)
	}
	sort.Strings(ids)

	for _, bid := range ids {
		edges := bundleEdges[bid]
		segments := make([]rule.Rules[EdgeKey], 0, len(edges))
		for _, e := range edges {
			segments = append(segments, edgeRouting[e])
		}
		merged := MergeSegmentRoutings(segments...)
		out[bid] = rule.Map(merged, func(keys []EdgeKey) []TaggedEdgeKey {
			tagged := make([]TaggedEdgeKey, len(keys))
			for i, k := range keys {
				tagged[i] = TaggedEdgeKey{Key: k, BundleID: bid}
			}
			return tagged
		})
	}
	return out, nil
}

func getPartitionRulesForMatch(bundlePartitionRules map[string]rule.Rules[[]TaggedEdgeKey], m BundleMatch) (rule.Rules[[]TaggedEdgeKey], error) {
	switch match := m.(type) {
	case SingleBundleMatch:
		rs, ok := bundlePartitionRules[match.BundleID]
		if !ok {
			return nil, fmt.Errorf("compiler: no partition routing for bundle %q", match.BundleID)
		}
		return rs, nil
	case ElsewhereBundlePairMatch:
		fromRules, ok := bundlePartitionRules[match.FromElsewhereBundleID]
		if !ok {
			return nil, fmt.Errorf("compiler: no partition routing for bundle %q", match.FromElsewhereBundleID)
		}
		toRules, ok := bundlePartitionRules[match.ToElsewhereBundleID]
		if !ok {
			return nil, fmt.Errorf("compiler: no partition routing for bundle %q", match.ToElsewhereBundleID)
		}
		return rule.ExpandProduct(fromRules, toRules, func(a, b []TaggedEdgeKey) []TaggedEdgeKey {
			return append(append([]TaggedEdgeKey{}, a...), b...)
		}), nil
	default:
		return nil, fmt.Errorf("compiler: unknown bundle match type %T", m)
	}
}

func extractEdgeSpecs(rules RoutingRules) (rule.Rules[[]int], []spec.EdgeSpec) {
	edgeToBundles := map[EdgeKey]map[string]struct{}{}
	var order []EdgeKey

	for _, r := range rules {
		for _, tagged := range r.Label {
			set, ok := edgeToBundles[tagged.Key]
			if !ok {
				set = map[string]struct{}{}
				edgeToBundles[tagged.Key] = set
				order = append(order, tagged.Key)
			}
			set[tagged.BundleID] = struct{}{}
		}
	}

	edgeToIndex := make(map[EdgeKey]int, len(order))
	edgeSpecs := make([]spec.EdgeSpec, 0, len(order))
	for _, key := range order {
		edgeToIndex[key] = len(edgeSpecs)
		bundleIDs := make([]string, 0, len(edgeToBundles[key]))
		for bid := range edgeToBundles[key] {
			bundleIDs = append(bundleIDs, bid)
		}
		sort.Strings(bundleIDs)
		edgeSpecs = append(edgeSpecs, spec.EdgeSpec{
			Source:    key.Source,
			Target:    key.Target,
			Type:      key.Material,
			Time:      key.Time,
			BundleIDs: bundleIDs,
		})
	}

	indexedRules := rule.Map(rules, func(tagged []TaggedEdgeKey) []int {
		out := make([]int, len(tagged))
		for i, t := range tagged {
			out[i] = edgeToIndex[t.Key]
		}
		return out
	})
	return indexedRules, edgeSpecs
}
