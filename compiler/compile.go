package compiler

import (
	"fmt"
	"sort"

	"github.com/rlupton/weaver/sankey"
	"github.com/rlupton/weaver/spec"
)

// Options configures Compile. The zero value is not valid; use
// NewOptions with functional Option values, following the teacher's
// graph/options.go style.
type Options struct {
	Measures           []spec.MeasureSpec
	LinkWidth          string
	LinkColor          spec.ColorSpec
	ElsewhereWaypoints bool
	DimensionLookup    DimensionLookup
}

// Option configures Options.
type Option func(*Options)

// NewOptions builds an Options from a list of Option values, defaulting to
// a single "value" sum measure, elsewhere waypoints enabled, and a
// categorical link color keyed on edge type.
func NewOptions(opts ...Option) Options {
	o := Options{
		Measures:           []spec.MeasureSpec{{Column: "value", Aggregation: "sum"}},
		ElsewhereWaypoints: true,
	}
	for _, apply := range opts {
		apply(&o)
	}
	if o.LinkWidth == "" && len(o.Measures) > 0 {
		o.LinkWidth = o.Measures[0].Column
	}
	if o.LinkColor == nil {
		o.LinkColor = spec.CategoricalColorSpec{Attribute: "type", Lookup: map[string]string{}, Default: "#888888"}
	}
	return o
}

// WithMeasures sets the measures to aggregate.
func WithMeasures(measures ...spec.MeasureSpec) Option {
	return func(o *Options) { o.Measures = measures }
}

// WithLinkWidth sets the measure used for link width; defaults to the
// first measure's column.
func WithLinkWidth(column string) Option {
	return func(o *Options) { o.LinkWidth = column }
}

// WithLinkColor sets the color scale used for link color.
func WithLinkColor(c spec.ColorSpec) Option {
	return func(o *Options) { o.LinkColor = c }
}

// WithElsewhereWaypoints controls whether Elsewhere bundle endpoints get a
// materialised synthetic waypoint node (true, the default) or are routed
// without one (false).
func WithElsewhereWaypoints(enabled bool) Option {
	return func(o *Options) { o.ElsewhereWaypoints = enabled }
}

// WithDimensionLookup supplies the process dimension table evaluator used
// to resolve query-string process group selections.
func WithDimensionLookup(lookup DimensionLookup) Option {
	return func(o *Options) { o.DimensionLookup = lookup }
}

// Compile turns a diagram definition into a fully expanded, executable
// WeaverSpec: it builds the view graph, augments it with synthetic
// Elsewhere and dummy nodes, expands process groups and waypoints into
// their partitioned rendered nodes, and compiles the routing decision
// tree.
func Compile(def sankey.Definition, opts ...Option) (spec.WeaverSpec, error) {
	if err := def.Validate(); err != nil {
		return spec.WeaverSpec{}, err
	}
	o := NewOptions(opts...)
	def = sankey.InsertElsewhereBundles(def)

	vg, err := sankey.BuildViewGraph(def)
	if err != nil {
		return spec.WeaverSpec{}, err
	}
	vg, err = sankey.Augment(vg, o.ElsewhereWaypoints)
	if err != nil {
		return spec.WeaverSpec{}, err
	}

	nodes, groups, expandedIDs, err := expandNodes(vg)
	if err != nil {
		return spec.WeaverSpec{}, err
	}
	ordering := expandOrdering(vg.Ordering, expandedIDs)
	bundleSpecs := createBundleSpecs(def.Bundles)

	tree, edgeSpecs, err := BuildRouter(vg, def.Bundles, def.Nodes, def.FlowPartition, def.TimePartition, o.DimensionLookup)
	if err != nil {
		return spec.WeaverSpec{}, err
	}
	wireTree, err := spec.ToRoutingTree(tree)
	if err != nil {
		return spec.WeaverSpec{}, err
	}

	result := spec.WeaverSpec{
		Version:  spec.Version,
		Nodes:    nodes,
		Groups:   groups,
		Bundles:  bundleSpecs,
		Ordering: ordering,
		Edges:    edgeSpecs,
		Measures: o.Measures,
		Display: spec.DisplaySpec{
			LinkWidth: o.LinkWidth,
			LinkColor: o.LinkColor,
		},
		RoutingTree: wireTree,
	}
	if err := result.Validate(); err != nil {
		return spec.WeaverSpec{}, err
	}
	return result, nil
}

// expandNodes converts every node in the augmented view graph into one or
// more rendered NodeSpecs (one per partition group, plus a default bucket,
// for a partitioned process group or waypoint), recording the
// original-id -> rendered-ids expansion used to rewrite the ordering.
func expandNodes(vg *sankey.ViewGraph) (map[string]spec.NodeSpec, []spec.GroupSpec, map[string][]string, error) {
	nodes := make(map[string]spec.NodeSpec, len(vg.Nodes))
	var groups []spec.GroupSpec
	expandedIDs := make(map[string][]string, len(vg.Nodes))

	ids := make([]string, 0, len(vg.Nodes))
	for id := range vg.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		switch n := vg.Nodes[id].(type) {
		case *sankey.ProcessGroup:
			rendered := expandPartitionedNode(nodes, id, n.Partition, n.Title, "process", string(n.Direction))
			expandedIDs[id] = rendered
			groups = append(groups, spec.GroupSpec{ID: id, Title: titleOr(n.Title, id), Nodes: rendered})
		case *sankey.Waypoint:
			expandedIDs[id] = expandPartitionedNode(nodes, id, n.Partition, n.Title, "group", string(n.Direction))
		default:
			// dummyNode / elsewhereNode are unexported from sankey; Augment
			// marks them by id prefix instead, which sankey.IsDummyID and
			// sankey.IsElsewhereID expose.
			switch {
			case sankey.IsDummyID(id):
				nodes[id] = spec.NodeSpec{Type: "group", Style: "dummy", Hidden: true}
			case sankey.IsElsewhereID(id):
				nodes[id] = spec.NodeSpec{Title: "Elsewhere", Type: "group", Style: "elsewhere"}
			default:
				return nil, nil, nil, fmt.Errorf("compiler: unrecognised node type %T for %q", n, id)
			}
			expandedIDs[id] = []string{id}
		}
	}
	return nodes, groups, expandedIDs, nil
}

// expandPartitionedNode writes one rendered NodeSpec per partition group
// (plus one default "Other" bucket) into nodes, or a single unpartitioned
// NodeSpec when partition is nil, returning the rendered ids in order.
func expandPartitionedNode(nodes map[string]spec.NodeSpec, id string, partition *sankey.Partition, title, typ, direction string) []string {
	groupID := id
	if partition == nil {
		nodes[id] = spec.NodeSpec{Title: titleOr(title, id), Type: typ, Group: &groupID, Style: typ, Direction: direction}
		return []string{id}
	}
	rendered := make([]string, 0, len(partition.Groups)+1)
	for _, g := range partition.Groups {
		rid := fmt.Sprintf("%s^%s", id, g.Label)
		nodes[rid] = spec.NodeSpec{Title: g.Label, Type: typ, Group: &groupID, Style: typ, Direction: direction}
		rendered = append(rendered, rid)
	}
	rid := fmt.Sprintf("%s^_", id)
	nodes[rid] = spec.NodeSpec{Title: "Other", Type: typ, Group: &groupID, Style: typ, Direction: direction}
	rendered = append(rendered, rid)
	return rendered
}

func titleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}

func expandOrdering(o sankey.Ordering, expandedIDs map[string][]string) spec.Ordering {
	out := make(spec.Ordering, 0, len(o.Layers))
	for _, layer := range o.Layers {
		outLayer := make([][]string, 0, len(layer))
		for _, band := range layer {
			var outBand []string
			for _, id := range band {
				if rendered, ok := expandedIDs[id]; ok {
					outBand = append(outBand, rendered...)
				} else {
					outBand = append(outBand, id)
				}
			}
			outLayer = append(outLayer, outBand)
		}
		out = append(out, outLayer)
	}
	return out
}

func createBundleSpecs(bundles map[string]sankey.Bundle) []spec.BundleSpec {
	ids := make([]string, 0, len(bundles))
	for id := range bundles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]spec.BundleSpec, 0, len(ids))
	for _, id := range ids {
		b := bundles[id]
		source, target := "Elsewhere", "Elsewhere"
		if !b.FromElsewhere() {
			source = b.Source.ID
		}
		if !b.ToElsewhere() {
			target = b.Target.ID
		}
		out = append(out, spec.BundleSpec{ID: id, Source: source, Target: target})
	}
	return out
}
