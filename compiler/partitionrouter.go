// Package compiler turns a diagram definition and its augmented view graph
// into a routing decision tree: selection rules (which bundle a row
// belongs to) combined with partition rules (which edge within that
// bundle), refined into a disjoint cover and compiled to a tree.
package compiler

import (
	"fmt"
	"strings"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/sankey"
)

// ProcessSide names which side of a segment a partition belongs to, used to
// translate the "process"/"process.<attr>" pseudo-attributes into the
// concrete "source"/"target" attribute a row actually carries.
type ProcessSide string

const (
	SideSource ProcessSide = "source"
	SideTarget ProcessSide = "target"
	SideNone   ProcessSide = ""
)

// EdgeKey identifies one Sankey edge: the source and target node ids (empty
// string meaning Elsewhere/no node), plus the material and time partition
// labels that further split that node pair. EdgeKey is comparable, used
// directly as the dedup key when distinct bundles produce the same edge.
type EdgeKey struct {
	Source, Target string
	Material, Time string
}

// defaultLabel is the resolved label for rows matching no explicit group of
// a partition.
const defaultLabel = "_"

// ExpandPartition converts a partition (nil meaning "no partition, one
// catch-all group") into a refined, disjoint Rules[string] covering every
// row, labelled with labelPrefix+groupLabel for explicit groups and
// labelPrefix+"_" for the default region. A nil labelPrefix means "no
// label wanted": the result carries the empty string for every region
// (used when a segment endpoint is Elsewhere, so there is no process
// column to label).
func ExpandPartition(partition *sankey.Partition, labelPrefix *string, side ProcessSide) (rule.Rules[string], error) {
	if partition == nil {
		// The wildcard region's label is the bare node id (the prefix with
		// its trailing "^" trimmed), matching the id expandPartitionedNode
		// renders for an unpartitioned node, not a "^"-suffixed group label.
		return rule.Rules[string]{{Query: rule.Query{}, Label: unprefixedLabel(labelPrefix)}}, nil
	}

	rules := make(rule.Rules[string], 0, len(partition.Groups))
	for _, g := range partition.Groups {
		q := rule.Query{}
		for _, av := range g.Query {
			attr, err := translateAttr(av.Attr, side)
			if err != nil {
				return nil, err
			}
			q[attr] = rule.Includes(av.Values...)
		}
		rules = append(rules, rule.Rule[string]{Query: q, Label: g.Label})
	}

	refined := rule.Refine(rules)
	out := make(rule.Rules[string], 0, len(refined))
	for _, r := range refined {
		if len(r.Label) > 1 {
			return nil, &PartitionOverlapError{Labels: r.Label}
		}
		out = append(out, rule.Rule[string]{Query: r.Query, Label: resolveLabel(labelPrefix, r.Label)})
	}
	return out, nil
}

func translateAttr(attr string, side ProcessSide) (string, error) {
	if attr == "process" || strings.HasPrefix(attr, "process.") {
		if side == SideNone {
			return "", fmt.Errorf("compiler: partition attribute %q needs a process side", attr)
		}
		return string(side) + attr[len("process"):], nil
	}
	return attr, nil
}

// unprefixedLabel returns the label for the single catch-all region of an
// unpartitioned node: the bare node id, recovered by trimming prefixFor's
// trailing "^", or "" when prefix is nil (no label wanted at all).
func unprefixedLabel(prefix *string) string {
	if prefix == nil {
		return ""
	}
	return strings.TrimSuffix(*prefix, "^")
}

// resolveLabel is only ever called with 0 or 1 labels; callers check for
// overlap (len > 1) before calling it.
func resolveLabel(prefix *string, labels []string) string {
	if len(labels) == 0 {
		if prefix == nil {
			return ""
		}
		return *prefix + defaultLabel
	}
	if prefix == nil {
		return ""
	}
	return *prefix + labels[0]
}

// BuildSegmentRouting builds the routing rules for one segment of the view
// graph (a single hop between two adjacent nodes): the product of the
// source node's partition, the target node's partition, the segment's
// material partition, and the diagram's time partition, each contributing
// one label to the resulting EdgeKey.
func BuildSegmentRouting(sourceNode, targetNode string, sourcePartition, targetPartition, materialPartition, timePartition *sankey.Partition) (rule.Rules[EdgeKey], error) {
	sourcePrefix := prefixFor(sourceNode)
	targetPrefix := prefixFor(targetNode)

	sourceRules, err := ExpandPartition(sourcePartition, sourcePrefix, SideSource)
	if err != nil {
		return nil, err
	}
	targetRules, err := ExpandPartition(targetPartition, targetPrefix, SideTarget)
	if err != nil {
		return nil, err
	}
	emptyPrefix := ""
	materialRules, err := ExpandPartition(materialPartition, &emptyPrefix, SideNone)
	if err != nil {
		return nil, err
	}
	timeRules, err := ExpandPartition(timePartition, &emptyPrefix, SideNone)
	if err != nil {
		return nil, err
	}

	combine := func(labels []string) EdgeKey {
		return EdgeKey{Source: labels[0], Target: labels[1], Material: labels[2], Time: labels[3]}
	}
	return rule.ExpandProductAll(combine, sourceRules, targetRules, materialRules, timeRules), nil
}

func prefixFor(node string) *string {
	if node == "" {
		return nil
	}
	p := node + "^"
	return &p
}

// MergeSegmentRoutings chains the per-segment routings of a bundle's path
// into rules producing one EdgeKey per segment, in path order: a row
// flowing through this bundle is routed across every segment
// simultaneously, since it is one physical flow splitting identically at
// every partition along the way.
func MergeSegmentRoutings(segments ...rule.Rules[EdgeKey]) rule.Rules[[]EdgeKey] {
	combine := func(keys []EdgeKey) []EdgeKey { return keys }
	return rule.ExpandProductAll(combine, segments...)
}
