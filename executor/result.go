package executor

import "github.com/rlupton/weaver/spec"

// SankeyNode is a rendered node included in a Result because at least one
// executed link touches it.
type SankeyNode struct {
	ID        string
	Title     string
	Type      string
	Style     string
	Direction string
	Hidden    bool
}

// SankeyGroup is a rendered group included in a Result because it still
// has at least one used node after filtering.
type SankeyGroup struct {
	ID    string
	Title string
	Nodes []string
}

// SankeyLink is one executed, aggregated edge.
type SankeyLink struct {
	Source    string
	Target    string
	Type      string
	Time      string
	Title     string
	BundleIDs []string
	Measures  map[string]float64
	Color     string
}

// Result is the output of executing a compiled diagram against flow data:
// only nodes, groups and ordering entries touched by at least one row with
// nonzero routing survive, matching the source diagram's unused-node
// pruning.
type Result struct {
	Nodes         []SankeyNode
	Groups        []SankeyGroup
	Ordering      spec.Ordering
	Links         []SankeyLink
	FromElsewhere map[string][]SankeyLink
	ToElsewhere   map[string][]SankeyLink
}
