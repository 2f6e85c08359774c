// Package executor routes flow-table rows through a compiled diagram's
// decision tree, aggregates the measures landing on each edge, and prunes
// the result down to the nodes, groups and ordering entries that actually
// carried flow.
package executor

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/spec"
	"github.com/rlupton/weaver/table"
)

// Execute routes every row of tbl against s's routing tree, aggregates
// each edge's measures, applies display color, and returns only the
// nodes/groups/ordering entries touched by at least one routed row.
func Execute(ctx context.Context, s spec.WeaverSpec, tbl table.FlowTable, opts ...Option) (Result, error) {
	o := newOptions(opts...)

	tree, err := spec.FromRoutingTree(s.RoutingTree)
	if err != nil {
		return Result{}, fmt.Errorf("executor: %w", err)
	}

	edgeRows, err := routeRows(ctx, tree, tbl, len(s.Edges), o.Workers)
	if err != nil {
		return Result{}, err
	}

	used := map[string]bool{}
	var links []SankeyLink
	fromElsewhere := map[string][]SankeyLink{}
	toElsewhere := map[string][]SankeyLink{}

	for i, edge := range s.Edges {
		rows := edgeRows[i]
		if len(rows) == 0 {
			continue
		}
		measures := aggregate(tbl, rows, s.Measures)
		link := SankeyLink{
			Source:    edge.Source,
			Target:    edge.Target,
			Type:      edge.Type,
			Time:      edge.Time,
			Title:     computeTitle(edge),
			BundleIDs: edge.BundleIDs,
			Measures:  measures,
			Color:     applyColor(edge, measures, s.Display.LinkColor),
		}

		switch {
		case edge.Source == "" && edge.Target == "":
			continue
		case edge.Source == "":
			fromElsewhere[edge.Target] = append(fromElsewhere[edge.Target], link)
			used[edge.Target] = true
		case edge.Target == "":
			toElsewhere[edge.Source] = append(toElsewhere[edge.Source], link)
			used[edge.Source] = true
		default:
			links = append(links, link)
			used[edge.Source] = true
			used[edge.Target] = true
		}
	}

	sortLinks(links)
	for id := range fromElsewhere {
		sortLinks(fromElsewhere[id])
	}
	for id := range toElsewhere {
		sortLinks(toElsewhere[id])
	}

	return Result{
		Nodes:         buildNodes(s.Nodes, used),
		Groups:        buildGroups(s.Groups, s.Nodes, used),
		Ordering:      filterOrdering(s.Ordering, used),
		Links:         links,
		FromElsewhere: fromElsewhere,
		ToElsewhere:   toElsewhere,
	}, nil
}

// routeRows evaluates tree against every row of tbl, partitioned across
// workers goroutines by contiguous row range. Each chunk accumulates its
// own edge->rows map in ascending row order; merging chunks in ascending
// chunk order keeps every edge's row list globally ascending, matching
// the input table's row order.
func routeRows(ctx context.Context, tree rule.Node[[]int], tbl table.FlowTable, numEdges, workers int) ([][]int, error) {
	n := tbl.NumRows()
	out := make([][]int, numEdges)
	if n == 0 {
		return out, nil
	}

	chunkSize := (n + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}
	numChunks := (n + chunkSize - 1) / chunkSize
	chunkResults := make([]map[int][]int, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		c, start, end := c, start, end
		g.Go(func() error {
			local := map[int][]int{}
			for row := start; row < end; row++ {
				if row%4096 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				get := table.GetValueAt(tbl, row)
				for _, edgeIdx := range tree.Evaluate(get) {
					local[edgeIdx] = append(local[edgeIdx], row)
				}
			}
			chunkResults[c] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("executor: routing rows: %w", err)
	}

	for _, local := range chunkResults {
		for edgeIdx, rows := range local {
			out[edgeIdx] = append(out[edgeIdx], rows...)
		}
	}
	return out, nil
}

// aggregate computes each measure's value over rows. A measure column
// absent from tbl contributes 0 for every row rather than erroring, so a
// dataset missing an optional measure still executes.
func aggregate(tbl table.FlowTable, rows []int, measures []spec.MeasureSpec) map[string]float64 {
	out := make(map[string]float64, len(measures))
	for _, m := range measures {
		sum := 0.0
		for _, row := range rows {
			v, _ := tbl.NumericValue(row, m.Column)
			sum += v
		}
		switch m.Aggregation {
		case "mean":
			if len(rows) == 0 {
				out[m.Column] = 0
			} else {
				out[m.Column] = sum / float64(len(rows))
			}
		default:
			out[m.Column] = sum
		}
	}
	return out
}

func buildNodes(nodeSpecs map[string]spec.NodeSpec, used map[string]bool) []SankeyNode {
	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]SankeyNode, 0, len(ids))
	for _, id := range ids {
		ns, ok := nodeSpecs[id]
		if !ok {
			continue
		}
		out = append(out, SankeyNode{
			ID:        id,
			Title:     ns.Title,
			Type:      ns.Type,
			Style:     ns.Style,
			Direction: ns.Direction,
			Hidden:    ns.Hidden,
		})
	}
	return out
}

// buildGroups filters each group's nodes down to those used, drops groups
// left with no used nodes, and drops a group left with exactly one used
// node whose title already matches the group's own title (the rendered
// node would be a redundant single-member group).
func buildGroups(groups []spec.GroupSpec, nodeSpecs map[string]spec.NodeSpec, used map[string]bool) []SankeyGroup {
	var out []SankeyGroup
	for _, g := range groups {
		var kept []string
		for _, id := range g.Nodes {
			if used[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			continue
		}
		if len(kept) == 1 {
			if ns, ok := nodeSpecs[kept[0]]; ok && ns.Title == g.Title {
				continue
			}
		}
		out = append(out, SankeyGroup{ID: g.ID, Title: g.Title, Nodes: kept})
	}
	return out
}

// filterOrdering restricts every band to used node ids and drops layers
// left entirely empty.
func filterOrdering(o spec.Ordering, used map[string]bool) spec.Ordering {
	out := make(spec.Ordering, 0, len(o))
	for _, layer := range o {
		outLayer := make([][]string, 0, len(layer))
		nonEmpty := false
		for _, band := range layer {
			var outBand []string
			for _, id := range band {
				if used[id] {
					outBand = append(outBand, id)
				}
			}
			if len(outBand) > 0 {
				nonEmpty = true
			}
			outLayer = append(outLayer, outBand)
		}
		if nonEmpty {
			out = append(out, outLayer)
		}
	}
	return out
}

func sortLinks(links []SankeyLink) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Time < b.Time
	})
}
