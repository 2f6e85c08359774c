package sankey

import (
	"fmt"
	"sort"
)

// ViewEdge is one segment of a bundle's path through the view graph: a
// single hop between two adjacent nodes (a process group or waypoint, real
// or synthetic), carrying the ids of every bundle routed across it.
type ViewEdge struct {
	From, To string
	Bundles  []string
}

// ViewGraph is the layered graph the compiler routes flows over: the
// diagram's process groups and waypoints, plus any synthetic Elsewhere
// waypoints and dummy nodes Augment inserts, connected by ViewEdges built
// from the definition's bundles.
type ViewGraph struct {
	Nodes    map[string]any // node id -> *ProcessGroup | *Waypoint | *dummyNode | *elsewhereNode
	Edges    []ViewEdge
	Ordering Ordering
}

// dummyNode fills a layer an edge would otherwise skip over; it carries no
// partition and is transparent to measures, existing only so the layout has
// a slot to route the edge through.
type dummyNode struct {
	Title string
}

// elsewhereNode stands in for the Elsewhere sentinel on one side of one
// bundle: a synthetic waypoint inserted by Augment so that every edge in
// the view graph has two real endpoints.
type elsewhereNode struct {
	Title string
}

// BuildViewGraph constructs the unaugmented view graph directly from a
// definition's nodes and bundles: one ViewEdge per bundle hop between
// consecutive entries of Source, Waypoints..., Target.
func BuildViewGraph(d Definition) (*ViewGraph, error) {
	vg := &ViewGraph{
		Nodes:    map[string]any{},
		Ordering: d.Ordering,
	}
	for id, n := range d.Nodes {
		vg.Nodes[id] = n
	}

	ids := make([]string, 0, len(d.Bundles))
	for id := range d.Bundles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, bid := range ids {
		b := d.Bundles[bid]
		path, err := bundlePath(bid, b)
		if err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(path); i++ {
			vg.addEdge(path[i], path[i+1], bid)
		}
	}
	return vg, nil
}

// bundlePath returns the list of node ids a bundle visits, with Elsewhere
// endpoints represented by a placeholder that Augment later replaces with a
// concrete synthetic node id.
func bundlePath(bundleID string, b Bundle) ([]string, error) {
	path := make([]string, 0, len(b.Waypoints)+2)
	if b.FromElsewhere() {
		path = append(path, elsewhereID(bundleID, "from"))
	} else {
		path = append(path, b.Source.ID)
	}
	for _, wp := range b.Waypoints {
		path = append(path, wp.ID)
	}
	if b.ToElsewhere() {
		path = append(path, elsewhereID(bundleID, "to"))
	} else {
		path = append(path, b.Target.ID)
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("sankey: bundle %q has no path", bundleID)
	}
	return path, nil
}

func elsewhereID(bundleID, side string) string {
	return fmt.Sprintf("__elsewhere:%s:%s", side, bundleID)
}

func dummyID(bundleID string, layer int) string {
	return fmt.Sprintf("__dummy:%s:%d", bundleID, layer)
}

func (vg *ViewGraph) addEdge(from, to, bundleID string) {
	for i := range vg.Edges {
		if vg.Edges[i].From == from && vg.Edges[i].To == to {
			vg.Edges[i].Bundles = append(vg.Edges[i].Bundles, bundleID)
			return
		}
	}
	vg.Edges = append(vg.Edges, ViewEdge{From: from, To: to, Bundles: []string{bundleID}})
}

// InsertElsewhereBundles returns a copy of d with a synthetic to-Elsewhere
// and/or from-Elsewhere bundle added for every process group the
// definition does not already give explicit Elsewhere coverage, each
// routed through its own new waypoint. Without this, a process group with
// no declared catch-all bundle would silently drop any row whose flow
// doesn't match one of its explicit bundles, instead of routing it to an
// Elsewhere edge; most diagrams rely on exactly this to model an implicit
// "Other" source or sink. When the definition has no bundles at all, every
// process group gets both, matching the no_bundles fast path.
func InsertElsewhereBundles(d Definition) Definition {
	hasToElsewhere := map[string]bool{}
	hasFromElsewhere := map[string]bool{}
	for _, b := range d.Bundles {
		if b.ToElsewhere() && !b.FromElsewhere() {
			hasToElsewhere[b.Source.ID] = true
		}
		if b.FromElsewhere() && !b.ToElsewhere() {
			hasFromElsewhere[b.Target.ID] = true
		}
	}
	noBundles := len(d.Bundles) == 0

	nodes := make(map[string]any, len(d.Nodes))
	for id, n := range d.Nodes {
		nodes[id] = n
	}
	bundles := make(map[string]Bundle, len(d.Bundles))
	for id, b := range d.Bundles {
		bundles[id] = b
	}

	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pg, ok := d.Nodes[id].(*ProcessGroup)
		if !ok {
			continue
		}
		if noBundles || !hasToElsewhere[id] {
			wp := "__" + id + ">"
			nodes[wp] = &Waypoint{Direction: pg.Direction}
			bundles["__to_elsewhere:"+id] = Bundle{Source: Ref(id), Target: Elsewhere, Waypoints: []*NodeRef{Ref(wp)}}
		}
		if noBundles || !hasFromElsewhere[id] {
			wp := "__>" + id
			nodes[wp] = &Waypoint{Direction: pg.Direction}
			bundles["__from_elsewhere:"+id] = Bundle{Source: Elsewhere, Target: Ref(id), Waypoints: []*NodeRef{Ref(wp)}}
		}
	}

	d.Nodes = nodes
	d.Bundles = bundles
	return d
}

// Augment materialises Elsewhere endpoints as synthetic waypoints and, when
// ElsewhereWaypoints is false, collapses them directly onto the edge
// instead. It then fills any layer an edge would otherwise skip with a
// dummy node, so that every edge in the returned graph spans exactly one
// layer, and extends the ordering to place every synthetic node.
func Augment(vg *ViewGraph, elsewhereWaypoints bool) (*ViewGraph, error) {
	out := &ViewGraph{
		Nodes:    map[string]any{},
		Ordering: vg.Ordering,
	}
	for id, n := range vg.Nodes {
		out.Nodes[id] = n
	}

	layerOf, err := computeLayers(vg)
	if err != nil {
		return nil, err
	}

	// A node reached only via a from-Elsewhere edge into the very first
	// declared layer needs a layer before it, which doesn't exist yet.
	// Shift every layer (and prepend empty layers to the ordering) so the
	// lowest computed layer lands at 0, matching check_order_edges's
	// prepend-on-underflow behaviour rather than clamping it away.
	minLayer := 0
	for _, l := range layerOf {
		if l < minLayer {
			minLayer = l
		}
	}
	if shift := -minLayer; shift > 0 {
		for id := range layerOf {
			layerOf[id] += shift
		}
		prefix := make([]Layer, shift)
		for i := range prefix {
			prefix[i] = Layer{Band{}}
		}
		out.Ordering = Ordering{Layers: append(prefix, out.Ordering.Layers...)}
	}

	declared := map[string]bool{}
	for _, layer := range vg.Ordering.Layers {
		for _, band := range layer {
			for _, id := range band {
				declared[id] = true
			}
		}
	}

	ids := make([]string, 0, len(layerOf))
	for id := range layerOf {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if declared[id] {
			continue
		}
		l := layerOf[id]
		if isElsewhereID(id) {
			if !elsewhereWaypoints {
				continue
			}
			out.Nodes[id] = &elsewhereNode{Title: "Elsewhere"}
		}
		out.Ordering = placeInOrdering(out.Ordering, id, l)
	}

	for _, e := range vg.Edges {
		from, to := e.From, e.To
		if !elsewhereWaypoints && (isElsewhereID(from) || isElsewhereID(to)) {
			// Without synthetic Elsewhere waypoints there is no second
			// endpoint to route through, so the segment touching Elsewhere
			// carries no flow in the rendered graph.
			continue
		}
		fromLayer, fromOK := layerOf[from]
		toLayer, toOK := layerOf[to]
		if !fromOK || !toOK || toLayer-fromLayer == 1 {
			out.appendEdgeMerge(from, to, e.Bundles)
			continue
		}
		if toLayer <= fromLayer {
			return nil, fmt.Errorf("sankey: edge %s -> %s does not move forward in layer order", from, to)
		}
		prev := from
		for l := fromLayer + 1; l < toLayer; l++ {
			dn := dummyID(e.Bundles[0], l)
			if _, ok := out.Nodes[dn]; !ok {
				out.Nodes[dn] = &dummyNode{}
				out.Ordering = placeInOrdering(out.Ordering, dn, l)
			}
			out.appendEdgeMerge(prev, dn, e.Bundles)
			prev = dn
		}
		out.appendEdgeMerge(prev, to, e.Bundles)
	}

	return out, nil
}

func (vg *ViewGraph) appendEdgeMerge(from, to string, bundles []string) {
	for i := range vg.Edges {
		if vg.Edges[i].From == from && vg.Edges[i].To == to {
			vg.Edges[i].Bundles = append(vg.Edges[i].Bundles, bundles...)
			return
		}
	}
	cp := append([]string(nil), bundles...)
	vg.Edges = append(vg.Edges, ViewEdge{From: from, To: to, Bundles: cp})
}

func isElsewhereID(id string) bool {
	return IsElsewhereID(id)
}

// IsElsewhereID reports whether id names a synthetic Elsewhere waypoint
// Augment inserted, rather than a node from the original definition.
func IsElsewhereID(id string) bool {
	return len(id) > 12 && id[:12] == "__elsewhere:"
}

// IsDummyID reports whether id names a synthetic dummy node Augment
// inserted to fill a skipped layer, rather than a node from the original
// definition.
func IsDummyID(id string) bool {
	return len(id) > 8 && id[:8] == "__dummy:"
}

// computeLayers assigns each node a layer index: nodes present in the
// ordering take their ordering layer; synthetic Elsewhere endpoints take
// the layer of the real node one hop away from them (one before a "from"
// elsewhere, one after a "to" elsewhere).
func computeLayers(vg *ViewGraph) (map[string]int, error) {
	layerOf := map[string]int{}
	for l, layer := range vg.Ordering.Layers {
		for _, band := range layer {
			for _, id := range band {
				layerOf[id] = l
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, e := range vg.Edges {
			fl, fok := layerOf[e.From]
			tl, tok := layerOf[e.To]
			switch {
			case fok && !tok:
				layerOf[e.To] = fl + 1
				changed = true
			case tok && !fok:
				layerOf[e.From] = tl - 1
				changed = true
			}
		}
	}
	return layerOf, nil
}

// placeInOrdering appends id to a new single-band layer at index l if layer
// l does not yet exist, or to the first band of layer l otherwise. It is a
// simplified version of check_order_edges's insertion search: exhaustive
// crossing-minimising placement is left to a layout renderer, not the
// compiler.
func placeInOrdering(o Ordering, id string, l int) Ordering {
	for l >= len(o.Layers) {
		o.Layers = append(o.Layers, Layer{Band{}})
	}
	if len(o.Layers[l]) == 0 {
		o.Layers[l] = Layer{Band{}}
	}
	layers := append([]Layer(nil), o.Layers...)
	layer := append(Layer(nil), layers[l]...)
	layer[0] = append(append(Band(nil), layer[0]...), id)
	layers[l] = layer
	return Ordering{Layers: layers}
}

// MedianValue returns the median of a slice of positions (sorted internally),
// or -1 for an empty slice. For two values it averages them; for a larger
// even count it interpolates between the two middle values, weighted by the
// spread of the values on each side (left = mid-1 minus first, right = last
// minus mid), and averages them only when the two spreads are equal.
func MedianValue(positions []float64) float64 {
	n := len(positions)
	if n == 0 {
		return -1
	}
	sorted := append([]float64(nil), positions...)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	if n == 2 {
		return (sorted[0] + sorted[1]) / 2
	}
	left := sorted[mid-1] - sorted[0]
	right := sorted[len(sorted)-1] - sorted[mid]
	if left == right {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	frac := left / (left + right)
	return sorted[mid-1] + frac*(sorted[mid]-sorted[mid-1])
}

// NeighbourPositions returns, for each id in band, the position (band
// index, fractional offset within the band) of its neighbours in the
// adjacent layer reached via edges, keyed by node id, for use as input to
// MedianValue-based reordering.
func NeighbourPositions(edges []ViewEdge, positionOf map[string]float64, band Band, forward bool) map[string][]float64 {
	out := make(map[string][]float64, len(band))
	for _, id := range band {
		var positions []float64
		for _, e := range edges {
			if forward && e.From == id {
				if p, ok := positionOf[e.To]; ok {
					positions = append(positions, p)
				}
			}
			if !forward && e.To == id {
				if p, ok := positionOf[e.From]; ok {
					positions = append(positions, p)
				}
			}
		}
		out[id] = positions
	}
	return out
}

// FillUnknown assigns a position to every id in order that has no entry in
// positionOf, by interpolating between the
// nearest positioned neighbours in the sequence, falling back to index
// order at the ends.
func FillUnknown(order []string, positionOf map[string]float64) []string {
	n := len(order)
	known := make([]bool, n)
	for i, id := range order {
		if _, ok := positionOf[id]; ok {
			known[i] = true
		}
	}
	for i, id := range order {
		if known[i] {
			continue
		}
		prev, next := -1, -1
		for j := i - 1; j >= 0; j-- {
			if known[j] {
				prev = j
				break
			}
		}
		for j := i + 1; j < n; j++ {
			if known[j] {
				next = j
				break
			}
		}
		switch {
		case prev >= 0 && next >= 0:
			positionOf[id] = (positionOf[order[prev]] + positionOf[order[next]]) / 2
		case prev >= 0:
			positionOf[id] = positionOf[order[prev]] + float64(i-prev)
		case next >= 0:
			positionOf[id] = positionOf[order[next]] - float64(next-i)
		default:
			positionOf[id] = float64(i)
		}
	}
	return order
}
