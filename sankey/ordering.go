package sankey

import "fmt"

// Band is an ordered list of node ids occupying one vertical stacking
// region within a layer.
type Band []string

// Layer is a column position, divided into vertical bands.
type Layer []Band

// Ordering is the three-level nested sequence of layers, bands, and node
// ids that fixes the diagram's node layout. NewOrdering accepts the
// single-band shorthand (a Layer given as a bare list of node ids, wrapped
// into one band) as well as the full layers-of-bands-of-ids form.
type Ordering struct {
	Layers []Layer
}

// NewOrdering builds an Ordering from literal layers.
func NewOrdering(layers ...Layer) Ordering {
	return Ordering{Layers: layers}
}

// SingleBand wraps a bare list of node ids into a one-band Layer, the
// shorthand form from the data model.
func SingleBand(ids ...string) Layer {
	return Layer{Band(ids)}
}

// Indices returns the (layer, band, position) of id in the ordering.
func (o Ordering) Indices(id string) (layer, band, pos int, err error) {
	for r, l := range o.Layers {
		for i, b := range l {
			for j, n := range b {
				if n == id {
					return r, i, j, nil
				}
			}
		}
	}
	return 0, 0, 0, fmt.Errorf("sankey: node %q not in ordering", id)
}

// Insert returns a new Ordering with value inserted at position k of band j
// of layer i. Layers beyond the current length are padded with empty bands
// matching the band count of the first layer (or a single empty band if the
// ordering is itself empty).
func (o Ordering) Insert(i, j, k int, value string) Ordering {
	layers := o.grow(i)
	out := make([]Layer, len(layers))
	copy(out, layers)

	layer := make(Layer, len(out[i]))
	copy(layer, out[i])
	for len(layer) <= j {
		layer = append(layer, Band{})
	}
	band := make(Band, 0, len(layer[j])+1)
	band = append(band, layer[j][:min(k, len(layer[j]))]...)
	band = append(band, value)
	if k < len(layer[j]) {
		band = append(band, layer[j][k:]...)
	}
	layer[j] = band
	out[i] = layer
	return Ordering{Layers: out}
}

// grow pads o.Layers, front or back, so that index i is valid, matching
// check_order_edges' "new layer just outside" insertion.
func (o Ordering) grow(i int) []Layer {
	layers := o.Layers
	bandCount := 1
	if len(layers) > 0 {
		bandCount = len(layers[0])
	}
	for i < 0 {
		front := make(Layer, bandCount)
		for k := range front {
			front[k] = Band{}
		}
		layers = append([]Layer{front}, layers...)
		i++
	}
	for i >= len(layers) {
		back := make(Layer, bandCount)
		for k := range back {
			back[k] = Band{}
		}
		layers = append(layers, back)
	}
	return layers
}

// Remove returns a new Ordering with every occurrence of value deleted,
// dropping any layer left with no nodes in any band.
func (o Ordering) Remove(value string) Ordering {
	var out []Layer
	for _, l := range o.Layers {
		nl := make(Layer, len(l))
		any := false
		for i, b := range l {
			nb := make(Band, 0, len(b))
			for _, n := range b {
				if n != value {
					nb = append(nb, n)
				}
			}
			nl[i] = nb
			if len(nb) > 0 {
				any = true
			}
		}
		if any {
			out = append(out, nl)
		}
	}
	return Ordering{Layers: out}
}

// Filter returns a new Ordering keeping only node ids present in used,
// dropping layers left entirely empty. This implements the executor's
// "filter the spec's ordering to nodes that are used" step.
func (o Ordering) Filter(used map[string]bool) Ordering {
	var out []Layer
	for _, l := range o.Layers {
		nl := make(Layer, len(l))
		any := false
		for i, b := range l {
			nb := make(Band, 0, len(b))
			for _, n := range b {
				if used[n] {
					nb = append(nb, n)
				}
			}
			nl[i] = nb
			if len(nb) > 0 {
				any = true
			}
		}
		if any {
			out = append(out, nl)
		}
	}
	return Ordering{Layers: out}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
