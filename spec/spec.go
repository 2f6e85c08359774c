// Package spec holds the versioned, JSON-serializable compiled-diagram
// format: nodes, edges, measures and display settings expanded from a
// diagram definition, plus the routing decision tree that drives
// execution against flow data.
package spec

import (
	"encoding/json"
	"fmt"
)

// Version is the wire format version written by this package and checked
// on load.
const Version = "2.0"

// MeasureSpec names a flow-table column to aggregate and how.
type MeasureSpec struct {
	Column      string `json:"column"`
	Aggregation string `json:"aggregation"` // "sum" or "mean"
}

// NodeSpec describes one rendered node.
type NodeSpec struct {
	Title     string  `json:"title"`
	Type      string  `json:"type"` // "process" or "group"
	Group     *string `json:"group"`
	Style     string  `json:"style"`
	Direction string  `json:"direction"` // "R" or "L"
	Hidden    bool    `json:"hidden"`
}

// GroupSpec records which process group a set of rendered nodes came from,
// for display grouping and provenance.
type GroupSpec struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Nodes []string `json:"nodes"`
}

// BundleSpec records a bundle's endpoints for provenance (edges reference
// bundles by id in BundleIDs).
type BundleSpec struct {
	ID     string `json:"id"`
	Source string `json:"source"` // process group id or "Elsewhere"
	Target string `json:"target"`
}

// EdgeSpec describes one compiled Sankey edge: a source/target node pair
// (empty string meaning Elsewhere) further split by material type and time
// key, and the bundles it was assembled from.
type EdgeSpec struct {
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Type      string   `json:"type"`
	Time      string   `json:"time"`
	BundleIDs []string `json:"bundle_ids"`
}

// ColorSpec is a closed sum type over {CategoricalColorSpec,
// QuantitativeColorSpec}. Callers type-switch on the concrete type; the
// unexported colorSpecType method only closes the set of implementations,
// and marshalColorSpec writes the wire "type" discriminator.
type ColorSpec interface {
	colorSpecType() string
}

// CategoricalColorSpec maps discrete attribute values to colors.
type CategoricalColorSpec struct {
	Attribute string            `json:"attr"`
	Lookup    map[string]string `json:"lookup"`
	Default   string            `json:"default"`
}

func (CategoricalColorSpec) colorSpecType() string { return "categorical" }

// QuantitativeColorSpec interpolates a measure's value across a palette.
type QuantitativeColorSpec struct {
	Attribute string     `json:"attr"`
	Palette   []string   `json:"palette"`
	Domain    [2]float64 `json:"domain"`
	Intensity *string    `json:"intensity,omitempty"`
}

func (QuantitativeColorSpec) colorSpecType() string { return "quantitative" }

func marshalColorSpec(c ColorSpec) ([]byte, error) {
	switch cs := c.(type) {
	case CategoricalColorSpec:
		return json.Marshal(struct {
			Type string `json:"type"`
			CategoricalColorSpec
		}{Type: "categorical", CategoricalColorSpec: cs})
	case QuantitativeColorSpec:
		return json.Marshal(struct {
			Type string `json:"type"`
			QuantitativeColorSpec
		}{Type: "quantitative", QuantitativeColorSpec: cs})
	default:
		return nil, fmt.Errorf("spec: unknown color spec type %T", c)
	}
}

// ParseColorSpec decodes a standalone ColorSpec document, the shape
// accepted by the --link-color/--color-mapping CLI flags, independently
// of a full WeaverSpec.
func ParseColorSpec(data []byte) (ColorSpec, error) {
	return unmarshalColorSpec(data)
}

func unmarshalColorSpec(data []byte) (ColorSpec, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case "quantitative":
		var q QuantitativeColorSpec
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, err
		}
		return q, nil
	default:
		var c CategoricalColorSpec
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// DisplaySpec carries the measure used for link width and the color scale
// used for link color.
type DisplaySpec struct {
	LinkWidth string
	LinkColor ColorSpec
}

type displaySpecWire struct {
	LinkWidth string          `json:"link_width"`
	LinkColor json.RawMessage `json:"link_color"`
}

// MarshalJSON implements json.Marshaler.
func (d DisplaySpec) MarshalJSON() ([]byte, error) {
	colorJSON, err := marshalColorSpec(d.LinkColor)
	if err != nil {
		return nil, err
	}
	return json.Marshal(displaySpecWire{LinkWidth: d.LinkWidth, LinkColor: colorJSON})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DisplaySpec) UnmarshalJSON(data []byte) error {
	var wire displaySpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	color, err := unmarshalColorSpec(wire.LinkColor)
	if err != nil {
		return err
	}
	d.LinkWidth = wire.LinkWidth
	d.LinkColor = color
	return nil
}

// Ordering is the wire form of a diagram's node ordering: layers of bands
// of node ids, matching sankey.Ordering's shape exactly so the two convert
// without loss.
type Ordering [][][]string

// WeaverSpec is the complete compiled diagram: ready to serialize, cache,
// and execute against flow data without ever consulting the original
// diagram definition again.
type WeaverSpec struct {
	Version     string              `json:"version"`
	Nodes       map[string]NodeSpec `json:"nodes"`
	Groups      []GroupSpec         `json:"groups"`
	Bundles     []BundleSpec        `json:"bundles"`
	Ordering    Ordering            `json:"ordering"`
	Edges       []EdgeSpec          `json:"edges"`
	Measures    []MeasureSpec       `json:"measures"`
	Display     DisplaySpec         `json:"display"`
	RoutingTree RoutingTree         `json:"routing_tree"`
}

// Validate checks the cross-references a WeaverSpec must satisfy to be
// executable: every edge's bundle ids exist, the display measure is
// among Measures, and the routing tree's leaf values are valid edge
// indices.
func (s WeaverSpec) Validate() error {
	bundleIDs := make(map[string]struct{}, len(s.Bundles))
	for _, b := range s.Bundles {
		bundleIDs[b.ID] = struct{}{}
	}
	for i, e := range s.Edges {
		for _, bid := range e.BundleIDs {
			if _, ok := bundleIDs[bid]; !ok {
				return fmt.Errorf("spec: edge %d references unknown bundle %q", i, bid)
			}
		}
	}
	foundMeasure := s.Display.LinkWidth == ""
	for _, m := range s.Measures {
		if m.Column == s.Display.LinkWidth {
			foundMeasure = true
		}
	}
	if !foundMeasure {
		return fmt.Errorf("spec: display link_width %q is not among measures", s.Display.LinkWidth)
	}
	return validateTreeLeaves(s.RoutingTree, len(s.Edges))
}

func validateTreeLeaves(t RoutingTree, numEdges int) error {
	if t.Branches == nil && t.Default == nil {
		for _, idx := range t.Value {
			if idx < 0 || idx >= numEdges {
				return fmt.Errorf("spec: routing tree references out-of-range edge index %d", idx)
			}
		}
		return nil
	}
	for _, b := range t.Branches {
		if err := validateTreeLeaves(b, numEdges); err != nil {
			return err
		}
	}
	if t.Default != nil {
		return validateTreeLeaves(*t.Default, numEdges)
	}
	return nil
}

// Marshal serializes s to canonical JSON: Go's encoding/json already
// sorts map keys when encoding, so the nodes map and every routing-tree
// branches map round-trip byte-identically regardless of build order.
func Marshal(s WeaverSpec) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal parses a WeaverSpec and checks its version matches Version.
func Unmarshal(data []byte) (WeaverSpec, error) {
	var s WeaverSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return WeaverSpec{}, err
	}
	if s.Version != Version {
		return WeaverSpec{}, fmt.Errorf("spec: unsupported version %q, expected %q", s.Version, Version)
	}
	return s, nil
}
