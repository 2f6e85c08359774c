// Package defio loads a diagram definition from JSON that is tolerant of
// the polymorphic shapes the format allows: a bundle endpoint may be a
// bare node id string, the literal "Elsewhere", or omitted entirely
// (meaning the same thing); an ordering layer may be given as a single
// flat array of ids (shorthand for one band) or as an explicit array of
// bands. gjson/sjson read and rewrite these shapes without needing a
// fixed struct tag per variant, the same tolerant-parsing role they play
// in the teacher's config loading.
package defio

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/rlupton/weaver/sankey"
)

// Load parses data into a Definition.
func Load(data []byte) (sankey.Definition, error) {
	root := gjson.ParseBytes(data)
	if !root.Exists() {
		return sankey.Definition{}, fmt.Errorf("defio: empty or invalid JSON document")
	}

	nodes, err := loadNodes(root.Get("nodes"))
	if err != nil {
		return sankey.Definition{}, err
	}

	bundles, err := loadBundles(root.Get("bundles"))
	if err != nil {
		return sankey.Definition{}, err
	}

	ordering, err := loadOrdering(root.Get("ordering"))
	if err != nil {
		return sankey.Definition{}, err
	}

	flowPartition, err := loadOptionalPartition(root.Get("flow_partition"))
	if err != nil {
		return sankey.Definition{}, err
	}
	timePartition, err := loadOptionalPartition(root.Get("time_partition"))
	if err != nil {
		return sankey.Definition{}, err
	}

	return sankey.Definition{
		Nodes:         nodes,
		Bundles:       bundles,
		Ordering:      ordering,
		FlowSelection: root.Get("flow_selection").String(),
		FlowPartition: flowPartition,
		TimePartition: timePartition,
	}, nil
}

func loadNodes(v gjson.Result) (map[string]any, error) {
	nodes := map[string]any{}
	var outerErr error
	v.ForEach(func(key, val gjson.Result) bool {
		id := key.String()
		partition, err := loadOptionalPartition(val.Get("partition"))
		if err != nil {
			outerErr = fmt.Errorf("defio: node %q: %w", id, err)
			return false
		}
		direction := sankey.DirectionRight
		if val.Get("direction").String() == "L" {
			direction = sankey.DirectionLeft
		}
		title := val.Get("title").String()

		switch val.Get("type").String() {
		case "waypoint", "group":
			nodes[id] = &sankey.Waypoint{Partition: partition, Direction: direction, Title: title}
		default:
			sel, err := loadSelection(val.Get("selection"))
			if err != nil {
				outerErr = fmt.Errorf("defio: node %q: %w", id, err)
				return false
			}
			nodes[id] = &sankey.ProcessGroup{Selection: sel, Partition: partition, Direction: direction, Title: title}
		}
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return nodes, nil
}

func loadSelection(v gjson.Result) (sankey.Selection, error) {
	if !v.Exists() {
		return sankey.Selection{}, nil
	}
	if v.IsArray() {
		var ids []string
		for _, item := range v.Array() {
			ids = append(ids, item.String())
		}
		return sankey.ExplicitIDs(ids...), nil
	}
	if v.Type == gjson.String {
		return sankey.QueryString(v.String()), nil
	}
	return sankey.Selection{}, fmt.Errorf("selection must be an array of ids or a query string")
}

func loadBundles(v gjson.Result) (map[string]sankey.Bundle, error) {
	bundles := map[string]sankey.Bundle{}
	var outerErr error
	v.ForEach(func(key, val gjson.Result) bool {
		id := key.String()
		source := loadEndpoint(val.Get("source"))
		target := loadEndpoint(val.Get("target"))

		var waypoints []*sankey.NodeRef
		for _, wp := range val.Get("waypoints").Array() {
			waypoints = append(waypoints, sankey.Ref(wp.String()))
		}

		flowPartition, err := loadOptionalPartition(val.Get("flow_partition"))
		if err != nil {
			outerErr = fmt.Errorf("defio: bundle %q: %w", id, err)
			return false
		}

		bundles[id] = sankey.Bundle{
			Source:        source,
			Target:        target,
			Waypoints:     waypoints,
			FlowSelection: val.Get("flow_selection").String(),
			FlowPartition: flowPartition,
		}
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return bundles, nil
}

// loadEndpoint accepts a bare node id string, the literal "Elsewhere", or
// an absent/null field, returning sankey.Elsewhere for the latter two.
func loadEndpoint(v gjson.Result) *sankey.NodeRef {
	if !v.Exists() || v.Type == gjson.Null {
		return sankey.Elsewhere
	}
	id := v.String()
	if id == "" || id == "Elsewhere" {
		return sankey.Elsewhere
	}
	return sankey.Ref(id)
}

func loadOptionalPartition(v gjson.Result) (*sankey.Partition, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	groupsVal := v.Get("groups")
	if !groupsVal.Exists() {
		return nil, fmt.Errorf("partition must have a \"groups\" array")
	}
	var groups []sankey.Group
	var outerErr error
	groupsVal.ForEach(func(_, g gjson.Result) bool {
		label := g.Get("label").String()
		var clauses []sankey.AttrValues
		g.Get("query").ForEach(func(_, clause gjson.Result) bool {
			attr := clause.Get("attr").String()
			var values []string
			for _, val := range clause.Get("values").Array() {
				values = append(values, val.String())
			}
			clauses = append(clauses, sankey.AttrValues{Attr: attr, Values: values})
			return true
		})
		if label == "" {
			outerErr = fmt.Errorf("partition group missing \"label\"")
			return false
		}
		groups = append(groups, sankey.Group{Label: label, Query: clauses})
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return &sankey.Partition{Groups: groups}, nil
}

// loadOrdering accepts either a layer given as a flat array of node ids
// (shorthand for a single band) or as an explicit array of bands (each an
// array of ids).
func loadOrdering(v gjson.Result) (sankey.Ordering, error) {
	if !v.Exists() {
		return sankey.Ordering{}, nil
	}
	var layers []sankey.Layer
	var outerErr error
	v.ForEach(func(_, layerVal gjson.Result) bool {
		layer, err := loadLayer(layerVal)
		if err != nil {
			outerErr = err
			return false
		}
		layers = append(layers, layer)
		return true
	})
	if outerErr != nil {
		return sankey.Ordering{}, outerErr
	}
	return sankey.NewOrdering(layers...), nil
}

func loadLayer(v gjson.Result) (sankey.Layer, error) {
	items := v.Array()
	if len(items) == 0 {
		return sankey.Layer{}, nil
	}
	if items[0].IsArray() {
		layer := make(sankey.Layer, 0, len(items))
		for _, bandVal := range items {
			var band sankey.Band
			for _, id := range bandVal.Array() {
				band = append(band, id.String())
			}
			layer = append(layer, band)
		}
		return layer, nil
	}
	var band sankey.Band
	for _, id := range items {
		band = append(band, id.String())
	}
	return sankey.SingleBand(band...), nil
}
