package spec

import (
	"encoding/json"
	"fmt"

	"github.com/rlupton/weaver/rule"
)

// RoutingTree is the wire form of a compiled rule.Node[[]int]: either
// {"value": [...]} for a leaf or {"attr": ..., "branches": {...},
// "default": ...} for a branch. It round-trips byte-for-byte through
// encoding/json's sorted-key map marshalling, which is what gives the
// format its deterministic serialization.
type RoutingTree struct {
	Value    []int                  `json:"value,omitempty"`
	Attr     string                 `json:"attr,omitempty"`
	Branches map[string]RoutingTree `json:"branches,omitempty"`
	Default  *RoutingTree           `json:"default,omitempty"`
	isLeaf   bool
}

// MarshalJSON writes a leaf as {"value": [...]} and a branch as
// {"attr","branches","default"}, never mixing the two shapes.
func (t RoutingTree) MarshalJSON() ([]byte, error) {
	if t.isLeaf {
		return json.Marshal(struct {
			Value []int `json:"value"`
		}{Value: t.Value})
	}
	return json.Marshal(struct {
		Attr     string                 `json:"attr"`
		Branches map[string]RoutingTree `json:"branches"`
		Default  *RoutingTree           `json:"default"`
	}{Attr: t.Attr, Branches: t.Branches, Default: t.Default})
}

// UnmarshalJSON distinguishes the two shapes by the presence of a "value"
// key, matching tree_from_dict's dispatch.
func (t *RoutingTree) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["value"]; ok {
		var v []int
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*t = RoutingTree{Value: v, isLeaf: true}
		return nil
	}
	var branch struct {
		Attr     string                 `json:"attr"`
		Branches map[string]RoutingTree `json:"branches"`
		Default  *RoutingTree           `json:"default"`
	}
	if err := json.Unmarshal(data, &branch); err != nil {
		return err
	}
	*t = RoutingTree{Attr: branch.Attr, Branches: branch.Branches, Default: branch.Default}
	return nil
}

// ToRoutingTree converts a compiled rule.Node[[]int] to its wire form by
// type-switching on the node's concrete type, since rule.Node has no sealed
// interface for a visitor to dispatch on directly.
func ToRoutingTree(n rule.Node[[]int]) (RoutingTree, error) {
	switch node := n.(type) {
	case *rule.LeafNode[[]int]:
		return RoutingTree{Value: node.Value, isLeaf: true}, nil
	case *rule.BranchNode[[]int]:
		branches := make(map[string]RoutingTree, len(node.Branches))
		for k, sub := range node.Branches {
			wb, err := ToRoutingTree(sub)
			if err != nil {
				return RoutingTree{}, err
			}
			branches[k] = wb
		}
		def, err := ToRoutingTree(node.Default)
		if err != nil {
			return RoutingTree{}, err
		}
		return RoutingTree{Attr: node.Attr, Branches: branches, Default: &def}, nil
	default:
		return RoutingTree{}, fmt.Errorf("spec: unknown routing tree node type %T", n)
	}
}

// FromRoutingTree converts a wire tree back into a rule.Node[[]int].
func FromRoutingTree(t RoutingTree) (rule.Node[[]int], error) {
	if t.isLeaf || (t.Branches == nil && t.Default == nil) {
		return &rule.LeafNode[[]int]{Value: t.Value}, nil
	}
	branches := make(map[string]rule.Node[[]int], len(t.Branches))
	for k, sub := range t.Branches {
		n, err := FromRoutingTree(sub)
		if err != nil {
			return nil, err
		}
		branches[k] = n
	}
	if t.Default == nil {
		return nil, fmt.Errorf("spec: routing tree branch on %q missing default", t.Attr)
	}
	def, err := FromRoutingTree(*t.Default)
	if err != nil {
		return nil, err
	}
	return &rule.BranchNode[[]int]{Attr: t.Attr, Branches: branches, Default: def}, nil
}
