package sankey

import "fmt"

// AttrValues is one conjunctive clause of a partition group's query: an
// attribute name and the set of values that clause accepts. A Group's Query
// is the conjunction of all its AttrValues.
type AttrValues struct {
	Attr   string
	Values []string
}

// Group is one user-visible category of a Partition: a label and the
// conjunctive query that selects rows (or nodes) belonging to it.
type Group struct {
	Label string
	Query []AttrValues
}

// Partition is an ordered sequence of groups splitting flows or nodes into
// user-visible categories. The compiler always augments a Partition with an
// implicit catch-all for rows matching no explicit group; that catch-all is
// not represented here, it is added by ExpandPartition.
type Partition struct {
	Groups []Group
}

// Simple builds a Partition over a single dimension attribute, one group per
// (label, values) pair. It is an error for the same value to appear in two
// groups.
func Simple(attr string, values ...ValueGroup) (*Partition, error) {
	seen := map[string]string{}
	groups := make([]Group, 0, len(values))
	for _, vg := range values {
		for _, v := range vg.Values {
			if other, ok := seen[v]; ok {
				return nil, fmt.Errorf("sankey: duplicate value %q in partition (groups %q and %q)", v, other, vg.Label)
			}
			seen[v] = vg.Label
		}
		groups = append(groups, Group{
			Label: vg.Label,
			Query: []AttrValues{{Attr: attr, Values: vg.Values}},
		})
	}
	return &Partition{Groups: groups}, nil
}

// ValueGroup is one group of a Simple partition: a label and the values
// that belong to it.
type ValueGroup struct {
	Label  string
	Values []string
}

// Value builds a ValueGroup whose label is the value itself.
func Value(v string) ValueGroup { return ValueGroup{Label: v, Values: []string{v}} }

// Labelled builds a ValueGroup with an explicit label distinct from its
// member values.
func Labelled(label string, values ...string) ValueGroup {
	return ValueGroup{Label: label, Values: values}
}

// Concat returns the partition algebra's concatenation A + B: the groups of
// a followed by the groups of b.
func Concat(a, b *Partition) *Partition {
	return &Partition{Groups: append(append([]Group{}, a.Groups...), b.Groups...)}
}

// Product returns the partition algebra's Cartesian product A × B: one
// cross-labelled group per pair of input groups, whose query is the
// concatenation of both sides' queries.
func Product(a, b *Partition) *Partition {
	groups := make([]Group, 0, len(a.Groups)*len(b.Groups))
	for _, g1 := range a.Groups {
		for _, g2 := range b.Groups {
			groups = append(groups, Group{
				Label: g1.Label + "/" + g2.Label,
				Query: append(append([]AttrValues{}, g1.Query...), g2.Query...),
			})
		}
	}
	return &Partition{Groups: groups}
}
