package rule

import "sort"

// Query maps attribute names to the constraint that must hold on that
// attribute, conjunctively interpreted. An attribute missing from the map is
// vacuously true for that attribute.
type Query map[string]Constraint

// CloneQuery returns a shallow copy of q; Constraint values are themselves
// immutable so a shallow copy is sufficient for value semantics.
func CloneQuery(q Query) Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// IntersectQueries computes the pointwise intersection of q1 and q2.
// Attributes present on only one side are carried through unchanged.
func IntersectQueries(q1, q2 Query) Query {
	out := CloneQuery(q1)
	for attr, c2 := range q2 {
		if c1, ok := out[attr]; ok {
			out[attr] = IntersectConstraints(c1, c2)
		} else {
			out[attr] = c2
		}
	}
	return out
}

// Satisfiable reports whether q can match any row at all: false iff any
// constraint in q is Includes(empty).
func Satisfiable(q Query) bool {
	for _, c := range q {
		if !c.Satisfiable() {
			return false
		}
	}
	return true
}

// sortedAttrs returns the keys of q in sorted order, used wherever a query's
// attributes must be traversed deterministically.
func sortedAttrs(q Query) []string {
	out := make([]string, 0, len(q))
	for a := range q {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
