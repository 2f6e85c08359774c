// Package rule implements the symbolic constraint, query and rule-set algebra
// that the compiler uses to turn overlapping declarations into a disjoint
// cover of attribute space, plus the decision tree built from that cover.
//
// Everything here is a pure value type: every operation returns a new value
// rather than mutating its receiver, so rule sets and constraints are safe to
// share across goroutines once built.
package rule

import "sort"

// kind distinguishes the two constraint variants. Constraint is a closed sum
// type over {Includes, Excludes}; kind is the tag.
type kind uint8

const (
	kindIncludes kind = iota
	kindExcludes
)

// Constraint restricts the values an attribute may take. Includes(S) matches
// a row whose value is in S; Excludes(S) matches a row whose value is not in
// S. Excludes(nil) is vacuously true; Includes(nil) is unsatisfiable.
//
// Constraint never materialises the universe of possible values: Excludes
// carries only the finite exclusion set, so the algebra stays cheap even when
// an attribute's domain is unbounded.
type Constraint struct {
	kind   kind
	values map[string]struct{}
}

// Includes returns a constraint matching exactly the given values.
func Includes(values ...string) Constraint {
	return Constraint{kind: kindIncludes, values: toSet(values)}
}

// Excludes returns a constraint matching every value except the given ones.
func Excludes(values ...string) Constraint {
	return Constraint{kind: kindExcludes, values: toSet(values)}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// IsIncludes reports whether c is an Includes constraint.
func (c Constraint) IsIncludes() bool { return c.kind == kindIncludes }

// IsExcludes reports whether c is an Excludes constraint.
func (c Constraint) IsExcludes() bool { return c.kind == kindExcludes }

// Values returns the constraint's value set in sorted order.
func (c Constraint) Values() []string {
	out := make([]string, 0, len(c.values))
	for v := range c.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether v is in the constraint's value set.
func (c Constraint) Contains(v string) bool {
	_, ok := c.values[v]
	return ok
}

// Matches reports whether value satisfies the constraint.
func (c Constraint) Matches(value string) bool {
	if c.kind == kindIncludes {
		return c.Contains(value)
	}
	return !c.Contains(value)
}

// Satisfiable reports whether any value at all could satisfy c: false only
// for Includes(empty).
func (c Constraint) Satisfiable() bool {
	return c.kind != kindIncludes || len(c.values) > 0
}

// IntersectConstraints computes the constraint accepting exactly the rows
// accepted by both a and b.
//
//	Includes(A) ∩ Includes(B) = Includes(A ∩ B)
//	Includes(A) ∩ Excludes(B) = Includes(A \ B)
//	Excludes(A) ∩ Excludes(B) = Excludes(A ∪ B)
func IntersectConstraints(a, b Constraint) Constraint {
	switch {
	case a.kind == kindIncludes && b.kind == kindIncludes:
		return Constraint{kind: kindIncludes, values: setIntersect(a.values, b.values)}
	case a.kind == kindIncludes && b.kind == kindExcludes:
		return Constraint{kind: kindIncludes, values: setDifference(a.values, b.values)}
	case a.kind == kindExcludes && b.kind == kindIncludes:
		return Constraint{kind: kindIncludes, values: setDifference(b.values, a.values)}
	default: // both Excludes
		return Constraint{kind: kindExcludes, values: setUnion(a.values, b.values)}
	}
}

func setIntersect(a, b map[string]struct{}) map[string]struct{} {
	var out map[string]struct{}
	for v := range a {
		if _, ok := b[v]; ok {
			if out == nil {
				out = make(map[string]struct{})
			}
			out[v] = struct{}{}
		}
	}
	return out
}

func setDifference(a, b map[string]struct{}) map[string]struct{} {
	var out map[string]struct{}
	for v := range a {
		if _, ok := b[v]; !ok {
			if out == nil {
				out = make(map[string]struct{})
			}
			out[v] = struct{}{}
		}
	}
	return out
}

func setUnion(a, b map[string]struct{}) map[string]struct{} {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(a)+len(b))
	for v := range a {
		out[v] = struct{}{}
	}
	for v := range b {
		out[v] = struct{}{}
	}
	return out
}
