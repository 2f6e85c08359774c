package rule

import "sort"

// Rule pairs a Query with the label to attach to rows matching it.
type Rule[T any] struct {
	Query Query
	Label T
}

// Rules is an unordered collection of rules defining a partial function from
// attribute space to labels: "for each row, collect the labels of every
// matching rule". A Rules value is deterministic when no row can match more
// than one of its rules; Refine produces a deterministic rule set from an
// arbitrary one.
type Rules[T any] []Rule[T]

// Of is a convenience constructor for building a Rules value from a literal
// slice of rules.
func Of[T any](rs ...Rule[T]) Rules[T] { return Rules[T](rs) }

// Map relabels every rule by applying f to its label.
func Map[T, U any](rs Rules[T], f func(T) U) Rules[U] {
	out := make(Rules[U], len(rs))
	for i, r := range rs {
		out[i] = Rule[U]{Query: r.Query, Label: f(r.Label)}
	}
	return out
}

// Filter keeps only the rules whose label satisfies pred.
func Filter[T any](rs Rules[T], pred func(T) bool) Rules[T] {
	out := make(Rules[T], 0, len(rs))
	for _, r := range rs {
		if pred(r.Label) {
			out = append(out, r)
		}
	}
	return out
}

// Attrs returns the union of attributes constrained by any rule, sorted.
func (rs Rules[T]) Attrs() []string {
	seen := map[string]struct{}{}
	for _, r := range rs {
		for a := range r.Query {
			seen[a] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// QueryValues returns the union of values constraining attr across every
// rule's query (from both Includes and Excludes sides), sorted.
func (rs Rules[T]) QueryValues(attr string) []string {
	seen := map[string]struct{}{}
	for _, r := range rs {
		if c, ok := r.Query[attr]; ok {
			for _, v := range c.Values() {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Expand calls f(label) for every rule to obtain a secondary rule set, then
// intersects the outer query with each of the secondary queries. Results
// that become unsatisfiable are dropped silently: this is how "the rule is
// silently dropped" unsatisfiable-query behaviour from the error design is
// implemented.
func Expand[T, U any](rs Rules[T], f func(T) Rules[U]) Rules[U] {
	var out Rules[U]
	for _, r := range rs {
		for _, r2 := range f(r.Label) {
			combined := IntersectQueries(r.Query, r2.Query)
			if Satisfiable(combined) {
				out = append(out, Rule[U]{Query: combined, Label: r2.Label})
			}
		}
	}
	return out
}

// ExpandProduct combines two rule sets by query intersection, combining their
// labels pairwise. If either input has overlapping rules the output will
// too; call Refine first for a disjoint result.
func ExpandProduct[T, U, V any](rs Rules[T], other Rules[U], combine func(T, U) V) Rules[V] {
	return Expand(rs, func(t T) Rules[V] {
		return Map(other, func(u U) V { return combine(t, u) })
	})
}

// ExpandProductAll combines any number of same-typed rule sets via an n-ary
// product, accumulated left to right, then applies combine to the ordered
// slice of matching labels. Used for segment routing (four partitions, each
// contributing one label) and for chaining bundle segments (each segment
// contributing one EdgeKey).
func ExpandProductAll[T, V any](combine func([]T) V, rss ...Rules[T]) Rules[V] {
	if len(rss) == 0 {
		return nil
	}
	acc := Map(rss[0], func(t T) []T { return []T{t} })
	for _, rs := range rss[1:] {
		acc = ExpandProduct(acc, rs, func(prev []T, next T) []T {
			out := make([]T, len(prev), len(prev)+1)
			copy(out, prev)
			return append(out, next)
		})
	}
	return Map(acc, combine)
}

// Refine computes the common refinement of rs: a new rule set whose rules
// are disjoint and collectively cover every region of attribute space any
// input rule covered, each new rule labelled with the ordered slice of every
// input label matching that region (in the order the input rules appear in
// rs).
//
// The algorithm enumerates attributes in sorted order and, for each
// attribute, partitions the current region set by every explicit value
// appearing in an Includes/Excludes of the surviving rules plus a single
// default "excludes all explicit values" region, recursing into each
// sub-region with only the rules still satisfiable there. Termination is
// guaranteed by the finite attribute list; output size is bounded by the
// product, over attributes, of (distinct explicit values + 1).
func Refine[T any](rs Rules[T]) Rules[[]T] {
	return refineRegions(rs, rs.Attrs(), Query{})
}

func refineRegions[T any](rs Rules[T], remaining []string, prefix Query) Rules[[]T] {
	if len(remaining) == 0 {
		labels := make([]T, len(rs))
		for i, r := range rs {
			labels[i] = r.Label
		}
		return Rules[[]T]{{Query: CloneQuery(prefix), Label: labels}}
	}

	attr := remaining[0]
	rest := remaining[1:]
	explicit := rs.QueryValues(attr)

	var out Rules[[]T]
	for _, val := range explicit {
		restricted := restrictToValue(rs, attr, val)
		next := CloneQuery(prefix)
		next[attr] = Includes(val)
		out = append(out, refineRegions(restricted, rest, next)...)
	}

	restrictedDefault := restrictToDefault(rs, attr, explicit)
	next := prefix
	if len(explicit) > 0 {
		next = CloneQuery(prefix)
		next[attr] = Excludes(explicit...)
	}
	out = append(out, refineRegions(restrictedDefault, rest, next)...)
	return out
}

// restrictToValue keeps rules still satisfiable when attr == val, dropping
// the now-redundant attr constraint from each.
func restrictToValue[T any](rs Rules[T], attr, val string) Rules[T] {
	var out Rules[T]
	for _, r := range rs {
		c, ok := r.Query[attr]
		switch {
		case !ok:
			out = append(out, r)
		case c.IsIncludes() && c.Contains(val):
			out = append(out, Rule[T]{Query: withoutAttr(r.Query, attr), Label: r.Label})
		case c.IsExcludes() && !c.Contains(val):
			out = append(out, Rule[T]{Query: withoutAttr(r.Query, attr), Label: r.Label})
		}
	}
	return out
}

// restrictToDefault keeps rules that can still match once attr is known to
// be none of explicit (the default branch), dropping the constraint.
func restrictToDefault[T any](rs Rules[T], attr string, explicit []string) Rules[T] {
	explicitSet := toSet(explicit)
	var out Rules[T]
	for _, r := range rs {
		c, ok := r.Query[attr]
		switch {
		case !ok:
			out = append(out, r)
		case c.IsExcludes() && isSubsetOfSet(c.values, explicitSet):
			out = append(out, Rule[T]{Query: withoutAttr(r.Query, attr), Label: r.Label})
		}
		// Includes never matches the default branch.
	}
	return out
}

func withoutAttr(q Query, attr string) Query {
	out := make(Query, len(q))
	for k, v := range q {
		if k != attr {
			out[k] = v
		}
	}
	return out
}

func isSubsetOfSet(a, b map[string]struct{}) bool {
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}
