package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rlupton/weaver/rule"
	"github.com/rlupton/weaver/sankey"
)

// BundleMatch is a closed sum type over {SingleBundleMatch,
// ElsewhereBundlePairMatch}: which bundle (or pair of Elsewhere bundles) a
// row's source/target/filter attributes select. Callers type-switch on the
// concrete type.
type BundleMatch interface {
	isBundleMatch()
}

// SingleBundleMatch is a row matching exactly one ordinary (non-Elsewhere)
// bundle.
type SingleBundleMatch struct {
	BundleID string
}

func (SingleBundleMatch) isBundleMatch() {}

// ElsewhereBundlePairMatch is a row matching a pair of complementary
// Elsewhere bundles simultaneously: one whose source is Elsewhere (catching
// this row's actual source, unmodelled) and one whose target is Elsewhere,
// chained end to end.
type ElsewhereBundlePairMatch struct {
	FromElsewhereBundleID string
	ToElsewhereBundleID   string
}

func (ElsewhereBundlePairMatch) isBundleMatch() {}

// DimensionLookup resolves a process-group query-string selection against
// the process dimension table, returning the matching process ids.
type DimensionLookup func(query string) ([]string, error)

// BuildBundleSelectionQuery builds the rule.Query selecting rows belonging
// to bundle: source/target constraints derived from its endpoints'
// resolved process ids (Includes for an ordinary endpoint, Excludes for an
// Elsewhere endpoint, excluding the other side's ids so Elsewhere never
// doubles up with a modelled process), plus any flow_selection filter
// attributes.
func BuildBundleSelectionQuery(bundle sankey.Bundle, nodes map[string]any, dim DimensionLookup) (rule.Query, error) {
	var sourceIDs, targetIDs []string
	var err error

	if !bundle.FromElsewhere() {
		sourceIDs, err = expandProcessGroup(bundle.Source.ID, nodes, dim)
		if err != nil {
			return nil, err
		}
	}
	if !bundle.ToElsewhere() {
		targetIDs, err = expandProcessGroup(bundle.Target.ID, nodes, dim)
		if err != nil {
			return nil, err
		}
	}

	q := rule.Query{}
	if bundle.FromElsewhere() {
		q["source"] = rule.Excludes(targetIDs...)
	} else {
		q["source"] = rule.Includes(sourceIDs...)
	}
	if bundle.ToElsewhere() {
		q["target"] = rule.Excludes(sourceIDs...)
	} else {
		q["target"] = rule.Includes(targetIDs...)
	}

	if bundle.FlowSelection != "" {
		filters, err := parseFlowSelection(bundle.FlowSelection)
		if err != nil {
			return nil, err
		}
		for attr, values := range filters {
			if _, exists := q[attr]; exists {
				return nil, fmt.Errorf("compiler: bundle flow_selection filters attribute %q already constrained by source/target", attr)
			}
			q[attr] = rule.Includes(values...)
		}
	}
	return q, nil
}

func expandProcessGroup(id string, nodes map[string]any, dim DimensionLookup) ([]string, error) {
	pg, ok := nodes[id].(*sankey.ProcessGroup)
	if !ok {
		return nil, fmt.Errorf("compiler: node %q is not a process group", id)
	}
	if pg.Selection.IsQuery() {
		if dim == nil {
			return nil, &MissingDimensionTableError{Query: pg.Selection.Query}
		}
		return dim(pg.Selection.Query)
	}
	return pg.Selection.IDs, nil
}

var (
	flowSelectionSplit = regexp.MustCompile(`(?i)\s+and\s+`)
	flowSelectionIn    = regexp.MustCompile(`^(\w+)\s+in\s+[\[(](.*)[\])]$`)
	flowSelectionEq    = regexp.MustCompile(`^(\w+)\s*(?:==|=)\s*(.+)$`)
)

// parseFlowSelection interprets a conjunction of "attr=value" and
// "attr in [value, value]" clauses into a per-attribute set of allowed
// values. This is a deliberately narrower grammar than a general boolean
// expression: it has no grounding to build on (flow_selection's parser was
// referenced but never defined anywhere in the retrieved source), so it
// covers the conjunctive-equality subset that process group query strings
// also rely on, via internal/procdim for the fuller grammar.
func parseFlowSelection(s string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, clause := range flowSelectionSplit.Split(s, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		attr, values, err := parseFlowSelectionClause(clause)
		if err != nil {
			return nil, err
		}
		out[attr] = append(out[attr], values...)
	}
	return out, nil
}

func parseFlowSelectionClause(clause string) (string, []string, error) {
	if m := flowSelectionIn.FindStringSubmatch(clause); m != nil {
		attr := strings.TrimSpace(m[1])
		var values []string
		for _, v := range strings.Split(m[2], ",") {
			values = append(values, unquoteFlowSelectionValue(strings.TrimSpace(v)))
		}
		return attr, values, nil
	}
	if m := flowSelectionEq.FindStringSubmatch(clause); m != nil {
		attr := strings.TrimSpace(m[1])
		return attr, []string{unquoteFlowSelectionValue(strings.TrimSpace(m[2]))}, nil
	}
	return "", nil, fmt.Errorf("compiler: cannot parse flow_selection clause %q", clause)
}

func unquoteFlowSelectionValue(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// BuildSelectionRules builds the rules mapping a row's source/target/filter
// attributes to the BundleMatch(es) it selects, by refining one candidate
// rule per bundle and resolving the surviving label set at each region:
//
//   - an explicit (non-Elsewhere-on-both-sides) bundle present: that
//     bundle wins outright, and any Elsewhere candidates sharing the
//     region are suppressed. This is the common case of an ordinary
//     bundle and a catch-all Elsewhere bundle both touching a node.
//   - 0 candidates: no bundle claims this row; dropped (a nil label).
//   - 1 bundle whose source is Elsewhere and 1 whose target is Elsewhere,
//     both candidates (and neither explicit): ElsewhereBundlePairMatch
//     chaining them.
//   - exactly one candidate: that single bundle.
//   - anything else (including >1 explicit candidates): an error, since
//     two modelled bundles claiming the same row is an overlap in the
//     definition.
func BuildSelectionRules(bundles map[string]sankey.Bundle, nodes map[string]any, dim DimensionLookup) (rule.Rules[BundleMatch], error) {
	ids := make([]string, 0, len(bundles))
	for id := range bundles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	candidates := make(rule.Rules[string], 0, len(ids))
	for _, id := range ids {
		q, err := BuildBundleSelectionQuery(bundles[id], nodes, dim)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rule.Rule[string]{Query: q, Label: id})
	}

	regions := rule.Refine(candidates)
	out := make(rule.Rules[BundleMatch], 0, len(regions))
	for _, r := range regions {
		match, err := resolveCandidates(r.Label, bundles)
		if err != nil {
			return nil, err
		}
		if match == nil {
			continue
		}
		out = append(out, rule.Rule[BundleMatch]{Query: r.Query, Label: match})
	}
	return out, nil
}

func resolveCandidates(candidateIDs []string, bundles map[string]sankey.Bundle) (BundleMatch, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	var explicit []string
	for _, id := range candidateIDs {
		b := bundles[id]
		if !b.FromElsewhere() && !b.ToElsewhere() {
			explicit = append(explicit, id)
		}
	}
	switch len(explicit) {
	case 1:
		return SingleBundleMatch{BundleID: explicit[0]}, nil
	case 0:
		// no explicit bundle in this region; resolve among the
		// Elsewhere candidates below.
	default:
		return nil, &OverlappingBundlesError{BundleIDs: explicit}
	}

	switch len(candidateIDs) {
	case 1:
		return SingleBundleMatch{BundleID: candidateIDs[0]}, nil
	case 2:
		a, b := bundles[candidateIDs[0]], bundles[candidateIDs[1]]
		switch {
		case a.FromElsewhere() && b.ToElsewhere():
			return ElsewhereBundlePairMatch{FromElsewhereBundleID: candidateIDs[0], ToElsewhereBundleID: candidateIDs[1]}, nil
		case b.FromElsewhere() && a.ToElsewhere():
			return ElsewhereBundlePairMatch{FromElsewhereBundleID: candidateIDs[1], ToElsewhereBundleID: candidateIDs[0]}, nil
		}
		return nil, &OverlappingBundlesError{BundleIDs: candidateIDs}
	default:
		return nil, &OverlappingBundlesError{BundleIDs: candidateIDs}
	}
}
