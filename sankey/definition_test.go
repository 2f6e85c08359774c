package sankey

import "testing"

func TestSelectionIsQuery(t *testing.T) {
	if ExplicitIDs("a", "b").IsQuery() {
		t.Fatal("an explicit id list should not be a query selection")
	}
	if !QueryString("region = 'EU'").IsQuery() {
		t.Fatal("a query string selection should report IsQuery")
	}
}

func TestBundleElsewhereDetection(t *testing.T) {
	b := Bundle{Source: Elsewhere, Target: Ref("b")}
	if !b.FromElsewhere() || b.ToElsewhere() {
		t.Fatalf("unexpected elsewhere detection: %+v", b)
	}
}

func TestProcessGroupOfAndWaypointOf(t *testing.T) {
	def := Definition{Nodes: map[string]any{
		"a": &ProcessGroup{Title: "A"},
		"w": &Waypoint{Title: "W"},
	}}

	if _, ok := def.ProcessGroupOf("w"); ok {
		t.Fatal("expected a waypoint to not resolve as a process group")
	}
	if _, ok := def.WaypointOf("a"); ok {
		t.Fatal("expected a process group to not resolve as a waypoint")
	}
	if pg, ok := def.ProcessGroupOf("a"); !ok || pg.Title != "A" {
		t.Fatalf("unexpected process group lookup: %+v, ok=%v", pg, ok)
	}
}

func TestValidateRejectsBothEndpointsElsewhere(t *testing.T) {
	def := Definition{Bundles: map[string]Bundle{
		"b1": {Source: Elsewhere, Target: Elsewhere},
	}}
	if err := def.Validate(); err == nil {
		t.Fatal("expected an error when both bundle endpoints are Elsewhere")
	}
}

func TestValidateRejectsUnknownBundleEndpoint(t *testing.T) {
	def := Definition{
		Nodes:   map[string]any{"a": &ProcessGroup{}},
		Bundles: map[string]Bundle{"b1": {Source: Ref("a"), Target: Ref("missing")}},
	}
	err := def.Validate()
	refErr, ok := err.(*UnknownReferenceError)
	if !ok || refErr.Kind != "target" {
		t.Fatalf("expected an UnknownReferenceError for the target, got %v", err)
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	def := Definition{
		Nodes: map[string]any{
			"a": &ProcessGroup{}, "b": &ProcessGroup{}, "w": &Waypoint{},
		},
		Bundles: map[string]Bundle{
			"b1": {Source: Ref("a"), Target: Ref("b"), Waypoints: []*NodeRef{Ref("w")}},
		},
		Ordering: NewOrdering(SingleBand("a", "w", "b")),
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("expected a well-formed definition to validate, got %v", err)
	}
}
