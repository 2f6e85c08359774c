package procdim

import (
	"context"
	"testing"
)

func testRows() map[string]map[string]any {
	return map[string]map[string]any{
		"p1": {"region": "EU", "capacity": 100.0},
		"p2": {"region": "US", "capacity": 50.0},
		"p3": {"region": "EU", "capacity": 200.0},
	}
}

func TestResolveEquality(t *testing.T) {
	l, err := NewLookup(context.Background(), testRows())
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer l.Close()

	ids, err := l.Resolve(`region = 'EU'`)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p3" {
		t.Fatalf("expected [p1 p3], got %v", ids)
	}
}

func TestResolveNumericComparison(t *testing.T) {
	l, err := NewLookup(context.Background(), testRows())
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer l.Close()

	ids, err := l.Resolve("capacity > 75")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p3" {
		t.Fatalf("expected [p1 p3], got %v", ids)
	}
}

func TestResolveNoMatches(t *testing.T) {
	l, err := NewLookup(context.Background(), testRows())
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer l.Close()

	ids, err := l.Resolve(`region = 'APAC'`)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no matches, got %v", ids)
	}
}

func TestResolveInvalidClause(t *testing.T) {
	l, err := NewLookup(context.Background(), testRows())
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer l.Close()

	if _, err := l.Resolve("not valid sql $$"); err == nil {
		t.Fatal("expected an error for an invalid WHERE clause")
	}
}

func TestNewLookupEmptyTable(t *testing.T) {
	l, err := NewLookup(context.Background(), map[string]map[string]any{})
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer l.Close()

	ids, err := l.Resolve("1 = 1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no rows, got %v", ids)
	}
}
