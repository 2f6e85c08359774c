// Package procdim resolves a ProcessGroup's query-string selection
// against a process dimension table: one row per process id, with
// whatever descriptive columns (region, sector, supplier, ...) the query
// string filters on.
//
// The reference this is ported from evaluates selections with pandas'
// query(): an arbitrary boolean expression over the table's columns. Go
// has no equivalent expression evaluator in this dependency set, so
// Lookup loads the table into an in-memory SQLite database (the same
// driver internal/speccache's SQLite store uses) and evaluates the selection as a SQL
// WHERE clause instead. This is a deliberate grammar change from pandas
// query syntax to SQL syntax, not a full semantic port; see DESIGN.md.
package procdim

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// Lookup evaluates process group selection query strings against a
// process dimension table held in an in-memory SQLite database.
type Lookup struct {
	db *sql.DB
}

// NewLookup builds a Lookup from a dimension table: one row per process
// id, each row a map of column name to string or float64 value. Columns
// are typed REAL if every row supplies a numeric value for them, TEXT
// otherwise, so numeric WHERE-clause comparisons work as expected.
func NewLookup(ctx context.Context, rows map[string]map[string]any) (*Lookup, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("procdim: failed to open in-memory database: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	columns, numeric := collectColumns(rows)

	var schema string
	schema = "CREATE TABLE dim (id TEXT PRIMARY KEY"
	for _, col := range columns {
		typ := "TEXT"
		if numeric[col] {
			typ = "REAL"
		}
		schema += fmt.Sprintf(", %s %s", quoteIdent(col), typ)
	}
	schema += ")"
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("procdim: failed to create dimension table: %w", err)
	}

	insertCols := "id"
	placeholders := "?"
	for _, col := range columns {
		insertCols += ", " + quoteIdent(col)
		placeholders += ", ?"
	}
	insert := fmt.Sprintf("INSERT INTO dim (%s) VALUES (%s)", insertCols, placeholders)

	for _, id := range ids {
		row := rows[id]
		args := make([]any, 0, len(columns)+1)
		args = append(args, id)
		for _, col := range columns {
			args = append(args, row[col])
		}
		if _, err := db.ExecContext(ctx, insert, args...); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("procdim: failed to insert row %q: %w", id, err)
		}
	}

	return &Lookup{db: db}, nil
}

func collectColumns(rows map[string]map[string]any) ([]string, map[string]bool) {
	seen := map[string]bool{}
	numeric := map[string]bool{}
	nonNumeric := map[string]bool{}
	var columns []string
	for _, row := range rows {
		for col, v := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
			switch v.(type) {
			case float64, float32, int, int64:
				numeric[col] = true
			default:
				nonNumeric[col] = true
			}
		}
	}
	sort.Strings(columns)
	for col := range nonNumeric {
		delete(numeric, col)
	}
	return columns, numeric
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// Resolve evaluates query as a SQL WHERE clause against the dimension
// table and returns the matching process ids, sorted for determinism.
// It implements compiler.DimensionLookup's signature.
func (l *Lookup) Resolve(query string) ([]string, error) {
	rows, err := l.db.Query(fmt.Sprintf("SELECT id FROM dim WHERE %s", query)) // #nosec G201 -- query is an operator-authored diagram selection, not untrusted user input
	if err != nil {
		return nil, fmt.Errorf("procdim: failed to evaluate selection %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("procdim: failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procdim: error iterating rows: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the in-memory database.
func (l *Lookup) Close() error {
	return l.db.Close()
}
