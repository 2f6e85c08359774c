// Package table holds the flow-data row interface the executor routes and
// aggregates: a column-oriented table of string (attribute) and numeric
// (measure) columns, addressed by row index.
package table

import (
	"fmt"
	"strconv"

	"github.com/rlupton/weaver/rule"
)

// FlowTable is the row-iteration contract the executor needs: random
// access to a row's attribute values (for routing) and measure values
// (for aggregation), plus the row count.
type FlowTable interface {
	NumRows() int
	StringValue(row int, attr string) (string, bool)
	NumericValue(row int, attr string) (float64, bool)
}

// Table is an in-memory columnar FlowTable: one slice per column, string
// or numeric, all the same length.
type Table struct {
	rows    int
	strings map[string][]string
	numbers map[string][]float64
}

// New builds a Table from string and numeric columns. It is an error for
// the columns to disagree on row count.
func New(stringColumns map[string][]string, numericColumns map[string][]float64) (*Table, error) {
	rows := -1
	for name, col := range stringColumns {
		if rows == -1 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("table: column %q has %d rows, expected %d", name, len(col), rows)
		}
	}
	for name, col := range numericColumns {
		if rows == -1 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("table: column %q has %d rows, expected %d", name, len(col), rows)
		}
	}
	if rows == -1 {
		rows = 0
	}
	return &Table{rows: rows, strings: stringColumns, numbers: numericColumns}, nil
}

// NumRows implements FlowTable.
func (t *Table) NumRows() int { return t.rows }

// StringValue implements FlowTable. A numeric column's value is also
// available as a string (formatted with strconv.FormatFloat), since
// partition/selection attributes may legitimately be numeric-looking
// (years, codes) stored in a numeric column.
func (t *Table) StringValue(row int, attr string) (string, bool) {
	if col, ok := t.strings[attr]; ok {
		return col[row], true
	}
	if col, ok := t.numbers[attr]; ok {
		return strconv.FormatFloat(col[row], 'g', -1, 64), true
	}
	return "", false
}

// NumericValue implements FlowTable.
func (t *Table) NumericValue(row int, attr string) (float64, bool) {
	col, ok := t.numbers[attr]
	if !ok {
		return 0, false
	}
	return col[row], true
}

// GetValueAt returns a rule.GetValue bound to one row, for routing-tree
// evaluation.
func GetValueAt(t FlowTable, row int) rule.GetValue {
	return func(attr string) (string, bool) {
		return t.StringValue(row, attr)
	}
}
