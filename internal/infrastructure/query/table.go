package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Table is a materialized query result with ordered columns.
// A table produced by a recovered failure is empty and carries Err.
type Table struct {
	Columns []string
	Rows    [][]any
	Err     error

	index map[string]int
}

// NewTable builds a table. Column lookups are case-insensitive since engines
// disagree on the case of result labels.
func NewTable(columns []string, rows [][]any) *Table {
	t := &Table{Columns: columns, Rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		t.index[strings.ToLower(c)] = i
	}
	return t
}

// EmptyTable returns a table with no columns and no rows.
func EmptyTable() *Table {
	return NewTable(nil, nil)
}

// FailedTable returns the empty table standing in for a failed execution.
func FailedTable(err error) *Table {
	t := EmptyTable()
	t.Err = err
	return t
}

// Failed reports whether the table stands in for a failed execution.
func (t *Table) Failed() bool { return t.Err != nil }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[strings.ToLower(column)]
	return ok
}

// Missing returns the required columns absent from the table, in input order.
func (t *Table) Missing(required ...string) []string {
	var missing []string
	for _, c := range required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Row returns an accessor for row i.
func (t *Table) Row(i int) Row {
	return Row{t: t, values: t.Rows[i]}
}

// Each calls fn for every row, stopping at the first error.
func (t *Table) Each(fn func(Row) error) error {
	for i := range t.Rows {
		if err := fn(t.Row(i)); err != nil {
			return err
		}
	}
	return nil
}

// Row gives typed, lenient access to one result row. Absent columns and NULLs
// read as the zero value.
type Row struct {
	t      *Table
	values []any
}

// Value returns the raw value of column.
func (r Row) Value(column string) any {
	i, ok := r.t.index[strings.ToLower(column)]
	if !ok || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// IsNull reports whether column is NULL or absent.
func (r Row) IsNull(column string) bool {
	return r.Value(column) == nil
}

// String reads column as text.
func (r Row) String(column string) string {
	switch v := r.Value(column).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.DateOnly)
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int reads column as an integer, truncating fractional values.
func (r Row) Int(column string) int64 {
	switch v := r.Value(column).(type) {
	case nil:
		return 0
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case decimal.Decimal:
		return v.IntPart()
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		s := strings.TrimSpace(r.String(column))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d.IntPart()
		}
		return 0
	}
}

// Float reads column as a float.
func (r Row) Float(column string) float64 {
	switch v := r.Value(column).(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case decimal.Decimal:
		return v.InexactFloat64()
	default:
		f, _ := strconv.ParseFloat(strings.TrimSpace(r.String(column)), 64)
		return f
	}
}

// Decimal reads column as an exact decimal.
func (r Row) Decimal(column string) decimal.Decimal {
	switch v := r.Value(column).(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	default:
		d, err := decimal.NewFromString(strings.TrimSpace(r.String(column)))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

var dateLayouts = []string{
	time.DateOnly,
	"2006-01-02 15:04:05.000",
	time.DateTime,
	time.RFC3339Nano,
}

// Date reads column as a UTC calendar day.
func (r Row) Date(column string) time.Time {
	var t time.Time
	switch v := r.Value(column).(type) {
	case nil:
		return time.Time{}
	case time.Time:
		t = v
	default:
		s := strings.TrimSpace(r.String(column))
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t = parsed
				break
			}
		}
		if t.IsZero() {
			return time.Time{}
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
