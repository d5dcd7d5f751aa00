// Package table holds the in-memory spreadsheet model used by the filter
// pipeline: loading a workbook into a Table, selecting rows by establishment
// and encoding a Table back into xlsx bytes.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FilterKey is the column whose values populate the establishment dropdown.
// A workbook without it cannot be loaded.
const FilterKey = "Nombre_Establecimiento"

// Kind identifies the scalar type of a cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Date layouts used for the canonical text of KindDate values.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Value is a single typed cell. Text is canonical for the kind, so two
// values compare equal with == exactly when they hold the same datum.
type Value struct {
	Kind Kind
	Text string
}

// Empty returns the value of a blank cell.
func Empty() Value { return Value{} }

// String returns a text value. An empty string is a blank cell.
func String(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: KindString, Text: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{Kind: KindBool, Text: "TRUE"}
	}
	return Value{Kind: KindBool, Text: "FALSE"}
}

// Date returns a date value truncated to whole seconds in UTC.
// Values without a clock component render as a plain date.
func Date(t time.Time) Value {
	t = t.UTC().Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return Value{Kind: KindDate, Text: t.Format(dateLayout)}
	}
	return Value{Kind: KindDate, Text: t.Format(dateTimeLayout)}
}

// excelEpoch is the last instant a 1900-system workbook cannot store as
// a date serial; excelize writes earlier times as text.
var excelEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

// storableDate reports whether t can be written as a date cell.
func storableDate(t time.Time) bool { return t.UTC().After(excelEpoch) }

// IsEmpty reports whether v is a blank cell.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// String returns the display text of the value.
func (v Value) String() string { return v.Text }

// Float returns the numeric value of a KindNumber cell.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	return f, err == nil
}

// Time returns the time of a KindDate cell.
func (v Value) Time() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	layout := dateLayout
	if strings.Contains(v.Text, " ") {
		layout = dateTimeLayout
	}
	t, err := time.ParseInLocation(layout, v.Text, time.UTC)
	return t, err == nil
}

// Table is an ordered set of named columns with rows aligned by index.
// Every row has exactly one value per column. A Table is not modified
// after construction; derived tables share row storage with their source.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New builds a table from column names and rows. Rows shorter than the
// header are padded with blank cells; longer rows are rejected.
func New(columns []string, rows [][]Value) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := index[col]; dup {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		index[col] = i
	}

	aligned := make([][]Value, len(rows))
	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if len(row) < len(columns) {
			padded := make([]Value, len(columns))
			copy(padded, row)
			row = padded
		}
		aligned[i] = row
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Table{columns: cols, index: index, rows: aligned}, nil
}

// MustNew is New for fixtures and literals known to be well formed.
func MustNew(columns []string, rows [][]Value) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// derive returns a table sharing t's columns with a different row set.
func (t *Table) derive(rows [][]Value) *Table {
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Cell returns the value at row i of the named column.
func (t *Table) Cell(i int, column string) (Value, bool) {
	j := t.ColumnIndex(column)
	if j < 0 || i < 0 || i >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[i][j], true
}

// Head returns a table with at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t
	}
	return t.derive(t.rows[:n])
}

// Strings returns the display text of every row, for JSON and terminal output.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = v.Text
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether both tables have the same columns in the same
// order and the same cell values row by row.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if t.rows[i][j] != o.rows[i][j] {
				return false
			}
		}
	}
	return true
}
