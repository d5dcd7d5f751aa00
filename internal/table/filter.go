package table

import (
	"sort"
	"strings"
)

// Values returns the distinct non-blank FilterKey values of t, compared by
// exact text. Whitespace-only values are not selectable and are skipped. With sorted set the result is in byte-wise lexicographic
// order, otherwise in order of first appearance.
func Values(t *Table, sorted bool) []string {
	col := t.ColumnIndex(FilterKey)
	if col < 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var values []string
	for _, row := range t.rows {
		v := row[col]
		if v.IsEmpty() || strings.TrimSpace(v.Text) == "" {
			continue
		}
		if _, ok := seen[v.Text]; ok {
			continue
		}
		seen[v.Text] = struct{}{}
		values = append(values, v.Text)
	}

	if sorted {
		sort.Strings(values)
	}
	return values
}

// Filter returns the rows of t whose FilterKey text equals selection
// exactly, in their original order and with all columns. No case or
// whitespace normalization is applied. An unmatched selection yields a
// table with the same columns and no rows.
func Filter(t *Table, selection string) *Table {
	col := t.ColumnIndex(FilterKey)
	rows := make([][]Value, 0)
	if col < 0 {
		return t.derive(rows)
	}
	for _, row := range t.rows {
		v := row[col]
		if !v.IsEmpty() && v.Text == selection {
			rows = append(rows, row)
		}
	}
	return t.derive(rows)
}
