// Package tables holds the in-memory reference tables (gene positions,
// expression matrices) and writes filtered slices of them to
// content-addressed result files.
package tables

// Table is a rectangular string table. Header is nil for header-less
// formats such as bed files.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// FilterRows returns a table with the rows whose value in column col is in keep.
// Row order is preserved. Rows shorter than col+1 are dropped.
func (t *Table) FilterRows(col int, keep map[string]struct{}) *Table {
	out := &Table{Header: t.Header, Rows: make([][]string, 0)}
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		if _, ok := keep[row[col]]; ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// SelectColumns keeps column keyCol plus every other column whose header
// satisfies match. The table must have a header.
func (t *Table) SelectColumns(keyCol int, match func(name string) bool) *Table {
	idx := []int{keyCol}
	for i, name := range t.Header {
		if i != keyCol && match(name) {
			idx = append(idx, i)
		}
	}

	out := &Table{
		Header: make([]string, len(idx)),
		Rows:   make([][]string, 0, len(t.Rows)),
	}
	for j, i := range idx {
		out.Header[j] = t.Header[i]
	}
	for _, row := range t.Rows {
		projected := make([]string, len(idx))
		for j, i := range idx {
			if i < len(row) {
				projected[j] = row[i]
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}

// Column returns every value of column col, skipping short rows.
func (t *Table) Column(col int) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if col < len(row) {
			values = append(values, row[col])
		}
	}
	return values
}

// KeySet builds a membership set from identifiers.
func KeySet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// GeneNameColumn is the gene symbol column of the gene position bed file.
const GeneNameColumn = 4
