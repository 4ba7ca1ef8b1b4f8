package tables

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// pandasMetadataKey is the schema metadata key pyarrow uses to record how a
// DataFrame maps onto the Arrow columns.
const pandasMetadataKey = "pandas"

// ReadFeather loads a Feather v2 (Arrow IPC file) table. Every value is
// rendered to its string form; nulls become empty strings.
//
// Files written by pandas store the DataFrame index as a trailing column
// named in the "pandas" schema metadata. That column is moved to position 0
// so callers can key rows on column 0 regardless of who wrote the file.
func ReadFeather(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open feather file %s: %w", path, err)
	}
	defer r.Close()

	schema := r.Schema()
	order := columnOrder(schema)

	t := &Table{
		Header: make([]string, len(order)),
		Rows:   make([][]string, 0),
	}
	fields := schema.Fields()
	for i, c := range order {
		t.Header[i] = fields[c].Name
	}

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("read record batch %d: %w", i, err)
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			values := make([]string, len(order))
			for dst, c := range order {
				col := rec.Column(c)
				if col.IsNull(row) {
					continue
				}
				values[dst] = col.ValueStr(row)
			}
			t.Rows = append(t.Rows, values)
		}
	}

	return t, nil
}

// columnOrder returns the schema's column indices with the pandas index
// column, when one is named, moved to the front.
func columnOrder(schema *arrow.Schema) []int {
	n := schema.NumFields()
	order := make([]int, 0, n)

	idx := pandasIndexColumn(schema)
	if idx >= 0 {
		order = append(order, idx)
	}
	for i := 0; i < n; i++ {
		if i != idx {
			order = append(order, i)
		}
	}
	return order
}

// pandasIndexColumn returns the field index of the first named pandas index
// column, or -1. RangeIndex entries are objects, not names, and are skipped.
func pandasIndexColumn(schema *arrow.Schema) int {
	md := schema.Metadata()
	k := md.FindKey(pandasMetadataKey)
	if k < 0 {
		return -1
	}

	var meta struct {
		IndexColumns []any `json:"index_columns"`
	}
	if err := json.Unmarshal([]byte(md.Values()[k]), &meta); err != nil {
		return -1
	}
	if len(meta.IndexColumns) == 0 {
		return -1
	}
	name, ok := meta.IndexColumns[0].(string)
	if !ok {
		return -1
	}
	indices := schema.FieldIndices(name)
	if len(indices) == 0 {
		return -1
	}
	return indices[0]
}
