package testhelpers

import (
	"encoding/json"
	"os"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FeatherColumn is one column of a Feather fixture. Empty values are
// written as nulls. Float columns parse every non-empty value as float64.
type FeatherColumn struct {
	Name   string
	Float  bool
	Values []string
}

// WriteFeather writes cols as an Arrow IPC file at path. When pandasIndex is
// non-empty the schema carries the "pandas" metadata pyarrow emits for a
// DataFrame whose index is that column.
func WriteFeather(t *testing.T, path string, cols []FeatherColumn, pandasIndex string) {
	t.Helper()
	mem := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(cols))
	arrays := make([]arrow.Array, len(cols))
	rows := 0
	for i, c := range cols {
		rows = len(c.Values)
		if c.Float {
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
			b := array.NewFloat64Builder(mem)
			for _, v := range c.Values {
				if v == "" {
					b.AppendNull()
					continue
				}
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					t.Fatalf("feather fixture %s: %v", c.Name, err)
				}
				b.Append(f)
			}
			arrays[i] = b.NewArray()
			b.Release()
			continue
		}
		fields[i] = arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true}
		b := array.NewStringBuilder(mem)
		for _, v := range c.Values {
			if v == "" {
				b.AppendNull()
				continue
			}
			b.Append(v)
		}
		arrays[i] = b.NewArray()
		b.Release()
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	var md *arrow.Metadata
	if pandasIndex != "" {
		meta, err := json.Marshal(map[string]any{
			"index_columns": []string{pandasIndex},
			"pandas_version": "2.2.2",
		})
		if err != nil {
			t.Fatalf("encode pandas metadata: %v", err)
		}
		m := arrow.NewMetadata([]string{"pandas"}, []string{string(meta)})
		md = &m
	}
	schema := arrow.NewSchema(fields, md)

	rec := array.NewRecord(schema, arrays, int64(rows))
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create feather fixture: %v", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatalf("open feather writer: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("write feather record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close feather writer: %v", err)
	}
}
