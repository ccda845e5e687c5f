package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/TickDB-Engine/schema"
	"github.com/VanDung-dev/TickDB-Engine/storage"
)

// column flattens a table column into one array per chunk for assertions.
func columnChunks(tbl arrow.Table, i int) []arrow.Array {
	return tbl.Column(i).Data().Chunks()
}

func TestParseInferredTypes(t *testing.T) {
	eng := New(DefaultConfig())

	res, err := eng.Parse([]byte("a,b,c\n1,2.5,x\n3,4.0,y\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	sch := res.Table.Schema()
	expected := []struct {
		name string
		typ  arrow.DataType
	}{
		{"a", arrow.PrimitiveTypes.Int64},
		{"b", arrow.PrimitiveTypes.Float64},
		{"c", arrow.BinaryTypes.String},
	}
	for i, exp := range expected {
		field := sch.Field(i)
		if field.Name != exp.name || !arrow.TypeEqual(field.Type, exp.typ) {
			t.Errorf("Field %d: expected %s %s, got %s %s", i, exp.name, exp.typ, field.Name, field.Type)
		}
	}

	if res.Table.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", res.Table.NumRows())
	}
	for i := 0; i < int(res.Table.NumCols()); i++ {
		for _, chunk := range columnChunks(res.Table, i) {
			if chunk.NullN() != 0 {
				t.Errorf("Column %d: expected no nulls, got %d", i, chunk.NullN())
			}
		}
	}

	ints := columnChunks(res.Table, 0)[0].(*array.Int64)
	if ints.Value(0) != 1 || ints.Value(1) != 3 {
		t.Errorf("Expected [1 3], got [%d %d]", ints.Value(0), ints.Value(1))
	}
	floats := columnChunks(res.Table, 1)[0].(*array.Float64)
	if floats.Value(0) != 2.5 || floats.Value(1) != 4.0 {
		t.Errorf("Expected [2.5 4], got [%f %f]", floats.Value(0), floats.Value(1))
	}
}

func TestParseEmptyNumericTokensBecomeNull(t *testing.T) {
	eng := New(DefaultConfig())

	res, err := eng.Parse([]byte("a,b\n1,\n,2\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	a := columnChunks(res.Table, 0)[0].(*array.Int64)
	b := columnChunks(res.Table, 1)[0].(*array.Int64)

	if a.IsNull(0) || a.Value(0) != 1 {
		t.Errorf("Expected a[0]=1, got null=%v value=%d", a.IsNull(0), a.Value(0))
	}
	if !a.IsNull(1) {
		t.Errorf("Expected a[1] null")
	}
	if !b.IsNull(0) {
		t.Errorf("Expected b[0] null")
	}
	if b.IsNull(1) || b.Value(1) != 2 {
		t.Errorf("Expected b[1]=2, got null=%v value=%d", b.IsNull(1), b.Value(1))
	}
}

func TestParseQuotedDelimiter(t *testing.T) {
	eng := New(DefaultConfig())

	res, err := eng.Parse([]byte("name,note\nAlice,\"hi, there\"\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if res.Table.NumCols() != 2 {
		t.Fatalf("Expected 2 columns, got %d", res.Table.NumCols())
	}
	notes := columnChunks(res.Table, 1)[0].(*array.String)
	if notes.Value(0) != "hi, there" {
		t.Errorf("Expected %q, got %q", "hi, there", notes.Value(0))
	}
	if res.Stats.RaggedRows != 0 {
		t.Errorf("Expected no ragged rows, got %d", res.Stats.RaggedRows)
	}
}

func TestParseMalformedNumericBecomesNull(t *testing.T) {
	eng := New(DefaultConfig())

	// "12x" sits beyond the inference sample, so the column stays Int64
	// and the bad value nulls out instead of aborting the parse.
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < schema.MaxSampleRows; i++ {
		sb.WriteString("1\n")
	}
	sb.WriteString("12x\n")

	res, err := eng.Parse([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if got := res.Table.Schema().Field(0).Type; !arrow.TypeEqual(got, arrow.PrimitiveTypes.Int64) {
		t.Fatalf("Expected Int64, got %s", got)
	}

	var nulls int64
	for _, chunk := range columnChunks(res.Table, 0) {
		nulls += int64(chunk.NullN())
	}
	if nulls != 1 {
		t.Errorf("Expected 1 null, got %d", nulls)
	}
}

func TestParseStats(t *testing.T) {
	input := []byte("a,b\n1,2\n3,4\n")
	eng := New(DefaultConfig())

	res, err := eng.Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if res.Stats.BytesProcessed != int64(len(input)) {
		t.Errorf("Expected %d bytes, got %d", len(input), res.Stats.BytesProcessed)
	}
	if res.Stats.RowsProcessed != 2 {
		t.Errorf("Expected 2 rows, got %d", res.Stats.RowsProcessed)
	}
	if res.Stats.ParseTime < 0 {
		t.Errorf("Expected non-negative parse time, got %v", res.Stats.ParseTime)
	}
	if res.Stats.ThroughputMBps < 0 {
		t.Errorf("Expected non-negative throughput, got %f", res.Stats.ThroughputMBps)
	}
}

func TestParseRaggedRows(t *testing.T) {
	eng := New(DefaultConfig())

	res, err := eng.Parse([]byte("a,b,c\n1,2,3\n4,5\n6,7,8,9\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if res.Stats.RaggedRows != 2 {
		t.Errorf("Expected 2 ragged rows, got %d", res.Stats.RaggedRows)
	}
	// Short rows pad with nulls, long rows truncate; row count is stable.
	if res.Table.NumRows() != 3 {
		t.Errorf("Expected 3 rows, got %d", res.Table.NumRows())
	}
}

func TestParseBatchBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	eng := New(cfg)

	res, err := eng.Parse([]byte("n\n1\n2\n3\n4\n5\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if res.Table.NumRows() != 5 {
		t.Errorf("Expected 5 rows, got %d", res.Table.NumRows())
	}
	if got := len(columnChunks(res.Table, 0)); got != 3 {
		t.Errorf("Expected 3 record batches, got %d", got)
	}
}

func TestParseEmptyBuffer(t *testing.T) {
	eng := New(DefaultConfig())

	if _, err := eng.Parse(nil); !errors.Is(err, schema.ErrEmptySample) {
		t.Errorf("Expected ErrEmptySample, got %v", err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	eng := New(DefaultConfig())

	res, err := eng.Parse([]byte("a,b\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer res.Table.Release()

	if res.Table.NumRows() != 0 {
		t.Errorf("Expected 0 rows, got %d", res.Table.NumRows())
	}
	if res.Table.NumCols() != 2 {
		t.Errorf("Expected 2 columns, got %d", res.Table.NumCols())
	}
}

func TestParseWithSchema(t *testing.T) {
	sch := arrow.NewSchema([]arrow.Field{
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	eng := New(DefaultConfig())
	res, err := eng.ParseWithSchema([]byte("ts,price\n2024-04-25T14:00:00Z,189.57\n"), sch)
	if err != nil {
		t.Fatalf("ParseWithSchema failed: %v", err)
	}
	defer res.Table.Release()

	if !res.Table.Schema().Equal(sch) {
		t.Errorf("Expected schema %s, got %s", sch, res.Table.Schema())
	}
	ts := columnChunks(res.Table, 0)[0].(*array.Timestamp)
	if ts.IsNull(0) {
		t.Errorf("Expected parsed timestamp, got null")
	}
}

func TestParseWithSchemaBoolean(t *testing.T) {
	sch := arrow.NewSchema([]arrow.Field{
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)

	eng := New(DefaultConfig())
	res, err := eng.ParseWithSchema([]byte("flag\ntrue\nfalse\n"), sch)
	if err != nil {
		t.Fatalf("ParseWithSchema failed: %v", err)
	}
	defer res.Table.Release()

	bools := columnChunks(res.Table, 0)[0].(*array.Boolean)
	if !bools.Value(0) || bools.Value(1) {
		t.Errorf("Expected true,false, got %v,%v", bools.Value(0), bools.Value(1))
	}
}

func TestParseWithSchemaUnsupportedType(t *testing.T) {
	sch := arrow.NewSchema([]arrow.Field{
		{Name: "d", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	}, nil)

	eng := New(DefaultConfig())
	_, err := eng.ParseWithSchema([]byte("d\n2024-04-25\n"), sch)
	if err == nil {
		t.Fatal("Expected error for unsupported column type, got nil")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticks.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	eng := New(DefaultConfig())
	res, err := eng.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	defer res.Table.Release()

	if res.Table.NumRows() != 1 {
		t.Errorf("Expected 1 row, got %d", res.Table.NumRows())
	}
}

func TestParseFileMissing(t *testing.T) {
	eng := New(DefaultConfig())

	_, err := eng.ParseFile(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, storage.ErrFileRead) {
		t.Errorf("Expected ErrFileRead, got %v", err)
	}
}
