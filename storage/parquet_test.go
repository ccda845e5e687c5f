package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func sampleTable(t *testing.T) arrow.Table {
	t.Helper()

	sch := arrow.NewSchema([]arrow.Field{
		{Name: "symbol", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "size", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, sch)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).AppendValues([]string{"AAPL", "MSFT", "GOOG"}, nil)
	b.Field(1).(*array.Float64Builder).AppendValues([]float64{189.57, 404.11, 171.95}, nil)
	b.Field(2).(*array.Int64Builder).AppendValues([]int64{100, 250, 0}, []bool{true, true, false})

	rec := b.NewRecord()
	defer rec.Release()

	return array.NewTableFromRecords(sch, []arrow.Record{rec})
}

func TestParquetRoundTrip(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	path := filepath.Join(t.TempDir(), "out.parquet")
	if err := WriteParquet(path, tbl, DefaultOptions()); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}

	back, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	defer back.Release()

	if back.NumRows() != tbl.NumRows() {
		t.Errorf("Expected %d rows, got %d", tbl.NumRows(), back.NumRows())
	}
	if back.NumCols() != tbl.NumCols() {
		t.Errorf("Expected %d columns, got %d", tbl.NumCols(), back.NumCols())
	}
	for i := 0; i < int(tbl.NumCols()); i++ {
		want := tbl.Schema().Field(i)
		got := back.Schema().Field(i)
		if got.Name != want.Name || !arrow.TypeEqual(got.Type, want.Type) {
			t.Errorf("Field %d: expected %s %s, got %s %s", i, want.Name, want.Type, got.Name, got.Type)
		}
	}

	// The null in the size column must survive the round trip.
	var nulls int
	for _, chunk := range back.Column(2).Data().Chunks() {
		nulls += chunk.NullN()
	}
	if nulls != 1 {
		t.Errorf("Expected 1 null, got %d", nulls)
	}
}

func TestParquetCompressionOptions(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	for _, comp := range []string{"zstd", "snappy", "none"} {
		path := filepath.Join(t.TempDir(), comp+".parquet")
		if err := WriteParquet(path, tbl, Options{Compression: comp, Level: 3}); err != nil {
			t.Errorf("WriteParquet(%s) failed: %v", comp, err)
		}
	}

	path := filepath.Join(t.TempDir(), "bad.parquet")
	if err := WriteParquet(path, tbl, Options{Compression: "brotli9000"}); err == nil {
		t.Errorf("Expected error for unsupported compression")
	}
}

func TestLakeStore(t *testing.T) {
	tbl := sampleTable(t)
	defer tbl.Release()

	root := t.TempDir()
	lake := NewLake(root)

	path, err := lake.Store(tbl, "ticks_v1", "feed-a")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	if len(segments) != 4 {
		t.Fatalf("Expected 4 path segments, got %d (%s)", len(segments), rel)
	}
	if segments[0] != "ticks_v1" || segments[1] != "feed-a" {
		t.Errorf("Unexpected layout: %s", rel)
	}
	if !strings.HasPrefix(segments[3], "part-") || !strings.HasSuffix(segments[3], ".parquet") {
		t.Errorf("Unexpected part file name: %s", segments[3])
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected part file to exist: %v", err)
	}

	back, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	defer back.Release()
	if back.NumRows() != 3 {
		t.Errorf("Expected 3 rows, got %d", back.NumRows())
	}
}
