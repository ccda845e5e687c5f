// Package engine orchestrates the parse pipeline: line splitting,
// tokenization, sample-based schema inference and parallel typed column
// builds, producing an Arrow table plus per-call statistics.
package engine

import (
	"fmt"
	"runtime"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/TickDB-Engine/columns"
	"github.com/VanDung-dev/TickDB-Engine/parser"
	"github.com/VanDung-dev/TickDB-Engine/schema"
	"github.com/VanDung-dev/TickDB-Engine/storage"
)

// Config holds per-engine parse settings.
type Config struct {
	// Delimiter separates fields within a line.
	Delimiter byte
	// BatchSize is the number of rows grouped into one record batch.
	BatchSize int
	// SampleRows caps how many data rows feed schema inference.
	SampleRows int
	// Workers bounds concurrent column builds within a batch.
	Workers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ',',
		BatchSize:  16384,
		SampleRows: schema.MaxSampleRows,
		Workers:    runtime.NumCPU(),
	}
}

// Stats describes one completed parse call.
type Stats struct {
	RowsProcessed  int64         `json:"rows_processed"`
	BytesProcessed int64         `json:"bytes_processed"`
	RaggedRows     int64         `json:"ragged_rows"`
	ParseTime      time.Duration `json:"parse_time_ns"`
	ThroughputMBps float64       `json:"throughput_mbps"`
}

// Result pairs a parsed table with the statistics of the call that produced
// it. The caller owns the table and must Release it.
type Result struct {
	Table arrow.Table
	Stats Stats
}

// Engine parses delimited text buffers into Arrow tables. All state is
// read-only after construction, so concurrent Parse calls on one Engine are
// safe; statistics are returned per call, never stored on the engine.
type Engine struct {
	cfg Config
	mem memory.Allocator
}

// New creates an Engine. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Delimiter == 0 {
		cfg.Delimiter = def.Delimiter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = def.SampleRows
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Engine{cfg: cfg, mem: memory.DefaultAllocator}
}

// Parse tokenizes data, infers a schema from the header plus a bounded
// sample, and builds the typed table. The first line is the header. A buffer
// with no lines at all fails with schema.ErrEmptySample; bad values within a
// typed column become nulls, never errors.
func (e *Engine) Parse(data []byte) (*Result, error) {
	start := time.Now()

	rows, err := e.tokenizeAll(data)
	if err != nil {
		return nil, err
	}

	sampleEnd := len(rows)
	if sampleEnd > 1+e.cfg.SampleRows {
		sampleEnd = 1 + e.cfg.SampleRows
	}
	sch, err := schema.Infer(rows[0], rows[1:sampleEnd])
	if err != nil {
		return nil, err
	}

	return e.finish(start, data, sch, rows[1:])
}

// ParseWithSchema parses data against an explicit schema, skipping
// inference. The first line is still consumed as a header; column names come
// from the schema, positionally.
func (e *Engine) ParseWithSchema(data []byte, sch *arrow.Schema) (*Result, error) {
	start := time.Now()

	rows, err := e.tokenizeAll(data)
	if err != nil {
		return nil, err
	}
	return e.finish(start, data, sch, rows[1:])
}

// ParseFile reads the whole file through the storage reader and delegates to
// Parse. Read failures surface as storage.ErrFileRead, distinct from any
// parse-logic failure.
func (e *Engine) ParseFile(path string) (*Result, error) {
	data, err := storage.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return e.Parse(data)
}

func (e *Engine) tokenizeAll(data []byte) ([][]string, error) {
	lines := parser.SplitLines(data)
	if len(lines) == 0 {
		return nil, schema.ErrEmptySample
	}

	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = parser.Tokenize(line, e.cfg.Delimiter)
	}
	return rows, nil
}

func (e *Engine) finish(start time.Time, data []byte, sch *arrow.Schema, dataRows [][]string) (*Result, error) {
	tbl, ragged, err := e.buildTable(sch, dataRows)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	stats := Stats{
		RowsProcessed:  tbl.NumRows(),
		BytesProcessed: int64(len(data)),
		RaggedRows:     ragged,
		ParseTime:      elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		stats.ThroughputMBps = float64(len(data)) / (1024 * 1024) / secs
	}

	return &Result{Table: tbl, Stats: stats}, nil
}

// buildTable converts data rows into one table, one record batch per
// BatchSize rows. Columns within a batch build concurrently; each goroutine
// exclusively owns its output slot.
func (e *Engine) buildTable(sch *arrow.Schema, rows [][]string) (arrow.Table, int64, error) {
	numCols := sch.NumFields()
	var ragged int64
	for _, row := range rows {
		if len(row) != numCols {
			ragged++
		}
	}

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for batchStart := 0; batchStart < len(rows); batchStart += e.cfg.BatchSize {
		batchEnd := batchStart + e.cfg.BatchSize
		if batchEnd > len(rows) {
			batchEnd = len(rows)
		}
		batch := rows[batchStart:batchEnd]

		rec, err := e.buildRecord(sch, batch)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		// Header-only input: an empty record keeps the schema on the table.
		rec, err := e.buildRecord(sch, nil)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	return array.NewTableFromRecords(sch, records), ragged, nil
}

func (e *Engine) buildRecord(sch *arrow.Schema, batch [][]string) (arrow.Record, error) {
	numCols := sch.NumFields()
	cols := make([]arrow.Array, numCols)

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for j := 0; j < numCols; j++ {
		g.Go(func() error {
			values := make([]string, len(batch))
			for i, row := range batch {
				if j < len(row) {
					values[i] = row[j]
				}
			}
			arr, err := columns.Build(e.mem, values, sch.Field(j).Type)
			if err != nil {
				return fmt.Errorf("column %s: %w", sch.Field(j).Name, err)
			}
			if n := arr.Len(); n != len(batch) {
				arr.Release()
				return fmt.Errorf("column %s: built %d values for %d rows", sch.Field(j).Name, n, len(batch))
			}
			cols[j] = arr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
		return nil, err
	}

	rec := array.NewRecord(sch, cols, int64(len(batch)))
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}
