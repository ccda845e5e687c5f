// Command tickdb parses a delimited-text file into an Arrow table, printing
// the inferred schema and throughput statistics, with optional validation
// and Parquet output.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/TickDB-Engine/engine"
	"github.com/VanDung-dev/TickDB-Engine/schema"
	"github.com/VanDung-dev/TickDB-Engine/storage"
	"github.com/VanDung-dev/TickDB-Engine/validate"
)

func main() {
	var (
		file      = flag.String("f", "", "input file (.csv, .csv.gz, .csv.zst)")
		delim     = flag.String("d", ",", "field delimiter (single byte)")
		batchSize = flag.Int("batch", 16384, "rows per record batch")
		workers   = flag.Int("workers", 0, "concurrent column builds (0 = NumCPU)")
		schemaID  = flag.String("schema", "", "registry schema ID (skips inference)")
		schemaDir = flag.String("schema-dir", "", "directory of saved schema definitions")
		doCheck   = flag.Bool("validate", false, "validate against the registry schema")
		out       = flag.String("o", "", "write result as Parquet to this path")
		head      = flag.Int("head", 0, "print the first N rows")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if len(*delim) != 1 {
		log.Fatalf("Delimiter must be a single byte, got %q", *delim)
	}

	eng := engine.New(engine.Config{
		Delimiter: (*delim)[0],
		BatchSize: *batchSize,
		Workers:   *workers,
	})

	var registry *schema.Registry
	var def *schema.Definition
	if *schemaID != "" || *doCheck {
		var err error
		registry, err = schema.NewRegistry(*schemaDir)
		if err != nil {
			log.Fatalf("Failed to load schema registry: %v", err)
		}
	}

	var res *engine.Result
	var err error
	if *schemaID != "" {
		def, err = registry.Get(*schemaID)
		if err != nil {
			log.Fatalf("Failed to resolve schema: %v", err)
		}
		sch, err := registry.ArrowSchema(*schemaID)
		if err != nil {
			log.Fatalf("Failed to resolve schema: %v", err)
		}
		data, err := storage.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read input: %v", err)
		}
		res, err = eng.ParseWithSchema(data, sch)
		if err != nil {
			log.Fatalf("Parse failed: %v", err)
		}
	} else {
		res, err = eng.ParseFile(*file)
		if err != nil {
			log.Fatalf("Parse failed: %v", err)
		}
	}
	defer res.Table.Release()

	printSchema(res.Table.Schema())
	printStats(res.Stats)

	if *head > 0 {
		printHead(res.Table, *head)
	}

	if *doCheck {
		if def == nil {
			log.Fatalf("-validate requires -schema")
		}
		v := validate.New(def)
		report := v.Validate(res.Table)
		printValidation(report)
		if !report.Valid {
			os.Exit(1)
		}
	}

	if *out != "" {
		if err := storage.WriteParquet(*out, res.Table, storage.DefaultOptions()); err != nil {
			log.Fatalf("Failed to write parquet: %v", err)
		}
		fmt.Printf("Wrote %s\n", *out)
	}
}

func printSchema(sch *arrow.Schema) {
	fmt.Println("Schema:")
	for i := 0; i < sch.NumFields(); i++ {
		f := sch.Field(i)
		fmt.Printf("  %-20s %s\n", f.Name, f.Type)
	}
}

func printStats(stats engine.Stats) {
	fmt.Printf("Rows:        %d\n", stats.RowsProcessed)
	fmt.Printf("Bytes:       %d\n", stats.BytesProcessed)
	fmt.Printf("Ragged rows: %d\n", stats.RaggedRows)
	fmt.Printf("Parse time:  %v\n", stats.ParseTime)
	fmt.Printf("Throughput:  %.2f MB/s\n", stats.ThroughputMBps)
}

func printHead(tbl arrow.Table, n int) {
	if int64(n) > tbl.NumRows() {
		n = int(tbl.NumRows())
	}

	rdr := array.NewTableReader(tbl, int64(n))
	defer rdr.Release()

	if !rdr.Next() {
		return
	}
	rec := rdr.Record()

	for row := 0; row < n && row < int(rec.NumRows()); row++ {
		for col := 0; col < int(rec.NumCols()); col++ {
			if col > 0 {
				fmt.Print("\t")
			}
			arr := rec.Column(col)
			if arr.IsNull(row) {
				fmt.Print("null")
			} else {
				fmt.Print(arr.ValueStr(row))
			}
		}
		fmt.Println()
	}
}

func printValidation(res *validate.Result) {
	fmt.Printf("Validation:  valid=%v rows=%d\n", res.Valid, res.RowsChecked)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, e := range res.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
}
