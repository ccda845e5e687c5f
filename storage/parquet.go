package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Options controls Parquet output.
type Options struct {
	// Compression is one of zstd, snappy or none.
	Compression string
	// Level applies to zstd only.
	Level int
	// ChunkSize is the row-group size; 0 means the table's full length.
	ChunkSize int64
}

// DefaultOptions matches the lake defaults: zstd level 5.
func DefaultOptions() Options {
	return Options{Compression: "zstd", Level: 5}
}

// WriteParquet writes tbl to path with the given options.
func WriteParquet(path string, tbl arrow.Table, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	props, err := writerProps(opts)
	if err != nil {
		return err
	}

	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = tbl.NumRows()
		if chunk == 0 {
			chunk = 1
		}
	}

	if err := pqarrow.WriteTable(tbl, f, chunk, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	return nil
}

func writerProps(opts Options) (*parquet.WriterProperties, error) {
	switch opts.Compression {
	case "zstd", "":
		level := opts.Level
		if level <= 0 {
			level = 5
		}
		return parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Zstd),
			parquet.WithCompressionLevel(level),
		), nil
	case "snappy":
		return parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)), nil
	case "none":
		return parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Uncompressed)), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", opts.Compression)
	}
}

// ReadParquet reads a Parquet file back into an Arrow table. The caller
// owns the returned table.
func ReadParquet(path string) (arrow.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	rdr, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet reader: %w", err)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowRdr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	return tbl, nil
}
