// Package storage provides the filesystem collaborators of the parse
// engine: whole-file reads with transparent decompression, Parquet
// persistence and the partitioned data-lake layout.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrFileRead is returned when an input file cannot be opened, read or
// decompressed. It is distinct from any parse-logic failure so callers can
// tell I/O problems from malformed data.
var ErrFileRead = errors.New("failed to read input file")

// ReadFile reads the whole file into memory. Files ending in .gz or .zst
// are decompressed transparently; there is no streaming mode.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(path) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	return data, nil
}
