package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// Lake writes parsed tables into a date-partitioned directory tree:
// <root>/<schemaID>/<sourceID>/<yyyy-mm-dd>/part-<unixnano>.parquet.
type Lake struct {
	Root    string
	Options Options
}

// NewLake creates a Lake rooted at root with default Parquet options.
func NewLake(root string) *Lake {
	return &Lake{Root: root, Options: DefaultOptions()}
}

// Store writes tbl as a new part file and returns its path.
func (l *Lake) Store(tbl arrow.Table, schemaID, sourceID string) (string, error) {
	now := time.Now().UTC()
	dir := filepath.Join(l.Root, schemaID, sourceID, now.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create partition directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("part-%d.parquet", now.UnixNano()))
	if err := WriteParquet(path, tbl, l.Options); err != nil {
		return "", err
	}
	return path, nil
}
