// Package arrowio provides Arrow IPC serialization for moving parsed tables
// across process boundaries.
package arrowio

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// WriteTable serializes a table to an Arrow IPC stream, one message per
// record batch.
func WriteTable(tbl arrow.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(tbl.Schema()))

	rdr := array.NewTableReader(tbl, 0)
	defer rdr.Release()

	for rdr.Next() {
		if err := w.Write(rdr.Record()); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadTable deserializes an Arrow IPC stream into a table. The caller owns
// the result and must Release it.
func ReadTable(data []byte) (arrow.Table, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer rdr.Release()

	var records []arrow.Record
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	if rdr.Err() != nil {
		return nil, rdr.Err()
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records in IPC data")
	}

	return array.NewTableFromRecords(rdr.Schema(), records), nil
}

// SerializeRecord serializes a single record to IPC bytes.
func SerializeRecord(rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))

	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeRecord reads the first record from IPC bytes. The caller owns
// the record and must Release it.
func DeserializeRecord(data []byte) (arrow.Record, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		if rdr.Err() != nil {
			return nil, rdr.Err()
		}
		return nil, fmt.Errorf("no records in IPC data")
	}

	rec := rdr.Record()
	rec.Retain()
	return rec, nil
}
