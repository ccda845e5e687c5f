// Package columns converts string tokens into typed, null-aware Arrow
// arrays. Per-value failures never abort a build: an empty or unparsable
// token in a typed column becomes a null entry.
package columns

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"
)

// timestampLayouts are tried in order when building a timestamp column.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Build converts values into an Arrow array of the given type. The output
// length always equals len(values). For the numeric, boolean and timestamp
// types an empty string or a failed full-string parse appends a null; for
// string and binary every token is appended verbatim as a non-null value,
// so an empty string stays a valid text value. A type outside the
// supported set is a structural error, never a silent fallback.
func Build(mem memory.Allocator, values []string, dtype arrow.DataType) (arrow.Array, error) {
	switch dtype.ID() {
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		appendParsed(b, values, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		appendParsed(b, values, func(s string) (int32, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			return int32(n), err
		})
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		appendParsed(b, values, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		appendParsed(b, values, func(s string) (float32, error) {
			f, err := strconv.ParseFloat(s, 32)
			return float32(f), err
		})
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == "" {
				b.AppendNull()
				continue
			}
			x, err := strconv.ParseBool(v)
			if err != nil {
				b.AppendNull()
				continue
			}
			b.Append(x)
		}
		return b.NewArray(), nil
	case arrow.TIMESTAMP:
		unit := dtype.(*arrow.TimestampType).Unit
		b := array.NewTimestampBuilder(mem, dtype.(*arrow.TimestampType))
		defer b.Release()
		appendParsed(b, values, func(s string) (arrow.Timestamp, error) {
			return parseTimestamp(s, unit)
		})
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			b.Append(v)
		}
		return b.NewArray(), nil
	case arrow.BINARY:
		b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
		defer b.Release()
		for _, v := range values {
			b.Append([]byte(v))
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", dtype)
	}
}

// numericBuilder is the builder surface shared by the fixed-width Arrow
// builders used here.
type numericBuilder[T constraints.Integer | constraints.Float] interface {
	Append(T)
	AppendNull()
}

func appendParsed[T constraints.Integer | constraints.Float](b numericBuilder[T], values []string, parse func(string) (T, error)) {
	for _, v := range values {
		if v == "" {
			b.AppendNull()
			continue
		}
		x, err := parse(v)
		if err != nil {
			b.AppendNull()
			continue
		}
		b.Append(x)
	}
}

// parseTimestamp converts a formatted timestamp into a count of the given
// unit since the epoch.
func parseTimestamp(s string, unit arrow.TimeUnit) (arrow.Timestamp, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return arrow.TimestampFromTime(t, unit)
		}
		lastErr = err
	}
	// Raw epoch counts are accepted as well, interpreted in the column's
	// unit; tick feeds commonly emit epoch-nanos rather than formatted
	// timestamps.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return arrow.Timestamp(n), nil
	}
	return 0, lastErr
}
