// Package schema provides sample-based column type inference and a registry
// of named schema definitions.
package schema

import (
	"errors"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// ErrEmptySample is returned when inference is attempted with no header row.
var ErrEmptySample = errors.New("no sample rows provided")

// MaxSampleRows bounds how many data rows inference examines per column.
const MaxSampleRows = 100

// colState is the per-column inference state. Transitions are one-way:
// stateInt -> stateFloat -> stateText.
type colState int

const (
	stateInt colState = iota
	stateFloat
	stateText
)

// Infer assigns an Arrow type to each header column from a bounded sample of
// tokenized rows. A column is Int64 while every non-empty sample token
// parses numerically without a decimal point, Float64 once one contains a
// decimal point, and Utf8 on the first token that does not parse at all.
// Empty tokens are skipped; a column with no non-empty sample is Utf8.
// Ragged sample rows contribute only the columns they have.
//
// Inference is one-shot: rows beyond the sample never revise the result.
func Infer(header []string, sample [][]string) (*arrow.Schema, error) {
	if len(header) == 0 {
		return nil, ErrEmptySample
	}

	if len(sample) > MaxSampleRows {
		sample = sample[:MaxSampleRows]
	}

	fields := make([]arrow.Field, len(header))
	for j, name := range header {
		fields[j] = arrow.Field{Name: name, Type: inferColumn(sample, j), Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func inferColumn(sample [][]string, j int) arrow.DataType {
	st := stateInt
	seen := false

	for _, row := range sample {
		if j >= len(row) || row[j] == "" {
			continue
		}
		v := row[j]
		seen = true

		if _, err := strconv.ParseFloat(v, 64); err != nil {
			st = stateText
			break
		}
		// Integer vs float is decided purely by the decimal point, so
		// exponent forms without one stay integer candidates and null out
		// later during the column build.
		if st == stateInt && strings.ContainsRune(v, '.') {
			st = stateFloat
		}
	}

	if !seen {
		return arrow.BinaryTypes.String
	}
	switch st {
	case stateInt:
		return arrow.PrimitiveTypes.Int64
	case stateFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}
