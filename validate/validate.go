// Package validate checks parsed tables against registered schema
// definitions and custom rules. Validation never mutates a table.
package validate

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/TickDB-Engine/schema"
)

// Rule is a custom table check. A returned error is recorded as a
// validation error, not propagated.
type Rule func(tbl arrow.Table) error

// Result summarizes one validation run.
type Result struct {
	Valid       bool     `json:"valid"`
	RowsChecked int64    `json:"rows_checked"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Validator checks tables against a schema definition plus extra rules.
type Validator struct {
	def   *schema.Definition
	rules []Rule
}

// New creates a Validator for def. def may be nil, in which case only the
// given rules run.
func New(def *schema.Definition, rules ...Rule) *Validator {
	return &Validator{def: def, rules: rules}
}

// Validate runs all checks against tbl.
func (v *Validator) Validate(tbl arrow.Table) *Result {
	res := &Result{Valid: true, RowsChecked: tbl.NumRows()}

	if v.def != nil {
		v.checkDefinition(tbl, res)
	}
	for _, rule := range v.rules {
		if err := rule(tbl); err != nil {
			res.addError(err.Error())
		}
	}
	return res
}

func (v *Validator) checkDefinition(tbl arrow.Table, res *Result) {
	sch := tbl.Schema()

	for _, f := range v.def.Fields {
		indices := sch.FieldIndices(f.Name)
		if len(indices) == 0 {
			if !f.Nullable {
				res.addError(fmt.Sprintf("required field %s is missing", f.Name))
			}
			continue
		}
		idx := indices[0]

		want, err := schema.TypeFromString(f.Type)
		if err == nil && !arrow.TypeEqual(sch.Field(idx).Type, want) {
			res.addWarning(fmt.Sprintf("field %s: declared %s, actual %s", f.Name, want, sch.Field(idx).Type))
		}

		if !f.Nullable {
			if nulls := columnNulls(tbl.Column(idx)); nulls > 0 {
				res.addError(fmt.Sprintf("non-nullable field %s has %d null values", f.Name, nulls))
			}
		}
	}
}

func columnNulls(col *arrow.Column) int64 {
	var nulls int64
	for _, chunk := range col.Data().Chunks() {
		nulls += int64(chunk.NullN())
	}
	return nulls
}

func (r *Result) addError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RequireColumns is a Rule that fails unless every named column exists.
func RequireColumns(names ...string) Rule {
	return func(tbl arrow.Table) error {
		sch := tbl.Schema()
		for _, name := range names {
			if len(sch.FieldIndices(name)) == 0 {
				return fmt.Errorf("required column %s is missing", name)
			}
		}
		return nil
	}
}

// NonNegative is a Rule that fails when any non-null value in the named
// numeric column is negative. A missing or non-numeric column is an error.
func NonNegative(name string) Rule {
	return func(tbl arrow.Table) error {
		indices := tbl.Schema().FieldIndices(name)
		if len(indices) == 0 {
			return fmt.Errorf("column %s is missing", name)
		}

		for _, chunk := range tbl.Column(indices[0]).Data().Chunks() {
			switch arr := chunk.(type) {
			case *array.Int64:
				for i := 0; i < arr.Len(); i++ {
					if !arr.IsNull(i) && arr.Value(i) < 0 {
						return fmt.Errorf("column %s: negative value %d at row %d", name, arr.Value(i), i)
					}
				}
			case *array.Float64:
				for i := 0; i < arr.Len(); i++ {
					if !arr.IsNull(i) && arr.Value(i) < 0 {
						return fmt.Errorf("column %s: negative value %f at row %d", name, arr.Value(i), i)
					}
				}
			default:
				return fmt.Errorf("column %s is not numeric", name)
			}
		}
		return nil
	}
}
