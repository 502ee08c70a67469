package frame

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation reports a Frame that does not match its declared schema.
var ErrSchemaViolation = errors.New("schema violation")

// ColumnSpec declares one expected column.
type ColumnSpec struct {
	Name string
	Kind Kind
}

// Schema describes the fixed structure of a dataset: the exact column set, in
// order, with storage kinds. There is no schema evolution; validation is
// all-or-nothing.
type Schema struct {
	Columns []ColumnSpec
}

// Validate checks f against the schema: same column count, same names in the
// same order, same kinds. Nulls cannot occur (ReadCSV rejects unparseable
// cells), so a valid Frame satisfies the non-null invariant by construction.
func (s Schema) Validate(f *Frame) error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrSchemaViolation)
	}
	if f.NumCols() != len(s.Columns) {
		return fmt.Errorf("%w: %d columns, want %d", ErrSchemaViolation, f.NumCols(), len(s.Columns))
	}
	names := f.Columns()
	for i, spec := range s.Columns {
		if names[i] != spec.Name {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaViolation, i, names[i], spec.Name)
		}
		col, err := f.Column(spec.Name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
		if col.Kind != spec.Kind {
			return fmt.Errorf("%w: column %q is %s, want %s", ErrSchemaViolation, spec.Name, col.Kind, spec.Kind)
		}
	}
	return nil
}

// LabelColumn is the demand dataset's target column.
const LabelColumn = "count"

// CategoricalColumns are the integer-coded demand columns treated as
// categories by the check suite.
func CategoricalColumns() []string {
	return []string{"season", "holiday", "workingday", "weather"}
}

// DemandSchema is the fixed 12-column layout of the bike-sharing demand
// dataset: nine integer-coded columns and three floating-point columns, with
// the numeric label `count` last.
func DemandSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "season", Kind: KindInt},
		{Name: "holiday", Kind: KindInt},
		{Name: "workingday", Kind: KindInt},
		{Name: "weather", Kind: KindInt},
		{Name: "hour", Kind: KindInt},
		{Name: "temp", Kind: KindFloat},
		{Name: "atemp", Kind: KindFloat},
		{Name: "humidity", Kind: KindInt},
		{Name: "windspeed", Kind: KindFloat},
		{Name: "casual", Kind: KindInt},
		{Name: "registered", Kind: KindInt},
		{Name: "count", Kind: KindInt},
	}}
}
