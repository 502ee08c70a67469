package frame

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset pairs a Frame with the declared label column and the integer-coded
// columns that downstream checks treat as categorical. It is the unit handed
// to the validation suite and the model.
type Dataset struct {
	Frame       *Frame
	Label       string
	Categorical []string
}

// NewDataset validates the declarations against the Frame: the label and
// every categorical column must exist, and categorical columns must be
// integer-coded.
func NewDataset(f *Frame, label string, categorical []string) (*Dataset, error) {
	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if !f.HasColumn(label) {
		return nil, fmt.Errorf("label column %q not in frame", label)
	}
	for _, name := range categorical {
		col, err := f.Column(name)
		if err != nil {
			return nil, fmt.Errorf("categorical column: %w", err)
		}
		if col.Kind != KindInt {
			return nil, fmt.Errorf("categorical column %q must be integer-coded, got %s", name, col.Kind)
		}
	}
	return &Dataset{Frame: f, Label: label, Categorical: categorical}, nil
}

// Features returns the feature matrix: every column except the label, in
// declaration order, widened to float64.
func (d *Dataset) Features() (*mat.Dense, error) {
	feat, err := d.Frame.Drop(d.Label)
	if err != nil {
		return nil, err
	}
	return feat.Matrix()
}

// Labels returns the label column as float64 values.
func (d *Dataset) Labels() ([]float64, error) {
	return d.Frame.Float64s(d.Label)
}

// NumRows returns the row count of the underlying Frame.
func (d *Dataset) NumRows() int { return d.Frame.NumRows() }
