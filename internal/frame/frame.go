// Package frame provides the in-memory tabular structures the pipeline
// operates on.
//
// A Frame is a column-major table with typed columns. Columns are either
// integer-coded or floating-point; there is no null representation. Row and
// column order are always preserved by every operation in this package, so a
// Frame read from disk can be partitioned and reassembled byte-for-byte.
package frame

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind is the storage type of a column.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

// Column is a single named, typed column.
//
// Exactly one of Ints/Floats is populated, matching Kind.
type Column struct {
	Name   string
	Kind   Kind
	Ints   []int64
	Floats []float64
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == KindInt {
		return len(c.Ints)
	}
	return len(c.Floats)
}

// Float64 returns the value at row i widened to float64.
func (c *Column) Float64(i int) float64 {
	if c.Kind == KindInt {
		return float64(c.Ints[i])
	}
	return c.Floats[i]
}

// Frame is an immutable-by-convention table. Mutating a Frame after
// construction is not supported; operations return new Frames that may share
// column storage with their source.
type Frame struct {
	cols   []Column
	byName map[string]int
	rows   int
}

// New constructs a Frame from columns. All columns must have unique non-empty
// names and equal lengths.
func New(cols []Column) (*Frame, error) {
	f := &Frame{
		cols:   cols,
		byName: make(map[string]int, len(cols)),
	}
	for i := range cols {
		c := &cols[i]
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := f.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		switch c.Kind {
		case KindInt, KindFloat:
		default:
			return nil, fmt.Errorf("column %q has unknown kind %q", c.Name, c.Kind)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
		}
		f.byName[c.Name] = i
	}
	return f, nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in declaration order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i := range f.cols {
		names[i] = f.cols[i].Name
	}
	return names
}

// Column returns the named column, or an error if it does not exist.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	return &f.cols[i], nil
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Float64s returns the named column widened to float64, copying the values.
func (f *Frame) Float64s(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, f.rows)
	for i := 0; i < f.rows; i++ {
		out[i] = c.Float64(i)
	}
	return out, nil
}

// Select returns a Frame containing only the named columns, in the given
// order. Column storage is shared with the receiver.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, *c)
	}
	return New(cols)
}

// Drop returns a Frame without the named columns, preserving the order of the
// remaining columns. Dropping a column that does not exist is an error.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !f.HasColumn(name) {
			return nil, fmt.Errorf("no column %q", name)
		}
		drop[name] = true
	}
	cols := make([]Column, 0, len(f.cols))
	for i := range f.cols {
		if drop[f.cols[i].Name] {
			continue
		}
		cols = append(cols, f.cols[i])
	}
	return New(cols)
}

// Slice returns rows [lo, hi) of every column. Column storage is shared via
// subslicing, so the result aliases the receiver.
func (f *Frame) Slice(lo, hi int) (*Frame, error) {
	if lo < 0 || hi < lo || hi > f.rows {
		return nil, fmt.Errorf("slice [%d, %d) out of range for %d rows", lo, hi, f.rows)
	}
	cols := make([]Column, len(f.cols))
	for i := range f.cols {
		c := f.cols[i]
		switch c.Kind {
		case KindInt:
			c.Ints = c.Ints[lo:hi]
		case KindFloat:
			c.Floats = c.Floats[lo:hi]
		}
		cols[i] = c
	}
	return New(cols)
}

// Matrix widens every column to float64 and returns the row-major dense
// matrix, one matrix column per Frame column in declaration order.
// An empty Frame has no matrix representation and is an error.
func (f *Frame) Matrix() (*mat.Dense, error) {
	if f.rows == 0 || len(f.cols) == 0 {
		return nil, fmt.Errorf("cannot build a matrix from %d rows x %d columns", f.rows, len(f.cols))
	}
	data := make([]float64, f.rows*len(f.cols))
	for j := range f.cols {
		c := &f.cols[j]
		for i := 0; i < f.rows; i++ {
			data[i*len(f.cols)+j] = c.Float64(i)
		}
	}
	return mat.NewDense(f.rows, len(f.cols), data), nil
}
