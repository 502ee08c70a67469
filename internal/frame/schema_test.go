package frame

import (
	"errors"
	"testing"
)

func TestDemandSchema_AcceptsConformingFrame(t *testing.T) {
	f := loadDemandFrame(t, 50)

	if err := DemandSchema().Validate(f); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDemandSchema_RejectsMissingColumn(t *testing.T) {
	f := loadDemandFrame(t, 50)
	dropped, err := f.Drop("windspeed")
	if err != nil {
		t.Fatalf("drop: %v", err)
	}

	err = DemandSchema().Validate(dropped)
	if err == nil {
		t.Fatal("expected schema violation, got nil")
	}
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("error should wrap ErrSchemaViolation, got: %v", err)
	}
}

func TestDemandSchema_RejectsReorderedColumns(t *testing.T) {
	f := loadDemandFrame(t, 10)
	names := f.Columns()
	// Swap the first two columns.
	names[0], names[1] = names[1], names[0]
	reordered, err := f.Select(names...)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if err := DemandSchema().Validate(reordered); err == nil {
		t.Fatal("expected schema violation for reordered columns, got nil")
	}
}

func TestDemandSchema_RejectsWrongKind(t *testing.T) {
	spec := DemandSchema()
	cols := make([]Column, 0, len(spec.Columns))
	for _, cs := range spec.Columns {
		c := Column{Name: cs.Name, Kind: KindFloat, Floats: []float64{1}}
		cols = append(cols, c)
	}
	f, err := New(cols)
	if err != nil {
		t.Fatalf("new frame: %v", err)
	}

	if err := spec.Validate(f); err == nil {
		t.Fatal("expected schema violation for float-typed integer columns, got nil")
	}
}

func TestNewDataset_ValidatesDeclarations(t *testing.T) {
	f := loadDemandFrame(t, 30)

	ds, err := NewDataset(f, LabelColumn, CategoricalColumns())
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	X, err := ds.Features()
	if err != nil {
		t.Fatalf("features: %v", err)
	}
	_, cols := X.Dims()
	if cols != 11 {
		t.Errorf("feature columns = %d, want 11", cols)
	}

	y, err := ds.Labels()
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if len(y) != 30 {
		t.Errorf("labels = %d, want 30", len(y))
	}
}

func TestNewDataset_RejectsUnknownLabel(t *testing.T) {
	f := loadDemandFrame(t, 5)

	if _, err := NewDataset(f, "price", nil); err == nil {
		t.Fatal("expected error for unknown label, got nil")
	}
}

func TestNewDataset_RejectsFloatCategorical(t *testing.T) {
	f := loadDemandFrame(t, 5)

	if _, err := NewDataset(f, LabelColumn, []string{"temp"}); err == nil {
		t.Fatal("expected error for float categorical, got nil")
	}
}
