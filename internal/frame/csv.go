package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV reads an entire CSV file into a Frame.
//
// The first record is the header. Every cell must parse as a number: a column
// whose cells all parse as int64 becomes an integer column, otherwise every
// cell must parse as float64. An empty cell is a parse error, which enforces
// the no-null invariant at the ingestion boundary.
//
// Failures propagate to the caller unchanged; there is no recovery or
// row-skipping here.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	return readCSV(file, path)
}

func readCSV(r io.Reader, name string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0 // every record must match the header width

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%s: header has no columns", name)
	}

	raw := make([][]string, len(header))
	rows := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", name, rows+1, err)
		}
		for j, cell := range rec {
			raw[j] = append(raw[j], cell)
		}
		rows++
	}

	cols := make([]Column, len(header))
	for j, colName := range header {
		col, err := parseColumn(colName, raw[j])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cols[j] = col
	}
	return New(cols)
}

// parseColumn types a column: integer if every cell is an integer literal,
// floating-point otherwise. A cell that parses as neither is an error.
func parseColumn(name string, cells []string) (Column, error) {
	ints := make([]int64, len(cells))
	isInt := true
	for i, cell := range cells {
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			isInt = false
			break
		}
		ints[i] = v
	}
	if isInt {
		return Column{Name: name, Kind: KindInt, Ints: ints}, nil
	}

	floats := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Column{}, fmt.Errorf("column %q row %d: cannot parse %q as a number", name, i+1, cell)
		}
		floats[i] = v
	}
	return Column{Name: name, Kind: KindFloat, Floats: floats}, nil
}
