// Package reconcile compares the numeric properties written in fragments
// against the values kept in a tracking spreadsheet and optionally rewrites
// the fragments to match.
package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"grfbuild/internal/diag"
)

// Aggregate picks one value from the rows sharing a unit id.
type Aggregate string

const (
	Max Aggregate = "max"
	Min Aggregate = "min"
)

// Field maps a spreadsheet column onto a fragment property.
type Field struct {
	Column   string
	Property string
	Agg      Aggregate
}

// DefaultFields is the column layout of the BR tracking spreadsheet.
func DefaultFields() []Field {
	return []Field{
		{Column: "Cost Factor", Property: "cost_factor", Agg: Max},
		{Column: "Running Cost Factor", Property: "running_cost_factor", Agg: Max},
		{Column: "Air Drag Coefficient", Property: "air_drag_coefficient", Agg: Min},
		{Column: "Tractive Effort Coefficient", Property: "tractive_effort_coefficient", Agg: Max},
	}
}

// Values holds the aggregated spreadsheet: unit id -> property -> value.
type Values map[string]map[string]float64

// LoadCSV reads the spreadsheet export at path.
func LoadCSV(path, idColumn string, fields []Field) (Values, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Wrap(diag.ReadFailed, path, err)
	}
	defer f.Close()
	vals, err := ReadCSV(f, idColumn, fields)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, err
	}
	return vals, nil
}

// ReadCSV groups rows by idColumn and aggregates every field. Column names
// match case-insensitively; a leading byte order mark is ignored. Rows
// without an id and cells that are not numbers are skipped.
func ReadCSV(r io.Reader, idColumn string, fields []Field) (Values, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, diag.Errorf(diag.InvalidSpreadsheet, "", "spreadsheet is empty")
		}
		return nil, diag.Wrap(diag.InvalidSpreadsheet, "", err)
	}

	fold := cases.Fold()
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := fold.String(strings.TrimSpace(h))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}
	lookup := func(name string) (int, error) {
		i, ok := columns[fold.String(strings.TrimSpace(name))]
		if !ok {
			return 0, diag.Errorf(diag.InvalidSpreadsheet, "", "missing column %q", name)
		}
		return i, nil
	}

	idIdx, err := lookup(idColumn)
	if err != nil {
		return nil, err
	}
	fieldIdx := make([]int, len(fields))
	for i, f := range fields {
		if fieldIdx[i], err = lookup(f.Column); err != nil {
			return nil, err
		}
	}

	out := make(Values)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, diag.Wrap(diag.InvalidSpreadsheet, "", err)
		}
		id := strings.TrimSpace(cell(row, idIdx))
		if id == "" {
			continue
		}
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell(row, fieldIdx[i])), 64)
			if err != nil || math.IsNaN(v) {
				continue
			}
			unit := out[id]
			if unit == nil {
				unit = make(map[string]float64, len(fields))
				out[id] = unit
			}
			prev, seen := unit[f.Property]
			switch {
			case !seen:
				unit[f.Property] = v
			case f.Agg == Min && v < prev:
				unit[f.Property] = v
			case f.Agg != Min && v > prev:
				unit[f.Property] = v
			}
		}
		if _, ok := out[id]; !ok {
			// A unit with no numeric cell still counts as known.
			out[id] = map[string]float64{}
		}
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ParseAggregate accepts "max" or "min".
func ParseAggregate(s string) (Aggregate, error) {
	switch Aggregate(strings.ToLower(strings.TrimSpace(s))) {
	case Max, "":
		return Max, nil
	case Min:
		return Min, nil
	}
	return "", fmt.Errorf("unknown aggregate %q (expected max|min)", s)
}
