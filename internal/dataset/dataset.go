// v1
// internal/dataset/dataset.go

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrEmpty is returned when the source parses but holds no data rows.
var ErrEmpty = errors.New("dataset contains no data rows")

// Row maps a trimmed column name to the raw cell text of one record.
type Row map[string]string

// Dataset is the immutable, ordered set of rows loaded once at startup.
type Dataset struct {
	columns []string
	rows    []Row
}

// Load parses the CSV at path. The load is fatal on unreadable or
// unparsable input and on an empty dataset; individual cells are kept raw
// and degrade to defaults at read time instead.
func Load(path string, log *slog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse dataset %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s: %w", path, ErrEmpty)
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = strings.TrimSpace(c)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	log.Info("dataset loaded", "path", path, "rows", len(rows), "columns", len(columns))
	return &Dataset{columns: columns, rows: rows}, nil
}

// Len reports the number of data rows. Always >= 1 once loaded.
func (d *Dataset) Len() int { return len(d.rows) }

// At returns the row at the wrapped index i mod Len. Never out of bounds
// for non-negative i.
func (d *Dataset) At(i int) Row { return d.rows[i%len(d.rows)] }

// HasColumn reports whether the header carries the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Float reads a numeric cell, falling back to def for absent, blank or
// non-numeric values. Never fails.
func (r Row) Float(col string, def float64) float64 {
	v, ok := r[col]
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Str reads a string cell, falling back to def when absent.
func (r Row) Str(col string, def string) string {
	v, ok := r[col]
	if !ok {
		return def
	}
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
