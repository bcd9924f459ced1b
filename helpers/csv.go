package helpers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/usagesim/engine"
	"github.com/spektr-org/usagesim/schema"
)

// ============================================================================
// CSV HELPER — Parses metric tables into []engine.Record
// ============================================================================
// The chart stage reads daily_dau.csv back from disk. This helper converts
// the raw bytes into generic Records using the table schema.
// ============================================================================

// ParseCSV parses CSV bytes into Records using schema for classification.
// Each row becomes a Record with dimensions (string) and measures (numeric).
// Malformed rows are skipped; a header missing schema columns is an error.
func ParseCSV(data []byte, sch schema.Config) ([]engine.Record, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	idx, err := sch.IndexHeader(headers)
	if err != nil {
		return nil, err
	}

	// Read rows
	var records []engine.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		rec := engine.Record{
			Dimensions: make(map[string]string, len(sch.Dimensions)),
			Measures:   make(map[string]float64, len(sch.Measures)),
		}

		valid := true
		for _, d := range sch.Dimensions {
			rec.Dimensions[d.Key] = field(row, idx[d.Key])
		}
		for _, m := range sch.Measures {
			f, err := strconv.ParseFloat(field(row, idx[m.Key]), 64)
			if err != nil {
				valid = false
				break
			}
			rec.Measures[m.Key] = f
		}
		if valid {
			records = append(records, rec)
		}
	}

	return records, nil
}

// ParseCSVView parses CSV into a RecordView (convenience wrapper).
func ParseCSVView(data []byte, sch schema.Config) (engine.RecordView, error) {
	records, err := ParseCSV(data, sch)
	if err != nil {
		return nil, err
	}
	return engine.NewSliceView(records), nil
}

// WriteTableCSV writes a TableData as CSV: column keys, then rows.
func WriteTableCSV(w io.Writer, table *engine.TableData) error {
	if table == nil {
		return errors.New("nil table")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(table.ColumnKeys()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
