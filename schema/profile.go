package schema

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// ============================================================================
// TABLE PROFILE — what a CSV table on disk actually holds
// ============================================================================
// Profile reads a whole table and reports, per column, the detected kind,
// the null and distinct counts, and a few samples. The CLI prints it for
// every table a run produced.
// ============================================================================

// Kind is the detected value type of a column.
type Kind string

const (
	KindString   Kind = "string"
	KindNumeric  Kind = "numeric"
	KindTemporal Kind = "temporal"
	KindBool     Kind = "bool"
)

// Role is how a column would be used in aggregation.
type Role string

const (
	RoleDimension  Role = "dimension"
	RoleMeasure    Role = "measure"
	RoleIdentifier Role = "identifier"
)

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name        string
	Kind        Kind
	Role        Role
	Nulls       int
	Unique      int
	Samples     []string
	Cardinality string // "low", "medium", "high"
}

// TableProfile describes a CSV table.
type TableProfile struct {
	Rows    int
	Columns []ColumnProfile
}

// Column returns the profile of a column by name.
func (p *TableProfile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

const maxSamples = 3

// Profile reads CSV data with a header row and profiles every column.
func Profile(data []byte) (*TableProfile, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty table")
		}
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}

	p := &TableProfile{Rows: len(rows), Columns: make([]ColumnProfile, len(headers))}
	for i, h := range headers {
		p.Columns[i] = profileColumn(strings.TrimSpace(h), i, rows)
	}
	return p, nil
}

func profileColumn(name string, index int, rows [][]string) ColumnProfile {
	col := ColumnProfile{Name: name, Kind: KindString, Role: RoleDimension}

	values := make([]string, 0, len(rows))
	unique := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			col.Nulls++
			continue
		}
		v := strings.TrimSpace(row[index])
		if isNull(v) {
			col.Nulls++
			continue
		}
		values = append(values, v)
		unique[v] = true
	}
	col.Unique = len(unique)

	switch {
	case col.Unique <= 10:
		col.Cardinality = "low"
	case col.Unique <= 100:
		col.Cardinality = "medium"
	default:
		col.Cardinality = "high"
	}
	if len(values) == 0 {
		return col
	}

	col.Samples = samples(unique, maxSamples)
	col.Kind = detectKind(values)
	col.Role = classifyRole(col, len(rows))
	return col
}

// classifyRole guesses dimension, measure or identifier from kind and
// cardinality.
func classifyRole(col ColumnProfile, totalRows int) Role {
	if col.Name == "id" || strings.HasSuffix(col.Name, "_id") {
		return RoleIdentifier
	}
	switch col.Kind {
	case KindNumeric:
		// Unique per row: an id.
		if col.Unique == totalRows && totalRows > 10 {
			return RoleIdentifier
		}
		// Few distinct values relative to rows: a coded dimension.
		ratio := float64(col.Unique) / float64(totalRows)
		if col.Unique < 20 && ratio < 0.3 {
			return RoleDimension
		}
		return RoleMeasure
	case KindString:
		if col.Unique > totalRows/2 && col.Unique > 50 {
			return RoleIdentifier
		}
	}
	return RoleDimension
}

// kindShare is the fraction of non-null values that must match a kind.
const kindShare = 0.8

// detectKind picks the first of bool, temporal and numeric that at least
// kindShare of values match.
func detectKind(values []string) Kind {
	var nums, times, bools int
	for _, v := range values {
		if isNumeric(v) {
			nums++
		}
		if isTemporal(v) {
			times++
		}
		if isBool(v) {
			bools++
		}
	}

	if len(values) == 0 {
		return KindString
	}
	share := func(n int) float64 { return float64(n) / float64(len(values)) }
	switch {
	case share(bools) >= kindShare:
		return KindBool
	case share(times) >= kindShare:
		return KindTemporal
	case share(nums) >= kindShare:
		return KindNumeric
	}
	return KindString
}

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "NaT":
		return true
	}
	return false
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

var temporalLayouts = []string{DateLayout, TimeLayout, time.RFC3339Nano}

// isTemporal accepts dates and timestamps; TimeLayout also matches
// fractional seconds.
func isTemporal(s string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "0", "1":
		return true
	}
	return false
}

func samples(unique map[string]bool, n int) []string {
	out := make([]string, 0, len(unique))
	for v := range unique {
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Describe writes the profile as an aligned text table.
func (p *TableProfile) Describe(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rows: %d, columns: %d\n", p.Rows, len(p.Columns))
	fmt.Fprintln(tw, "column\tkind\trole\tnulls\tunique\tsamples")
	for _, c := range p.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			c.Name, c.Kind, c.Role, c.Nulls, c.Unique, strings.Join(c.Samples, ", "))
	}
	return tw.Flush()
}
