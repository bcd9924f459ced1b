package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the shape of every table the pipeline reads or writes
// ============================================================================
// The generator writes users/sessions/events with a fixed column order.
// The cleaner keeps the events shape. The metrics builder emits four tables
// whose columns are their dimensions followed by their measures.
// helpers.ParseCSV uses the dimension/measure split to build engine Records.
// ============================================================================

// Config describes the complete shape of a table.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Header pins the CSV column order. Empty means dimensions then measures.
	Header []string `json:"header,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`
}

// DimensionMeta describes a string field used for grouping/filtering.
type DimensionMeta struct {
	Key            string `json:"key"`
	DisplayName    string `json:"displayName"`
	IsTemporal     bool   `json:"isTemporal,omitempty"`
	TemporalFormat string `json:"temporalFormat,omitempty"` // Go time layout
	IsIdentifier   bool   `json:"isIdentifier,omitempty"`
}

// MeasureMeta describes a numeric field used for aggregation.
type MeasureMeta struct {
	Key                string `json:"key"`
	DisplayName        string `json:"displayName"`
	Unit               string `json:"unit,omitempty"` // "users", "sessions", "events"
	DefaultAggregation string `json:"defaultAggregation,omitempty"`
}

// DefaultDimension creates a DimensionMeta with sensible defaults.
func DefaultDimension(key, displayName string) DimensionMeta {
	return DimensionMeta{
		Key:         key,
		DisplayName: displayName,
	}
}

// DefaultMeasure creates a MeasureMeta with sensible defaults.
func DefaultMeasure(key, displayName, unit string) MeasureMeta {
	return MeasureMeta{
		Key:                key,
		DisplayName:        displayName,
		Unit:               unit,
		DefaultAggregation: "sum",
	}
}

// GetDefaultMeasure returns the first measure's key, or "" when there is none.
func (c Config) GetDefaultMeasure() string {
	if len(c.Measures) > 0 {
		return c.Measures[0].Key
	}
	return ""
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Columns returns the CSV header for the table.
func (c Config) Columns() []string {
	if len(c.Header) > 0 {
		return append([]string(nil), c.Header...)
	}
	return append(c.DimensionKeys(), c.MeasureKeys()...)
}

// Dimension looks up a dimension by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// IndexHeader maps every schema column to its position in header.
// Extra header columns are ignored; a missing schema column is an error.
func (c Config) IndexHeader(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	idx := make(map[string]int)
	var missing []string
	for _, col := range c.Columns() {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("table %s: missing columns %s", c.Name, strings.Join(missing, ", "))
	}
	return idx, nil
}
