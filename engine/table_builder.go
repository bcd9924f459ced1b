package engine

import (
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from QuerySpec + Groups
// ============================================================================
// One column per groupBy dimension, then the aggregated value. With two
// groupBy dimensions every (group, sub-group) pair becomes a row, which is
// the long format a groupby-then-reset-index produces.
// ============================================================================

// BuildTable produces a TableData from a QuerySpec and its groups.
func BuildTable(spec QuerySpec, groups []Group) *TableData {
	columns := make([]Column, 0, len(spec.GroupBy)+1)
	for _, key := range spec.GroupBy {
		columns = append(columns, Column{
			Key:   key,
			Label: LabelForDimension(key),
			Type:  "text",
			Align: "left",
		})
	}

	valueKey := spec.ValueColumn
	if valueKey == "" {
		valueKey = "value"
	}
	columns = append(columns, Column{
		Key:   valueKey,
		Label: LabelForAggregation(spec.Aggregation),
		Type:  "number",
		Align: "right",
	})

	table := &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    [][]string{},
	}
	if len(groups) == 0 {
		return table
	}

	var total float64
	nested := len(spec.GroupBy) >= 2
	for _, g := range groups {
		if !nested {
			table.Rows = append(table.Rows, []string{g.Label, FormatNumber(g.Value)})
			total += g.Value
			continue
		}
		for _, sg := range g.SubGroups {
			table.Rows = append(table.Rows, []string{g.Label, sg.Label, FormatNumber(sg.Value)})
			total += sg.Value
		}
	}
	if len(spec.GroupBy) == 0 {
		// The single "Total" group has no dimension column.
		for i, row := range table.Rows {
			table.Rows[i] = row[1:]
		}
	}

	table.Summary = &Summary{
		Label: "Total (" + strconv.Itoa(len(table.Rows)) + " rows)",
		Values: map[string]string{
			valueKey: FormatNumber(total),
		},
	}
	return table
}
