package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — Dispatcher
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Normalize the QuerySpec
//   2. Apply filters from QuerySpec → SubView
//   3. Group and aggregate
//   4. Dispatch to builder (chart / table)
//   5. Return Result
//
// Zero data copy — the engine reads consumer data through RecordView.
// ============================================================================

// Execute runs a QuerySpec against a RecordView and returns a render-ready Result.
//
// Options:
//   - WithDefaultMeasure(key) — sets the measure when QuerySpec.Measure is empty
//   - WithLogger(log) — structured execution logs
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	spec = NormalizeQuerySpec(spec)

	if len(spec.GroupBy) > 2 {
		return nil, fmt.Errorf("groupBy supports at most 2 dimensions, got %d", len(spec.GroupBy))
	}
	if spec.Intent != "table" && spec.Intent != "chart" {
		return nil, fmt.Errorf("unsupported intent %q", spec.Intent)
	}

	// Resolve which measure to aggregate
	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}
	if measure == "" && spec.Aggregation != "count" && spec.Aggregation != "none" {
		return nil, fmt.Errorf("query %q: no measure for aggregation %q", spec.Title, spec.Aggregation)
	}

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec.Filters)

	cfg.Logger.Debug("executing query",
		zap.String("title", spec.Title),
		zap.String("intent", spec.Intent),
		zap.String("aggregation", spec.Aggregation),
		zap.String("measure", measure),
		zap.Strings("group_by", spec.GroupBy),
		zap.Int("records", view.Len()),
		zap.Int("filtered", filtered.Len()),
	)

	result := &Result{
		Success:     true,
		Title:       spec.Title,
		RecordCount: filtered.Len(),
	}

	// 2. Group and aggregate
	groups := GroupAndAggregate(filtered, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)

	// 3. Dispatch to builder
	switch spec.Intent {
	case "chart":
		result.Type = "chart"
		result.ChartConfig = BuildChart(spec, groups)
		if result.ChartConfig == nil {
			result.Type = "empty"
			result.Reply = "Not enough data to generate a chart."
		}
	case "table":
		// Tables are written even when empty so downstream readers see the header.
		result.Type = "table"
		result.TableData = BuildTable(spec, groups)
		if filtered.Len() == 0 {
			result.Reply = "No records match the query filters."
		}
	}

	return result, nil
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

// NormalizeQuerySpec applies deterministic rules to keep specs renderable.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	// Rule 1: "table" visualization means a table intent
	if spec.Visualize == "table" {
		spec.Intent = "table"
	}

	// Rule 2: Charts must have a groupBy dimension
	if spec.Intent == "chart" && len(spec.GroupBy) == 0 {
		spec.Intent = "table"
		spec.Visualize = "table"
	}

	// Rule 3: a missing sort keeps keys in natural order
	if spec.SortBy == "" {
		spec.SortBy = "key_asc"
	}

	return spec
}
