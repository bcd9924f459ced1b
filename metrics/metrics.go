// Package metrics derives the aggregate tables from clean events.
//
// Every table is a declarative engine.QuerySpec executed over one bound view
// of the events, so adding a table means adding a Query, not a loop.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/usagesim/engine"
	"github.com/spektr-org/usagesim/helpers"
	"github.com/spektr-org/usagesim/schema"
)

// ============================================================================
// EVENT VIEW
// ============================================================================

var eventAdapter = engine.NewDomainAdapter[schema.Event]().
	Dimension("event_id", func(e schema.Event) string { return e.EventID }).
	Dimension("event_date", func(e schema.Event) string { return e.EventDate() }).
	Dimension("user_id", func(e schema.Event) string { return strconv.Itoa(e.UserID) }).
	Dimension("session_id", func(e schema.Event) string { return e.SessionID }).
	Dimension("event_type", func(e schema.Event) string { return e.EventType }).
	Dimension("feature", func(e schema.Event) string { return e.Feature }).
	Dimension("platform", func(e schema.Event) string { return e.Platform }).
	Dimension("country", func(e schema.Event) string { return e.Country }).
	Dimension("is_new_user", func(e schema.Event) string { return helpers.FormatBool(e.IsNewUser) })

// EventsView binds events as a RecordView without copying them.
func EventsView(events []schema.Event) engine.RecordView {
	return eventAdapter.Bind(events)
}

// ============================================================================
// QUERIES
// ============================================================================

// Query pairs an output table schema with the spec that computes it.
type Query struct {
	Table schema.Config
	Spec  engine.QuerySpec
}

// Options restrict every table to a subset of events.
type Options struct {
	Platforms []string
	Countries []string
}

// Filters converts the options into engine filters.
func (o Options) Filters() engine.Filters {
	f := engine.Filters{Dimensions: map[string][]string{}}
	if len(o.Platforms) > 0 {
		f.Dimensions["platform"] = o.Platforms
	}
	if len(o.Countries) > 0 {
		f.Dimensions["country"] = o.Countries
	}
	return f
}

// Queries returns the four metric tables in output order.
func Queries(opts Options) []Query {
	filters := opts.Filters()
	table := func(sch schema.Config, aggregation, measure string, groupBy ...string) Query {
		return Query{
			Table: sch,
			Spec: engine.QuerySpec{
				Intent:      "table",
				Filters:     filters,
				Aggregation: aggregation,
				Measure:     measure,
				GroupBy:     groupBy,
				SortBy:      "key_asc",
				Title:       sch.Name,
				ValueColumn: sch.MeasureKeys()[0],
			},
		}
	}

	return []Query{
		table(schema.DailyDAU, "distinct", "user_id", "event_date"),
		table(schema.DailyFeatureUsers, "distinct", "user_id", "event_date", "feature"),
		table(schema.SessionsPerUserDay, "distinct", "session_id", "event_date", "user_id"),
		table(schema.EventsPerSession, "count", "", "session_id"),
	}
}

// ============================================================================
// BUILD
// ============================================================================

// Output is one computed metric table.
type Output struct {
	Table schema.Config
	Data  *engine.TableData
}

// FileName is the CSV file the table is written to.
func (o Output) FileName() string {
	return o.Table.Name + ".csv"
}

// Total is the formatted sum of the value column, "0" for an empty table.
func (o Output) Total() string {
	if o.Data == nil || o.Data.Summary == nil {
		return "0"
	}
	if v, ok := o.Data.Summary.Values[o.Table.GetDefaultMeasure()]; ok {
		return v
	}
	return "0"
}

// MissingFilterValues lists "dimension=value" filters that no event carries.
func MissingFilterValues(view engine.RecordView, opts Options) []string {
	filters := opts.Filters()
	var missing []string
	for _, dim := range []string{"platform", "country"} {
		present := make(map[string]bool)
		for _, v := range engine.UniqueValues(view, dim) {
			present[strings.ToLower(v)] = true
		}
		for _, want := range filters.Dimensions[dim] {
			if !present[strings.ToLower(want)] {
				missing = append(missing, dim+"="+want)
			}
		}
	}
	return missing
}

// Build runs every query against events. Queries share the read-only view
// and run concurrently; outputs keep Queries order.
func Build(ctx context.Context, events []schema.Event, opts Options, log *zap.Logger) ([]Output, error) {
	if log == nil {
		log = zap.NewNop()
	}
	view := EventsView(events)
	queries := Queries(opts)
	outputs := make([]Output, len(queries))

	for _, missing := range MissingFilterValues(view, opts) {
		log.Warn("filter value matches no events", zap.String("filter", missing))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := engine.Execute(q.Spec, view, engine.WithLogger(log))
			if err != nil {
				return fmt.Errorf("%s: %w", q.Table.Name, err)
			}
			if got, want := result.TableData.ColumnKeys(), q.Table.Columns(); !slices.Equal(got, want) {
				return fmt.Errorf("%s: columns %v, want %v", q.Table.Name, got, want)
			}
			outputs[i] = Output{Table: q.Table, Data: result.TableData}
			log.Debug("metric table built",
				zap.String("table", q.Table.Name),
				zap.Int("records", result.RecordCount),
				zap.Int("rows", len(result.TableData.Rows)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// WriteAll writes each output to dir concurrently.
func WriteAll(ctx context.Context, dir string, outputs []Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, out := range outputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeTable(filepath.Join(dir, out.FileName()), out.Data)
		})
	}
	return g.Wait()
}

func writeTable(path string, table *engine.TableData) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := helpers.WriteTableCSV(f, table); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ============================================================================
// DAU CHART
// ============================================================================

// DAUChartSpec plots daily_dau as one line over dates.
var DAUChartSpec = engine.QuerySpec{
	Intent:      "chart",
	Aggregation: "sum",
	GroupBy:     []string{"event_date"},
	SortBy:      "date_asc",
	Visualize:   "line",
	Title:       "Daily Active Users (DAU)",
	ValueColumn: "DAU",
	XLabel:      "Date",
	YLabel:      "DAU",
}

// DAUChart builds the chart config from a daily_dau view. The plotted
// measure is the table's default measure.
func DAUChart(view engine.RecordView) (*engine.ChartConfig, error) {
	result, err := engine.Execute(DAUChartSpec, view, engine.WithDefaultMeasure(schema.DailyDAU.GetDefaultMeasure()))
	if err != nil {
		return nil, fmt.Errorf("dau chart: %w", err)
	}
	if result.ChartConfig == nil {
		return nil, fmt.Errorf("dau chart: %s", result.Reply)
	}
	return result.ChartConfig, nil
}
