package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/helpers"
	"github.com/spektr-org/usagesim/schema"
)

func ev(id string, user int, session string, ts time.Time, eventType, platform string) schema.Event {
	return schema.Event{
		EventID: id, UserID: user, SessionID: session, EventTime: ts,
		EventType: eventType, Feature: generator.FeatureFor(eventType),
		Platform: platform, Country: "US",
	}
}

func sampleEvents() []schema.Event {
	d1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return []schema.Event{
		ev("e_1", 10, "s_10", d2, "edit_layer", "web"),
		ev("e_2", 2, "s_2", d1, "login", "web"),
		ev("e_3", 2, "s_2", d1.Add(time.Minute), "edit_layer", "web"),
		ev("e_4", 2, "s_3", d1.Add(time.Hour), "add_comment", "desktop"),
		ev("e_5", 1, "s_1", d1, "edit_layer", "desktop"),
		ev("e_6", 1, "s_1", d2, "edit_layer", "desktop"),
	}
}

func build(t *testing.T, events []schema.Event, opts Options) map[string][][]string {
	t.Helper()
	outputs, err := Build(context.Background(), events, opts, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, outputs, 4)
	rows := make(map[string][][]string, len(outputs))
	for _, out := range outputs {
		assert.Equal(t, out.Table.Columns(), out.Data.ColumnKeys())
		rows[out.Table.Name] = out.Data.Rows
	}
	return rows
}

func TestBuild_DAU(t *testing.T) {
	// Users 1 and 2 on day one; users 1 and 10 on day two.
	rows := build(t, sampleEvents(), Options{})
	assert.Equal(t, [][]string{
		{"2024-01-01", "2"},
		{"2024-01-02", "2"},
	}, rows["daily_dau"])
}

func TestBuild_DAUExample(t *testing.T) {
	// Three users on 2024-01-05, one of them twice.
	day := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	events := []schema.Event{
		ev("e_1", 1, "s_1", day, "login", "web"),
		ev("e_2", 2, "s_2", day, "login", "web"),
		ev("e_3", 3, "s_3", day, "login", "web"),
		ev("e_4", 3, "s_3", day.Add(time.Minute), "logout", "web"),
	}
	rows := build(t, events, Options{})
	assert.Equal(t, [][]string{{"2024-01-05", "3"}}, rows["daily_dau"])
}

func TestBuild_FeatureUsers(t *testing.T) {
	rows := build(t, sampleEvents(), Options{})
	assert.Equal(t, [][]string{
		{"2024-01-01", "auth", "1"},
		{"2024-01-01", "comments", "1"},
		{"2024-01-01", "editor", "2"},
		{"2024-01-02", "editor", "2"},
	}, rows["daily_feature_users"])
}

func TestBuild_SessionsPerUserDay(t *testing.T) {
	rows := build(t, sampleEvents(), Options{})
	// user_id sorts numerically: 2 before 10.
	assert.Equal(t, [][]string{
		{"2024-01-01", "1", "1"},
		{"2024-01-01", "2", "2"},
		{"2024-01-02", "1", "1"},
		{"2024-01-02", "10", "1"},
	}, rows["sessions_per_user_day"])
}

func TestBuild_EventsPerSession(t *testing.T) {
	rows := build(t, sampleEvents(), Options{})
	// session_id sorts byte-wise: s_10 before s_2.
	assert.Equal(t, [][]string{
		{"s_1", "2"},
		{"s_10", "1"},
		{"s_2", "2"},
		{"s_3", "1"},
	}, rows["events_per_session"])
}

func TestBuild_Filters(t *testing.T) {
	rows := build(t, sampleEvents(), Options{Platforms: []string{"desktop"}})
	assert.Equal(t, [][]string{
		{"2024-01-01", "2"},
		{"2024-01-02", "1"},
	}, rows["daily_dau"])
	assert.Equal(t, [][]string{{"s_1", "2"}, {"s_3", "1"}}, rows["events_per_session"])

	rows = build(t, sampleEvents(), Options{Countries: []string{"BR"}})
	assert.Empty(t, rows["daily_dau"])
}

func TestBuild_Empty(t *testing.T) {
	rows := build(t, nil, Options{})
	for name, r := range rows {
		assert.Empty(t, r, name)
	}
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, sampleEvents(), Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_WarnsOnUnmatchedFilter(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	_, err := Build(context.Background(), sampleEvents(), Options{Platforms: []string{"WEB"}, Countries: []string{"BR"}}, zap.New(core))
	require.NoError(t, err)

	warned := logs.FilterMessage("filter value matches no events").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "country=BR", warned[0].ContextMap()["filter"])
}

func TestMissingFilterValues(t *testing.T) {
	view := EventsView(sampleEvents())
	assert.Empty(t, MissingFilterValues(view, Options{}))
	assert.Empty(t, MissingFilterValues(view, Options{Platforms: []string{"desktop", "Web"}, Countries: []string{"US"}}))
	assert.Equal(t, []string{"platform=ios", "country=BR", "country=JP"},
		MissingFilterValues(view, Options{Platforms: []string{"web", "ios"}, Countries: []string{"BR", "JP"}}))
}

func TestOutput_Total(t *testing.T) {
	outputs, err := Build(context.Background(), sampleEvents(), Options{}, nil)
	require.NoError(t, err)
	totals := make(map[string]string, len(outputs))
	for _, out := range outputs {
		totals[out.Table.Name] = out.Total()
	}
	assert.Equal(t, "4", totals["daily_dau"])
	assert.Equal(t, "6", totals["events_per_session"])

	empty, err := Build(context.Background(), nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0", empty[0].Total())
}

func TestOptions_Filters(t *testing.T) {
	assert.True(t, Options{}.Filters().IsEmpty())
	f := Options{Platforms: []string{"web"}, Countries: []string{"US", "GB"}}.Filters()
	assert.True(t, f.HasFilter("platform"))
	assert.Equal(t, []string{"US", "GB"}, f.Dimensions["country"])
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	outputs, err := Build(context.Background(), sampleEvents(), Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, WriteAll(context.Background(), dir, outputs))

	data, err := os.ReadFile(filepath.Join(dir, "daily_dau.csv"))
	require.NoError(t, err)
	assert.Equal(t, "event_date,DAU\n2024-01-01,2\n2024-01-02,2\n", string(data))

	for _, name := range []string{"daily_feature_users.csv", "sessions_per_user_day.csv", "events_per_session.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, WriteAll(ctx, t.TempDir(), outputs), context.Canceled)
}

func TestDAUChart(t *testing.T) {
	view, err := helpers.ParseCSVView([]byte("event_date,DAU\n2024-01-02,7\n2024-01-01,5\n"), schema.DailyDAU)
	require.NoError(t, err)

	cfg, err := DAUChart(view)
	require.NoError(t, err)
	assert.Equal(t, "line", cfg.ChartType)
	assert.Equal(t, "Daily Active Users (DAU)", cfg.Title)
	assert.Equal(t, "Date", cfg.XAxis)
	assert.Equal(t, "DAU", cfg.YAxis)
	require.Len(t, cfg.Series, 1)
	assert.Equal(t, "DAU", cfg.Series[0].Name)
	require.Len(t, cfg.Series[0].Data, 2)
	assert.Equal(t, "2024-01-01", cfg.Series[0].Data[0].Label)
	assert.Equal(t, 5.0, cfg.Series[0].Data[0].Value)

	empty, err := helpers.ParseCSVView([]byte("event_date,DAU\n"), schema.DailyDAU)
	require.NoError(t, err)
	_, err = DAUChart(empty)
	assert.Error(t, err)

	assert.Empty(t, DAUChartSpec.Measure, "measure comes from the daily_dau schema")
}

func TestBuild_GeneratedTotals(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.Users = 100
	cfg.TargetSessions = 200
	cfg.TargetEvents = 1200
	g, err := generator.NewGenerator(cfg, zap.NewNop())
	require.NoError(t, err)
	ds := g.Generate()

	rows := build(t, ds.Events, Options{})

	total := 0
	for _, r := range rows["events_per_session"] {
		n, err := strconv.Atoi(r[1])
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, len(ds.Events), total)

	days := make(map[string]bool)
	for _, e := range ds.Events {
		days[e.EventDate()] = true
	}
	assert.Len(t, rows["daily_dau"], len(days))
}
