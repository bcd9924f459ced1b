package main

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/config"
	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/store"
)

func TestParseArgs(t *testing.T) {
	var f flags
	fs := newFlagSet(&f)
	fs.SetOutput(io.Discard)

	command, set, err := parseArgs(fs, []string{"--seed", "7", "metrics", "--platform", "web, desktop", "--out-dir", "out"})
	require.NoError(t, err)
	assert.Equal(t, "metrics", command)
	assert.True(t, set["seed"])
	assert.True(t, set["platform"])
	assert.False(t, set["users"])

	cfg := config.Default()
	f.apply(&cfg, set)
	assert.Equal(t, uint64(7), cfg.Generator.Seed)
	assert.Equal(t, []string{"web", "desktop"}, cfg.Metrics.Platforms)
	assert.Equal(t, "out", cfg.Runtime.OutDir)
	assert.Equal(t, config.Default().Generator.Users, cfg.Generator.Users, "unset flags leave config alone")
}

func TestParseArgs_Errors(t *testing.T) {
	var f flags
	fs := newFlagSet(&f)
	fs.SetOutput(io.Discard)
	_, _, err := parseArgs(fs, []string{"run", "extra"})
	assert.Error(t, err)

	fs = newFlagSet(&f)
	fs.SetOutput(io.Discard)
	_, _, err = parseArgs(fs, []string{"--nope"})
	assert.Error(t, err)

	fs = newFlagSet(&f)
	fs.SetOutput(io.Discard)
	command, _, err := parseArgs(fs, nil)
	require.NoError(t, err)
	assert.Empty(t, command)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"US", "GB"}, splitList(" US,,GB "))
	assert.Nil(t, splitList(""))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Runtime.DataDir = filepath.Join(root, "data")
	cfg.Runtime.OutDir = filepath.Join(root, "outputs")
	cfg.Generator.Users = 120
	cfg.Generator.TargetSessions = 300
	cfg.Generator.TargetEvents = 2000
	cfg.Chart.Width = 500
	cfg.Chart.Height = 200
	return &cfg
}

func TestRunAll(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runtime.SQLitePath = filepath.Join(t.TempDir(), "usage.db")

	require.NoError(t, runAll(context.Background(), cfg, zap.NewNop()))

	for _, name := range []string{usersFile, sessionsFile, rawEventsFile, manifestFile} {
		assert.FileExists(t, filepath.Join(cfg.Runtime.DataDir, name))
	}
	for _, name := range []string{
		cleanEventsFile, "daily_dau.csv", "daily_feature_users.csv",
		"sessions_per_user_day.csv", "events_per_session.csv", dauChartFile,
	} {
		assert.FileExists(t, filepath.Join(cfg.Runtime.OutDir, name))
	}

	// Generated events are clean already.
	raw, err := os.ReadFile(filepath.Join(cfg.Runtime.DataDir, rawEventsFile))
	require.NoError(t, err)
	cleaned, err := os.ReadFile(filepath.Join(cfg.Runtime.OutDir, cleanEventsFile))
	require.NoError(t, err)
	assert.Equal(t, strings.Count(string(raw), "\n"), strings.Count(string(cleaned), "\n"))

	dau, err := os.ReadFile(filepath.Join(cfg.Runtime.OutDir, "daily_dau.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dau), "event_date,DAU\n"))

	img, err := os.Open(filepath.Join(cfg.Runtime.OutDir, dauChartFile))
	require.NoError(t, err)
	defer img.Close()
	pc, err := png.DecodeConfig(img)
	require.NoError(t, err)
	assert.Equal(t, 500, pc.Width)

	manifest, err := config.ReadManifest(filepath.Join(cfg.Runtime.DataDir, manifestFile))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), manifest.Seed)

	db, err := store.Open(cfg.Runtime.SQLitePath)
	require.NoError(t, err)
	defer store.Close(db)
	counts, err := store.Count(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(manifest.Events), counts.Events)
}

func TestExportSQLite(t *testing.T) {
	cfg := testConfig(t)
	g, err := generator.NewGenerator(cfg.Generator, nil)
	require.NoError(t, err)
	ds := g.Generate()

	path := filepath.Join(t.TempDir(), "usage.db")
	require.NoError(t, exportSQLite(context.Background(), path, ds, zap.NewNop()))
	require.NoError(t, exportSQLite(context.Background(), path, ds, zap.NewNop()), "re-export after close")

	db, err := store.Open(path)
	require.NoError(t, err)
	counts, err := store.Count(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, store.Close(db))
	assert.Equal(t, int64(len(ds.Sessions)), counts.Sessions)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := testConfig(t), testConfig(t)
	require.NoError(t, runGenerate(context.Background(), a, zap.NewNop()))
	require.NoError(t, runGenerate(context.Background(), b, zap.NewNop()))

	for _, name := range []string{usersFile, sessionsFile, rawEventsFile, manifestFile} {
		da, err := os.ReadFile(filepath.Join(a.Runtime.DataDir, name))
		require.NoError(t, err)
		db, err := os.ReadFile(filepath.Join(b.Runtime.DataDir, name))
		require.NoError(t, err)
		assert.Equal(t, da, db, name)
	}
}

func TestStages_MissingInputs(t *testing.T) {
	cfg := testConfig(t)
	assert.Error(t, runClean(context.Background(), cfg, zap.NewNop()))
	assert.Error(t, runMetrics(context.Background(), cfg, zap.NewNop()))
	assert.Error(t, runChart(context.Background(), cfg, zap.NewNop()))
}

func TestRunAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, runAll(ctx, testConfig(t), zap.NewNop()), context.Canceled)
}

func TestInspect(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	inspectOut = &buf
	t.Cleanup(func() { inspectOut = os.Stdout })

	assert.Error(t, runInspect(context.Background(), cfg, zap.NewNop()), "nothing generated yet")

	require.NoError(t, runGenerate(context.Background(), cfg, zap.NewNop()))
	require.NoError(t, runInspect(context.Background(), cfg, zap.NewNop()))
	out := buf.String()
	assert.Contains(t, out, rawEventsFile)
	assert.Regexp(t, `users\.csv \(120 rows\)`, out)
	assert.Regexp(t, `event_time\s+temporal`, out)
	assert.NotContains(t, out, cleanEventsFile)
}

func TestStagesTable(t *testing.T) {
	for _, name := range []string{"generate", "clean", "metrics", "chart", "run", "inspect"} {
		assert.Contains(t, stages, name)
	}
	assert.Len(t, pipeline, 4)
}
