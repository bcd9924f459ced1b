package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/usagesim/generator"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usagesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, uint64(42), cfg.Generator.Seed)
	assert.Equal(t, "data", cfg.Runtime.DataDir)
	assert.Equal(t, 2020, cfg.Clean.MinYear)
	assert.Equal(t, 2000, cfg.Chart.Options().Width)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeFile(t, `
runtime:
  out_dir: out
  sqlite_path: usage.db
generator:
  seed: 7
  users: 500
  start_date: 2024-03-01T00:00:00Z
  new_user_window: 72h
  session_count:
    max: 20
metrics:
  platforms: [web]
chart:
  width: 800
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Runtime.OutDir)
	assert.Equal(t, "data", cfg.Runtime.DataDir, "unset keys keep defaults")
	assert.Equal(t, "usage.db", cfg.Runtime.SQLitePath)
	assert.Equal(t, uint64(7), cfg.Generator.Seed)
	assert.Equal(t, 500, cfg.Generator.Users)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Generator.StartDate.UTC())
	assert.Equal(t, 72*time.Hour, cfg.Generator.NewUserWindow)
	assert.Equal(t, 20, cfg.Generator.SessionCount.Max)
	assert.Equal(t, generator.DefaultConfig().SessionCount.Min, cfg.Generator.SessionCount.Min)
	assert.Equal(t, []string{"web"}, cfg.Metrics.Options().Platforms)
	assert.Equal(t, 800, cfg.Chart.Options().Width)
	assert.Equal(t, 800, cfg.Chart.Options().Height)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "generator:\n  userz: 10\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "userz")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "generator:\n  seed: 7\n  users: 500\n")
	t.Setenv("USAGESIM_SEED", "99")
	t.Setenv("USAGESIM_TARGET_EVENTS", "1000")
	t.Setenv("USAGESIM_ENVIRONMENT", "production")
	t.Setenv("USAGESIM_DATA_DIR", "/tmp/raw")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.Generator.Seed)
	assert.Equal(t, 500, cfg.Generator.Users, "no USAGESIM_USERS, file value kept")
	assert.Equal(t, 1000, cfg.Generator.TargetEvents)
	assert.Equal(t, "production", cfg.Runtime.Environment)
	assert.Equal(t, "/tmp/raw", cfg.Runtime.DataDir)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("USAGESIM_USERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestManifest(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.Users = 50
	cfg.TargetSessions = 100
	cfg.TargetEvents = 400
	g, err := generator.NewGenerator(cfg, nil)
	require.NoError(t, err)
	ds := g.Generate()

	m, err := NewManifest(cfg, ds, "users.csv", "sessions.csv", "raw_events.csv")
	require.NoError(t, err)
	assert.Equal(t, len(ds.Events), m.Events)

	again, err := NewManifest(cfg, ds)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, again.RunID, "same config, same run id")

	other := cfg
	other.Seed = 43
	id, err := RunID(other)
	require.NoError(t, err)
	assert.NotEqual(t, m.RunID, id.String())

	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, m.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "run_id: "+m.RunID))

	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, back.RunID)
	assert.Equal(t, m.Files, back.Files)
	assert.Equal(t, cfg.NewUserWindow, back.Config.NewUserWindow)
}
