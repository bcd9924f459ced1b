package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/usagesim/chart"
	"github.com/spektr-org/usagesim/clean"
	"github.com/spektr-org/usagesim/config"
	"github.com/spektr-org/usagesim/engine"
	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/helpers"
	"github.com/spektr-org/usagesim/metrics"
	"github.com/spektr-org/usagesim/schema"
	"github.com/spektr-org/usagesim/store"
)

// ============================================================================
// FILE LAYOUT
// ============================================================================

const (
	usersFile       = "users.csv"
	sessionsFile    = "sessions.csv"
	rawEventsFile   = "raw_events.csv"
	manifestFile    = "manifest.yaml"
	cleanEventsFile = "clean_events.csv"
	dauChartFile    = "dau_trend.png"
)

// stage is one step of the pipeline.
type stage func(ctx context.Context, cfg *config.Config, log *zap.Logger) error

// pipeline is the order "run" executes stages in.
var pipeline = []struct {
	name string
	run  stage
}{
	{"generate", runGenerate},
	{"clean", runClean},
	{"metrics", runMetrics},
	{"chart", runChart},
}

var stages = map[string]stage{
	"generate": runGenerate,
	"clean":    runClean,
	"metrics":  runMetrics,
	"chart":    runChart,
	"run":      runAll,
	"inspect":  runInspect,
}

// ============================================================================
// STAGES
// ============================================================================

// runGenerate writes users, sessions, raw events and the run manifest to the
// data dir, and mirrors them into SQLite when a path is configured.
func runGenerate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	g, err := generator.NewGenerator(cfg.Generator, log)
	if err != nil {
		return err
	}
	ds := g.Generate()

	dir := cfg.Runtime.DataDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	writes := []struct {
		name  string
		write func(io.Writer) error
	}{
		{usersFile, func(w io.Writer) error { return helpers.WriteUsers(w, ds.Users) }},
		{sessionsFile, func(w io.Writer) error { return helpers.WriteSessions(w, ds.Sessions) }},
		{rawEventsFile, func(w io.Writer) error { return helpers.WriteEvents(w, ds.Events) }},
	}
	files := make([]string, 0, len(writes))
	for _, wr := range writes {
		if err := writeFile(filepath.Join(dir, wr.name), wr.write); err != nil {
			return err
		}
		files = append(files, wr.name)
	}

	manifest, err := config.NewManifest(cfg.Generator, ds, files...)
	if err != nil {
		return err
	}
	if err := manifest.Write(filepath.Join(dir, manifestFile)); err != nil {
		return err
	}
	log.Info("saved raw tables",
		zap.String("dir", dir),
		zap.String("run_id", manifest.RunID),
		zap.Int("users", len(ds.Users)),
		zap.Int("sessions", len(ds.Sessions)),
		zap.Int("events", len(ds.Events)),
	)

	if cfg.Runtime.SQLitePath == "" {
		return nil
	}
	return exportSQLite(ctx, cfg.Runtime.SQLitePath, ds, log)
}

func exportSQLite(ctx context.Context, path string, ds *generator.Dataset, log *zap.Logger) (err error) {
	started := time.Now()
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(db); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := store.Export(ctx, db, ds); err != nil {
		return fmt.Errorf("sqlite export: %w", err)
	}
	counts, err := store.Count(ctx, db)
	if err != nil {
		return err
	}
	log.Info("exported to sqlite",
		zap.String("path", path),
		zap.Int64("users", counts.Users),
		zap.Int64("sessions", counts.Sessions),
		zap.Int64("events", counts.Events),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// runClean reads raw events from the data dir and writes clean events to the
// output dir.
func runClean(_ context.Context, cfg *config.Config, log *zap.Logger) error {
	raw, skipped, err := readEvents(filepath.Join(cfg.Runtime.DataDir, rawEventsFile))
	if err != nil {
		return err
	}

	events, report := clean.Clean(raw, cfg.Clean)
	log.Info("cleaned events", append(report.Fields(), zap.Int("unreadable_rows", skipped))...)

	if err := os.MkdirAll(cfg.Runtime.OutDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.Runtime.OutDir, err)
	}
	path := filepath.Join(cfg.Runtime.OutDir, cleanEventsFile)
	if err := writeFile(path, func(w io.Writer) error { return helpers.WriteEvents(w, events) }); err != nil {
		return err
	}
	log.Info("saved clean events", zap.String("path", path), zap.Int("events", len(events)))
	return nil
}

// runMetrics reads clean events and writes the four metric tables.
func runMetrics(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	raw, _, err := readEvents(filepath.Join(cfg.Runtime.OutDir, cleanEventsFile))
	if err != nil {
		return err
	}
	// Clean output passes the cleaner unchanged; this only types the rows.
	events, report := clean.Clean(raw, cfg.Clean)
	if report.Dropped() > 0 {
		log.Warn("clean events file had rows the cleaner rejects", report.Fields()...)
	}

	outputs, err := metrics.Build(ctx, events, cfg.Metrics.Options(), log)
	if err != nil {
		return err
	}
	if err := metrics.WriteAll(ctx, cfg.Runtime.OutDir, outputs); err != nil {
		return err
	}
	for _, out := range outputs {
		log.Info("saved metric table",
			zap.String("path", filepath.Join(cfg.Runtime.OutDir, out.FileName())),
			zap.Int("rows", len(out.Data.Rows)),
			zap.String("total", out.Total()),
		)
	}
	return nil
}

// runChart plots daily_dau.csv.
func runChart(_ context.Context, cfg *config.Config, log *zap.Logger) error {
	dauPath := filepath.Join(cfg.Runtime.OutDir, schema.DailyDAU.Name+".csv")
	data, err := os.ReadFile(dauPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", dauPath, err)
	}
	view, err := helpers.ParseCSVView(data, schema.DailyDAU)
	if err != nil {
		return fmt.Errorf("parse %s: %w", dauPath, err)
	}
	chartCfg, err := metrics.DAUChart(view)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Runtime.OutDir, dauChartFile)
	opts := cfg.Chart.Options()
	if err := writeFile(path, func(w io.Writer) error { return chart.RenderLine(chartCfg, w, opts) }); err != nil {
		return err
	}
	log.Info("saved chart", zap.String("path", path), zap.Int("points", len(chartCfg.Series[0].Data)))
	return nil
}

// runAll runs every stage in order.
func runAll(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	for _, st := range pipeline {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		if err := st.run(ctx, cfg, log); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
		log.Debug("stage done", zap.String("stage", st.name), zap.Duration("took", time.Since(started)))
	}
	return nil
}

// runInspect profiles every table present in the data and output dirs.
func runInspect(_ context.Context, cfg *config.Config, log *zap.Logger) error {
	paths := []string{
		filepath.Join(cfg.Runtime.DataDir, usersFile),
		filepath.Join(cfg.Runtime.DataDir, sessionsFile),
		filepath.Join(cfg.Runtime.DataDir, rawEventsFile),
		filepath.Join(cfg.Runtime.OutDir, cleanEventsFile),
	}
	for _, q := range metrics.Queries(metrics.Options{}) {
		paths = append(paths, filepath.Join(cfg.Runtime.OutDir, q.Table.Name+".csv"))
	}

	found := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		profile, err := schema.Profile(data)
		if err != nil {
			return fmt.Errorf("profile %s: %w", path, err)
		}
		found++
		fmt.Fprintf(inspectOut, "\n%s (%s rows)\n", path, engine.FormatInt(profile.Rows))
		if err := profile.Describe(inspectOut); err != nil {
			return err
		}
	}
	if found == 0 {
		return fmt.Errorf("no tables found in %s or %s", cfg.Runtime.DataDir, cfg.Runtime.OutDir)
	}
	log.Debug("inspected tables", zap.Int("tables", found))
	return nil
}

// inspectOut receives inspect reports.
var inspectOut io.Writer = os.Stdout

// ============================================================================
// FILE HELPERS
// ============================================================================

func readEvents(path string) ([]schema.RawEvent, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	events, skipped, err := helpers.ReadRawEvents(bufio.NewReader(f))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return events, skipped, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
