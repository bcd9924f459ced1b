package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spektr-org/usagesim/config"
	"github.com/spektr-org/usagesim/logger"
)

// ============================================================================
// USAGESIM CLI — synthetic design-tool telemetry, end to end
// ============================================================================

const version = "0.1.0"

// flags are the command-line overrides. They apply after the config file and
// the environment, and only when set.
type flags struct {
	configPath  string
	dataDir     string
	outDir      string
	sqlitePath  string
	seed        uint64
	users       int
	events      int
	platforms   string
	countries   string
	showVersion bool
}

func newFlagSet(f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet("usagesim", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&f.dataDir, "data-dir", "", "Directory for users, sessions and raw events")
	fs.StringVar(&f.outDir, "out-dir", "", "Directory for clean events, metric tables and the chart")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "Also export generated tables to this SQLite file")
	fs.Uint64Var(&f.seed, "seed", 0, "Random seed")
	fs.IntVar(&f.users, "users", 0, "Number of users to generate")
	fs.IntVar(&f.events, "events", 0, "Target number of events (0 keeps all)")
	fs.StringVar(&f.platforms, "platform", "", "Comma-separated platforms to keep in metrics")
	fs.StringVar(&f.countries, "country", "", "Comma-separated countries to keep in metrics")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `usagesim — synthetic product analytics for a collaborative design tool

Usage:
  usagesim [flags] <generate|clean|metrics|chart|run|inspect> [flags]

Commands:
  generate  write users.csv, sessions.csv, raw_events.csv and manifest.yaml
  clean     raw_events.csv -> clean_events.csv
  metrics   clean_events.csv -> daily_dau, daily_feature_users,
            sessions_per_user_day, events_per_session
  chart     daily_dau.csv -> dau_trend.png
  run       all of the above
  inspect   profile every table found in the data and output dirs

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Environment:
  USAGESIM_ENVIRONMENT    development (default) or production logging
  USAGESIM_DATA_DIR       same as --data-dir
  USAGESIM_OUT_DIR        same as --out-dir
  USAGESIM_SQLITE_PATH    same as --sqlite
  USAGESIM_SEED           same as --seed
  USAGESIM_USERS          same as --users
  USAGESIM_TARGET_EVENTS  same as --events

Examples:
  usagesim run
  usagesim --seed 7 --users 500 generate
  usagesim metrics --platform web --country US,GB
`)
	}
	return fs
}

func main() {
	var f flags
	fs := newFlagSet(&f)
	command, set, err := parseArgs(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if f.showVersion {
		fmt.Printf("usagesim %s\n", version)
		os.Exit(0)
	}

	run, ok := stages[command]
	if !ok {
		if command == "" {
			fmt.Fprintln(os.Stderr, "Error: a command is required")
		} else {
			fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		}
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fatalf("%v", err)
	}
	f.apply(cfg, set)

	log, err := logger.New(cfg.Runtime.Environment)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		_ = log.Sync()
		stop()
		fatalf("%s: %v", command, err)
	}
}

// parseArgs accepts flags before and after the command and reports which
// flags were given.
func parseArgs(fs *flag.FlagSet, args []string) (string, map[string]bool, error) {
	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}
	var command string
	if rest := fs.Args(); len(rest) > 0 {
		command = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return "", nil, err
		}
		if extra := fs.Args(); len(extra) > 0 {
			fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(extra, " "))
			return "", nil, fmt.Errorf("unexpected arguments %v", extra)
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return command, set, nil
}

// apply copies the flags that were set onto cfg.
func (f *flags) apply(cfg *config.Config, set map[string]bool) {
	if set["data-dir"] {
		cfg.Runtime.DataDir = f.dataDir
	}
	if set["out-dir"] {
		cfg.Runtime.OutDir = f.outDir
	}
	if set["sqlite"] {
		cfg.Runtime.SQLitePath = f.sqlitePath
	}
	if set["seed"] {
		cfg.Generator.Seed = f.seed
	}
	if set["users"] {
		cfg.Generator.Users = f.users
	}
	if set["events"] {
		cfg.Generator.TargetEvents = f.events
	}
	if set["platform"] {
		cfg.Metrics.Platforms = splitList(f.platforms)
	}
	if set["country"] {
		cfg.Metrics.Countries = splitList(f.countries)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
