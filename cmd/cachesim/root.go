package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/xid"
	akitasim "github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/audit"
	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

const examples = `  cachesim -s 4 -E 1 -b 4 -t traces/yi.trace
  cachesim -v -s 8 -E 2 -b 4 -t traces/yi.trace
  cachesim --preset m2-l1d -t traces/long.trace --json
  cachesim --config run.yaml --audit-db audit.sqlite3`

type flags struct {
	setBits     uint
	lines       uint
	blockBits   uint
	tracePath   string
	verbose     bool
	configPath  string
	preset      string
	onMalformed string
	crossCheck  bool
	auditCSV    string
	auditDB     string
	jsonOutput  bool
	logLevel    string
}

// Report is the JSON summary of a run.
type Report struct {
	RunID     string  `json:"run_id"`
	Trace     string  `json:"trace"`
	SetBits   uint    `json:"s"`
	Lines     uint    `json:"E"`
	BlockBits uint    `json:"b"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	Skipped   uint64  `json:"skipped_ifetches"`
	Malformed uint64  `json:"malformed_skipped"`
	Elapsed   string  `json:"elapsed"`
}

func newRootCmd(out io.Writer) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "cachesim [-hv] -s <num> -E <num> -b <num> -t <file>",
		Short:         "Set-associative LRU cache simulator",
		Long:          "Replays a memory reference trace through a cache with 2^s sets of E lines of 2^b bytes and reports hits, misses and evictions.",
		Example:       examples,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			return run(cfg, out)
		},
	}

	defaults := config.Default()
	fs := cmd.Flags()
	fs.UintVarP(&f.setBits, "set-bits", "s", defaults.SetBits, "Number of set index bits")
	fs.UintVarP(&f.lines, "lines", "E", defaults.Lines, "Number of lines per set")
	fs.UintVarP(&f.blockBits, "block-bits", "b", defaults.BlockBits, "Number of block offset bits")
	fs.StringVarP(&f.tracePath, "trace", "t", "", "Trace file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Print the outcome of every access")
	fs.StringVar(&f.configPath, "config", "", "YAML or JSON run configuration")
	fs.StringVar(&f.preset, "preset", "", fmt.Sprintf("Named cache geometry %v", config.PresetNames()))
	fs.StringVar(&f.onMalformed, "on-malformed", defaults.OnMalformed, "Malformed trace records: abort or skip")
	fs.BoolVar(&f.crossCheck, "cross-check", false, "Check every access against the reference model")
	fs.StringVar(&f.auditCSV, "audit-csv", "", "Write the per-access trail to a CSV file")
	fs.StringVar(&f.auditDB, "audit-db", "", "Write the per-access trail to a SQLite database")
	fs.BoolVar(&f.jsonOutput, "json", false, "Print a JSON report instead of the summary line")
	fs.StringVar(&f.logLevel, "log", defaults.LogLevel, "Log level (debug, info, warn, error)")

	return cmd
}

// resolveConfig layers the config file, the preset and then any flag set
// on the command line.
func resolveConfig(cmd *cobra.Command, f *flags) (*config.RunConfig, error) {
	cfg := config.Default()

	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed

	if changed("preset") {
		cfg.Preset = f.preset
	}
	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}

	if changed("set-bits") {
		cfg.SetBits = f.setBits
	}
	if changed("lines") {
		cfg.Lines = f.lines
	}
	if changed("block-bits") {
		cfg.BlockBits = f.blockBits
	}
	if changed("trace") {
		cfg.TracePath = f.tracePath
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("on-malformed") {
		cfg.OnMalformed = f.onMalformed
	}
	if changed("cross-check") {
		cfg.CrossCheck = f.crossCheck
	}
	if changed("audit-csv") {
		cfg.AuditCSV = f.auditCSV
	}
	if changed("audit-db") {
		cfg.AuditDB = f.auditDB
	}
	if changed("json") && f.jsonOutput {
		cfg.Output = config.OutputJSON
	}
	if changed("log") {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func run(cfg *config.RunConfig, out io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	g, err := cfg.Geometry()
	if err != nil {
		return err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	runID := xid.New().String()
	logger := logrus.WithField("run", runID)

	if cfg.Verbose && cfg.Output == config.OutputText {
		fmt.Fprintf(out, "s: %d\n", g.SetBits)
		fmt.Fprintf(out, "E: %d\n", g.Lines)
		fmt.Fprintf(out, "b: %d\n", g.BlockBits)
		fmt.Fprintf(out, "Tracefile: %s\n", cfg.TracePath)
		fmt.Fprintln(out, "Verbose mode enabled.")
	}

	reader, err := trace.Open(cfg.TracePath,
		trace.WithPolicy(policy),
		trace.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	opts := []sim.DriverOption{sim.WithLogger(logrus.StandardLogger())}
	if cfg.CrossCheck {
		opts = append(opts, sim.WithCrossCheck())
	}

	closers, hooks, err := exporters(cfg, out, runID)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return err
	}
	for _, h := range hooks {
		opts = append(opts, sim.WithHook(h))
	}

	driver, err := sim.NewDriver(g, opts...)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"geometry": g.String(),
		"trace":    cfg.TracePath,
	}).Info("starting simulation")

	start := time.Now()
	stats, err := driver.Run(reader)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, c := range closers {
		if err := c.Close(); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"accesses": stats.Accesses(),
		"elapsed":  elapsed,
	}).Info("simulation complete")

	if cfg.Output == config.OutputJSON {
		return writeReport(out, Report{
			RunID:     runID,
			Trace:     cfg.TracePath,
			SetBits:   g.SetBits,
			Lines:     g.Lines,
			BlockBits: g.BlockBits,
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Evictions: stats.Evictions,
			HitRate:   stats.HitRate(),
			Skipped:   reader.Skipped(),
			Malformed: reader.Malformed(),
			Elapsed:   elapsed.String(),
		})
	}

	fmt.Fprintln(out, stats.String())

	return nil
}

// exporters builds the audit hooks the configuration asks for. The
// returned closers must be closed even when err is not nil.
func exporters(
	cfg *config.RunConfig,
	out io.Writer,
	runID string,
) ([]io.Closer, []akitasim.Hook, error) {
	var (
		closers []io.Closer
		hooks   []akitasim.Hook
	)

	if cfg.Verbose && cfg.Output == config.OutputText {
		useColor := out == io.Writer(os.Stdout) && !color.NoColor
		hooks = append(hooks, audit.NewPrinter(out, useColor))
	}

	if cfg.AuditCSV != "" {
		w, err := audit.NewCSVWriter(cfg.AuditCSV)
		if err != nil {
			return closers, nil, err
		}
		closers = append(closers, w)
		hooks = append(hooks, w)
	}

	if cfg.AuditDB != "" {
		w, err := audit.NewSQLiteWriter(cfg.AuditDB, runID)
		if err != nil {
			return closers, nil, err
		}
		closers = append(closers, w)
		hooks = append(hooks, w)
	}

	return closers, hooks, nil
}

func writeReport(out io.Writer, report Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
