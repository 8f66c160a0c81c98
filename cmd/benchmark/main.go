// Command benchmark runs the synthetic cache workloads.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Example:
//
//	# Run all workloads against a 32KB 8-way cache
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark --csv --preset m2-l1d > results.csv
package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/config"
)

var (
	setBits    uint
	lines      uint
	blockBits  uint
	preset     string
	csvOutput  bool
	jsonOutput bool
	core       bool
	crossCheck bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "benchmark",
	Short:         "Run synthetic workloads through the cache simulator",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if csvOutput && jsonOutput {
			return fmt.Errorf("--csv and --json are mutually exclusive")
		}

		g, err := geometry(cmd)
		if err != nil {
			return err
		}

		cfg := benchmarks.DefaultConfig()
		cfg.Geometry = g
		cfg.CrossCheck = crossCheck
		cfg.Verbose = verbose
		cfg.Output = cmd.OutOrStdout()

		if verbose {
			logrus.SetLevel(logrus.InfoLevel)
		}

		harness := benchmarks.NewHarness(cfg)
		if core {
			harness.AddBenchmarks(benchmarks.GetCoreWorkloads(g))
		} else {
			harness.AddBenchmarks(benchmarks.GetWorkloads(g))
		}

		results, err := harness.RunAll()
		if err != nil {
			return err
		}

		switch {
		case csvOutput:
			harness.PrintCSV(results)
		case jsonOutput:
			return harness.PrintJSON(results)
		default:
			harness.PrintResults(results)
		}

		return nil
	},
}

func geometry(cmd *cobra.Command) (cache.Geometry, error) {
	g := benchmarks.DefaultConfig().Geometry

	if preset != "" {
		var err error
		g, err = config.PresetGeometry(preset)
		if err != nil {
			return cache.Geometry{}, err
		}
	}

	if cmd.Flags().Changed("set-bits") {
		g.SetBits = setBits
	}
	if cmd.Flags().Changed("lines") {
		g.Lines = lines
	}
	if cmd.Flags().Changed("block-bits") {
		g.BlockBits = blockBits
	}

	return cache.NewGeometry(g.SetBits, g.Lines, g.BlockBits)
}

func init() {
	defaults := benchmarks.DefaultConfig().Geometry

	fs := rootCmd.Flags()
	fs.UintVarP(&setBits, "set-bits", "s", defaults.SetBits, "Number of set index bits")
	fs.UintVarP(&lines, "lines", "E", defaults.Lines, "Number of lines per set")
	fs.UintVarP(&blockBits, "block-bits", "b", defaults.BlockBits, "Number of block offset bits")
	fs.StringVar(&preset, "preset", "", fmt.Sprintf("Named cache geometry %v", config.PresetNames()))
	fs.BoolVar(&csvOutput, "csv", false, "Output results in CSV format")
	fs.BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	fs.BoolVar(&core, "core", false, "Run only the core workloads")
	fs.BoolVar(&crossCheck, "cross-check", false, "Check every access against the reference model")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log each workload as it starts")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
