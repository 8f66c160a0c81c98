// Package main provides a profiling wrapper for cachesim to identify
// performance bottlenecks in trace replay.
package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

var (
	setBits    uint
	lines      uint
	blockBits  uint
	tracePath  string
	workload   string
	repeat     int
	cpuProfile string
	memProfile string
	duration   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "profile",
	Short:         "Profile trace replay through the cache simulator",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		g, err := cache.NewGeometry(setBits, lines, blockBits)
		if err != nil {
			return err
		}

		records, err := loadRecords(g)
		if err != nil {
			return err
		}

		if cpuProfile != "" {
			f, err := os.Create(cpuProfile)
			if err != nil {
				return fmt.Errorf("error creating CPU profile: %w", err)
			}
			defer func() { _ = f.Close() }()

			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("error starting CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		timer := time.AfterFunc(duration, func() {
			logrus.Errorf("timeout reached after %v - stopping execution", duration)
			atexit.Exit(2)
		})
		defer timer.Stop()

		driver, err := sim.NewDriver(g)
		if err != nil {
			return err
		}

		start := time.Now()
		var accesses uint64
		for i := 0; i < repeat; i++ {
			driver.Reset()

			stats, err := driver.RunRecords(records)
			if err != nil {
				return err
			}
			accesses += stats.Accesses()
		}
		elapsed := time.Since(start)

		if memProfile != "" {
			if err := writeHeapProfile(memProfile); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nProfiling Results:\n")
		fmt.Fprintf(out, "Geometry: %s\n", g)
		fmt.Fprintf(out, "Records per pass: %d\n", len(records))
		fmt.Fprintf(out, "Passes: %d\n", repeat)
		fmt.Fprintf(out, "Accesses simulated: %d\n", accesses)
		fmt.Fprintf(out, "Elapsed time: %v\n", elapsed)
		if accesses > 0 {
			fmt.Fprintf(out, "Accesses/second: %.0f\n", float64(accesses)/elapsed.Seconds())
		}

		return nil
	},
}

// loadRecords reads the trace file into memory, or generates the named
// workload, so that file I/O stays out of the profile.
func loadRecords(g cache.Geometry) ([]trace.Record, error) {
	if tracePath != "" {
		r, err := trace.Open(tracePath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()

		return trace.ReadAll(r)
	}

	for _, b := range benchmarks.GetWorkloads(g) {
		if b.Name == workload {
			return b.Records, nil
		}
	}

	return nil, fmt.Errorf("unknown workload %q", workload)
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("error writing memory profile: %w", err)
	}

	return nil
}

func init() {
	defaults := benchmarks.DefaultConfig().Geometry

	fs := rootCmd.Flags()
	fs.UintVarP(&setBits, "set-bits", "s", defaults.SetBits, "Number of set index bits")
	fs.UintVarP(&lines, "lines", "E", defaults.Lines, "Number of lines per set")
	fs.UintVarP(&blockBits, "block-bits", "b", defaults.BlockBits, "Number of block offset bits")
	fs.StringVarP(&tracePath, "trace", "t", "", "Trace file (default: a synthetic workload)")
	fs.StringVar(&workload, "workload", "matrix_transpose", "Synthetic workload to replay when no trace is given")
	fs.IntVar(&repeat, "repeat", 100, "Number of passes over the trace")
	fs.StringVar(&cpuProfile, "cpuprofile", "", "write cpu profile to file")
	fs.StringVar(&memProfile, "memprofile", "", "write memory profile to file")
	fs.DurationVar(&duration, "duration", 30*time.Second, "max duration to run (for profiling)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
