// Package benchmarks runs synthetic memory-access workloads through the cache
// simulator and reports how each geometry behaves.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

// BenchmarkResult holds the outcome of a single workload run.
type BenchmarkResult struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains what the workload exercises
	Description string `json:"description"`

	// Geometry is the cache the workload ran against, e.g. "s=4 E=1 b=4"
	Geometry string `json:"geometry"`

	// Records is the number of trace records replayed
	Records int `json:"records"`

	// Accesses is hits + misses; a modify counts twice
	Accesses uint64 `json:"accesses"`

	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single workload.
type Benchmark struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload exercises
	Description string

	// Records is the trace to replay
	Records []trace.Record
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Geometry is the cache every workload runs against
	Geometry cache.Geometry

	// CrossCheck verifies every access against the reference model
	CrossCheck bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose logs each workload as it starts
	Verbose bool
}

// DefaultConfig returns a default harness configuration: a 32KB, 8-way
// cache with 64B lines.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Geometry: cache.Geometry{SetBits: 6, Lines: 8, BlockBits: 6},
		Output:   os.Stdout,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a workload to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple workloads to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every workload on a fresh cache and returns the results.
// It stops at the first workload that fails.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	var opts []sim.DriverOption
	if h.config.CrossCheck {
		opts = append(opts, sim.WithCrossCheck())
	}

	driver, err := sim.NewDriver(h.config.Geometry, opts...)
	if err != nil {
		return BenchmarkResult{}, err
	}

	if h.config.Verbose {
		logrus.WithFields(logrus.Fields{
			"benchmark": bench.Name,
			"records":   len(bench.Records),
			"geometry":  h.config.Geometry.String(),
		}).Info("running benchmark")
	}

	start := time.Now()
	stats, err := driver.RunRecords(bench.Records)
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	return BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Geometry:    h.config.Geometry.String(),
		Records:     len(bench.Records),
		Accesses:    stats.Accesses(),
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Evictions:   stats.Evictions,
		HitRate:     stats.HitRate(),
		WallTime:    wallTime,
	}, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== Cache Workload Results ===")
	_, _ = fmt.Fprintf(out, "Geometry: %s\n", h.config.Geometry)
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Records:   %d\n", r.Records)
		_, _ = fmt.Fprintf(out, "  Accesses:  %d\n", r.Accesses)
		_, _ = fmt.Fprintf(out, "  Hits:      %d\n", r.Hits)
		_, _ = fmt.Fprintf(out, "  Misses:    %d\n", r.Misses)
		_, _ = fmt.Fprintf(out, "  Evictions: %d\n", r.Evictions)
		_, _ = fmt.Fprintf(out, "  Hit Rate:  %.1f%%\n", r.HitRate*100)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,geometry,records,accesses,hits,misses,evictions,hit_rate")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%d,%d,%d,%.4f\n",
			r.Name,
			r.Geometry,
			r.Records,
			r.Accesses,
			r.Hits,
			r.Misses,
			r.Evictions,
			r.HitRate,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual workload results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp string `json:"timestamp"`
	Geometry  string `json:"geometry"`
	SetBits   uint   `json:"s"`
	Lines     uint   `json:"E"`
	BlockBits uint   `json:"b"`
}

// ReportSummary contains aggregate statistics across all workloads.
type ReportSummary struct {
	TotalBenchmarks int           `json:"total_benchmarks"`
	TotalAccesses   uint64        `json:"total_accesses"`
	TotalHits       uint64        `json:"total_hits"`
	TotalMisses     uint64        `json:"total_misses"`
	TotalEvictions  uint64        `json:"total_evictions"`
	OverallHitRate  float64       `json:"overall_hit_rate"`
	TotalWallTime   time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var summary ReportSummary
	summary.TotalBenchmarks = len(results)
	for _, r := range results {
		summary.TotalAccesses += r.Accesses
		summary.TotalHits += r.Hits
		summary.TotalMisses += r.Misses
		summary.TotalEvictions += r.Evictions
		summary.TotalWallTime += r.WallTime
	}

	if summary.TotalAccesses > 0 {
		summary.OverallHitRate = float64(summary.TotalHits) / float64(summary.TotalAccesses)
	}

	g := h.config.Geometry
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Geometry:  g.String(),
			SetBits:   g.SetBits,
			Lines:     g.Lines,
			BlockBits: g.BlockBits,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
