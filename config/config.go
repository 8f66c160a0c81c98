// Package config holds the run configuration of the cache simulator.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/trace"
)

// Output formats for the final statistics.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// RunConfig holds everything needed to run one simulation.
type RunConfig struct {
	// SetBits is the number of set-index bits (s). Default: 4.
	SetBits uint `json:"set_bits" yaml:"set_bits"`

	// Lines is the number of lines per set (E). Default: 1.
	Lines uint `json:"lines" yaml:"lines"`

	// BlockBits is the number of block-offset bits (b). Default: 4.
	BlockBits uint `json:"block_bits" yaml:"block_bits"`

	// Preset names a well-known geometry. When set it replaces the three
	// geometry fields; see PresetNames.
	Preset string `json:"preset,omitempty" yaml:"preset,omitempty"`

	// TracePath is the trace file to simulate.
	TracePath string `json:"trace" yaml:"trace"`

	// Verbose prints one line per access.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// OnMalformed is "abort" (default) or "skip".
	OnMalformed string `json:"on_malformed" yaml:"on_malformed"`

	// CrossCheck replays every access through the reference model.
	CrossCheck bool `json:"cross_check" yaml:"cross_check"`

	// AuditCSV is a CSV file to receive the per-access trail.
	AuditCSV string `json:"audit_csv,omitempty" yaml:"audit_csv,omitempty"`

	// AuditDB is a SQLite database to receive the per-access trail.
	AuditDB string `json:"audit_db,omitempty" yaml:"audit_db,omitempty"`

	// LogLevel is a logrus level name. Default: warn.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Output is "text" (default) or "json".
	Output string `json:"output" yaml:"output"`
}

// Default returns a RunConfig for the classic s=4 E=1 b=4 example cache.
func Default() *RunConfig {
	return &RunConfig{
		SetBits:     4,
		Lines:       1,
		BlockBits:   4,
		OnMalformed: string(trace.PolicyAbort),
		LogLevel:    "warn",
		Output:      OutputText,
	}
}

// Load reads a RunConfig from a YAML (.yaml, .yml) or JSON (.json) file.
// Fields missing from the file keep their defaults; unknown fields are
// errors.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	return cfg, nil
}

// Save writes the RunConfig to a YAML or JSON file, chosen by extension.
func (c *RunConfig) Save(path string) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyPreset replaces the geometry fields with the named preset, if any.
func (c *RunConfig) ApplyPreset() error {
	if c.Preset == "" {
		return nil
	}

	g, err := PresetGeometry(c.Preset)
	if err != nil {
		return err
	}

	c.SetBits = g.SetBits
	c.Lines = g.Lines
	c.BlockBits = g.BlockBits

	return nil
}

// Geometry returns the validated cache geometry.
func (c *RunConfig) Geometry() (cache.Geometry, error) {
	return cache.NewGeometry(c.SetBits, c.Lines, c.BlockBits)
}

// Policy returns the malformed-record policy.
func (c *RunConfig) Policy() (trace.Policy, error) {
	return trace.ParsePolicy(c.OnMalformed)
}

// Level returns the log level.
func (c *RunConfig) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// Validate checks that the configuration can run.
func (c *RunConfig) Validate() error {
	if _, err := c.Geometry(); err != nil {
		return err
	}
	if c.TracePath == "" {
		return fmt.Errorf("trace file must be set")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("output must be %q or %q", OutputText, OutputJSON)
	}
	if c.Preset != "" {
		if _, ok := LookupPreset(c.Preset); !ok {
			return fmt.Errorf("unknown preset %q", c.Preset)
		}
	}
	return nil
}

// Clone returns a copy of the RunConfig.
func (c *RunConfig) Clone() *RunConfig {
	clone := *c
	return &clone
}
