// Package config defines the analysis job configuration and its loader.
//
// Conventions:
// - New(ctx) builds a Config holding every default.
// - Load(ctx) layers defaults, an optional YAML file and RANK_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Input is the path of the delimited participant source.
	Input string `koanf:"input"`

	// Output is where the assembled report is written.
	Output string `koanf:"output"`

	// Bosses is the comma-separated allow-list of boss (achieve) ids that get
	// their own partition next to "all".
	Bosses string `koanf:"bosses"`

	// SchoolCatalog and MountGroupCatalog point at the taxonomy catalogs.
	// Empty paths select the embedded defaults.
	SchoolCatalog     string `koanf:"school_catalog"`
	MountGroupCatalog string `koanf:"mount_group_catalog"`

	// WorkerCount bounds how many partitions are computed concurrently.
	WorkerCount int `koanf:"worker_count"`

	// MetricsFile, when set, receives a Prometheus textfile after the run.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   LogFormatText,
		Output:      "result.json",
		WorkerCount: runtime.NumCPU(),
	}
}

// BossIDs parses the boss allow-list. Duplicates are dropped, order is kept.
func (c *Config) BossIDs() ([]int, error) {
	return ParseBossIDs(c.Bosses)
}

// ParseBossIDs parses a comma-separated list of boss ids.
func ParseBossIDs(list string) ([]int, error) {
	var ids []int
	seen := make(map[int]struct{})
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: boss id %q is not a positive integer", ErrInvalidConfig, part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks a fully merged configuration (after CLI overrides).
func (c *Config) Validate() error {
	if err := c.validateFormat(); err != nil {
		return err
	}
	if c.Input == "" {
		return fmt.Errorf("%w: input must not be empty", ErrInvalidConfig)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output must not be empty", ErrInvalidConfig)
	}
	return nil
}

// validateFormat checks the fields a file or env var can break.
func (c *Config) validateFormat() error {
	if c.WorkerCount < 0 {
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: log_format must be %q or %q", ErrInvalidConfig, LogFormatText, LogFormatJSON)
	}
	if _, err := c.BossIDs(); err != nil {
		return err
	}
	return nil
}
