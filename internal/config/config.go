// Package config holds all leanverify configuration.
// Values come from three layers, later layers winning: built-in defaults,
// an optional YAML file, and LEANVERIFY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all leanverify configuration.
type Config struct {
	// Checker configures the Lean checking scheduler.
	Checker CheckerConfig `yaml:"checker"`

	// Output configures result persistence.
	Output OutputConfig `yaml:"output"`
}

// CheckerConfig configures the Lean checking scheduler.
// Concurrency and timeout are fixed startup configuration; they are not
// per-request controls.
type CheckerConfig struct {
	// MaxConcurrent is the maximum number of Lean jobs running at once.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Timeout is the per-job wall-clock timeout (e.g. "300s").
	Timeout string `yaml:"timeout"`

	// MemoryLimitGB is the per-job memory ceiling passed to the Lean
	// frontend. Zero disables the limit.
	MemoryLimitGB int `yaml:"memory_limit_gb"`

	// Name is the scheduler instance name, used for scratch file prefixes
	// and log scoping.
	Name string `yaml:"name"`

	// LeanWorkspace is the Lake workspace (e.g. a mathlib4 checkout) that
	// jobs compile against.
	LeanWorkspace string `yaml:"lean_workspace"`
}

// OutputConfig configures result persistence.
type OutputConfig struct {
	// Path is the output JSONL file. Empty means derive from the input
	// file name.
	Path string `yaml:"path"`

	// ArchiveDB is an optional SQLite database that archives every batch.
	// Empty disables archiving.
	ArchiveDB string `yaml:"archive_db"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Checker: CheckerConfig{
			MaxConcurrent: 8,
			Timeout:       "300s",
			MemoryLimitGB: 10,
			Name:          "proof_verifier",
			LeanWorkspace: "/dev/shm/mathlib4",
		},
	}
}

// Load reads configuration from an optional YAML file layered over the
// defaults, then applies environment overrides. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides layers LEANVERIFY_* environment variables over cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEANVERIFY_WORKSPACE"); v != "" {
		cfg.Checker.LeanWorkspace = v
	}
	if v := os.Getenv("LEANVERIFY_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Checker.MaxConcurrent = n
		}
	}
	if v := os.Getenv("LEANVERIFY_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			cfg.Checker.Timeout = v
		}
	}
	if v := os.Getenv("LEANVERIFY_ARCHIVE_DB"); v != "" {
		cfg.Output.ArchiveDB = v
	}
}

// TimeoutDuration parses the checker timeout, falling back to the default
// when the configured value is unparsable.
func (c CheckerConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 300 * time.Second
	}
	return d
}

// Validate checks startup preconditions that should fail fast.
func (c *Config) Validate() error {
	if c.Checker.MaxConcurrent <= 0 {
		return fmt.Errorf("checker.max_concurrent must be positive, got %d", c.Checker.MaxConcurrent)
	}
	if c.Checker.LeanWorkspace == "" {
		return fmt.Errorf("checker.lean_workspace is required")
	}
	return nil
}
