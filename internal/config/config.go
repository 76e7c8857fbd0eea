// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the taskcage
// orchestrator.
//
// Configuration is loaded from a single file specified by:
//   - TASKCAGE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the orchestrator loop.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Sandbox configures the container sandbox used to run executor
	// and verification commands.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Loop configures the orchestration loop's own behavior.
	Loop LoopConfig `yaml:"loop"`

	// Development, Staging, Production contain per-environment
	// overrides applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Sandbox *SandboxConfig `yaml:"sandbox,omitempty"`
	Loop    *LoopConfig    `yaml:"loop,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// HandoffRoot is the base directory containing tasks/, running/,
	// results/, patches/, logs/, locks/, and tmp/.
	HandoffRoot string `yaml:"handoff_root"`

	// TargetRepo is the repository the orchestrator mutates through
	// per-task worktrees.
	TargetRepo string `yaml:"target_repo"`
}

// SandboxConfig configures the container sandbox.
type SandboxConfig struct {
	// Engine is the container engine binary ("docker" or "podman").
	// Empty means auto-detect at startup.
	Engine string `yaml:"engine"`

	// Image is the image tag the executor and verification commands
	// run inside.
	Image string `yaml:"image"`

	// MemoryLimit is the per-container memory limit (e.g. "2g").
	MemoryLimit string `yaml:"memory_limit"`

	// CPULimit is the per-container CPU limit (e.g. "2").
	CPULimit string `yaml:"cpu_limit"`

	// PIDsLimit caps the number of processes inside the container.
	PIDsLimit int `yaml:"pids_limit"`

	// TmpfsSize caps the /tmp tmpfs mount size (e.g. "512m").
	TmpfsSize string `yaml:"tmpfs_size"`

	// Timeout bounds a single sandboxed command's wall-clock runtime.
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML decodes SandboxConfig's Timeout as a human-readable
// duration string ("5m", "30s") rather than the integer nanosecond
// count time.Duration's own default decoding would require.
func (s *SandboxConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawSandboxConfig struct {
		Engine      string `yaml:"engine"`
		Image       string `yaml:"image"`
		MemoryLimit string `yaml:"memory_limit"`
		CPULimit    string `yaml:"cpu_limit"`
		PIDsLimit   int    `yaml:"pids_limit"`
		TmpfsSize   string `yaml:"tmpfs_size"`
		Timeout     string `yaml:"timeout"`
	}
	var raw rawSandboxConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	// Only overwrite fields the document actually set, so that keys
	// omitted from a partial "sandbox:" block keep whatever Default()
	// (or an earlier decode pass) already populated instead of being
	// zeroed out.
	if raw.Engine != "" {
		s.Engine = raw.Engine
	}
	if raw.Image != "" {
		s.Image = raw.Image
	}
	if raw.MemoryLimit != "" {
		s.MemoryLimit = raw.MemoryLimit
	}
	if raw.CPULimit != "" {
		s.CPULimit = raw.CPULimit
	}
	if raw.PIDsLimit != 0 {
		s.PIDsLimit = raw.PIDsLimit
	}
	if raw.TmpfsSize != "" {
		s.TmpfsSize = raw.TmpfsSize
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("sandbox.timeout: %w", err)
		}
		s.Timeout = d
	}
	return nil
}

// LoopConfig configures the orchestration loop.
type LoopConfig struct {
	// PollInterval is how long the loop sleeps between passes in
	// continuous mode.
	PollInterval time.Duration `yaml:"poll_interval"`

	// VCSTimeout bounds a single safe-VCS operation.
	VCSTimeout time.Duration `yaml:"vcs_timeout"`

	// MaxCapturedOutput caps how many bytes of a single verification
	// stream are kept inline in the result record before spilling to
	// logs/.
	MaxCapturedOutput int `yaml:"max_captured_output"`

	// MaxDiffSize caps the size of a patch/diff before truncation.
	MaxDiffSize int64 `yaml:"max_diff_size"`
}

// UnmarshalYAML decodes LoopConfig's duration fields as human-readable
// strings ("2s", "30s") rather than integer nanosecond counts, mirroring
// SandboxConfig.UnmarshalYAML.
func (l *LoopConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawLoopConfig struct {
		PollInterval      string `yaml:"poll_interval"`
		VCSTimeout        string `yaml:"vcs_timeout"`
		MaxCapturedOutput int    `yaml:"max_captured_output"`
		MaxDiffSize       int64  `yaml:"max_diff_size"`
	}
	var raw rawLoopConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return fmt.Errorf("loop.poll_interval: %w", err)
		}
		l.PollInterval = d
	}
	if raw.VCSTimeout != "" {
		d, err := time.ParseDuration(raw.VCSTimeout)
		if err != nil {
			return fmt.Errorf("loop.vcs_timeout: %w", err)
		}
		l.VCSTimeout = d
	}
	if raw.MaxCapturedOutput != 0 {
		l.MaxCapturedOutput = raw.MaxCapturedOutput
	}
	if raw.MaxDiffSize != 0 {
		l.MaxDiffSize = raw.MaxDiffSize
	}
	return nil
}

// Default returns the default configuration. These defaults exist
// primarily to ensure all fields have sensible zero-values, not as a
// fallback — the config file is still required by Load.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "taskcage")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			HandoffRoot: defaultRoot,
			TargetRepo:  ".",
		},
		Sandbox: SandboxConfig{
			Engine:      "",
			MemoryLimit: "2g",
			CPULimit:    "2",
			PIDsLimit:   256,
			TmpfsSize:   "512m",
			Timeout:     5 * time.Minute,
		},
		Loop: LoopConfig{
			PollInterval:      2 * time.Second,
			VCSTimeout:        30 * time.Second,
			MaxCapturedOutput: 10 * 1024,
			MaxDiffSize:       10 * 1024 * 1024,
		},
	}
}

// Load loads configuration from the TASKCAGE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks or defaults — if TASKCAGE_CONFIG is
// not set, this fails. This ensures deterministic, auditable
// configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("TASKCAGE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TASKCAGE_CONFIG environment variable not set; " +
			"set it to the path of your taskcage.yaml config file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.HandoffRoot != "" {
			c.Paths.HandoffRoot = overrides.Paths.HandoffRoot
		}
		if overrides.Paths.TargetRepo != "" {
			c.Paths.TargetRepo = overrides.Paths.TargetRepo
		}
	}

	if overrides.Sandbox != nil {
		if overrides.Sandbox.Engine != "" {
			c.Sandbox.Engine = overrides.Sandbox.Engine
		}
		if overrides.Sandbox.Image != "" {
			c.Sandbox.Image = overrides.Sandbox.Image
		}
		if overrides.Sandbox.MemoryLimit != "" {
			c.Sandbox.MemoryLimit = overrides.Sandbox.MemoryLimit
		}
		if overrides.Sandbox.CPULimit != "" {
			c.Sandbox.CPULimit = overrides.Sandbox.CPULimit
		}
		if overrides.Sandbox.PIDsLimit != 0 {
			c.Sandbox.PIDsLimit = overrides.Sandbox.PIDsLimit
		}
		if overrides.Sandbox.TmpfsSize != "" {
			c.Sandbox.TmpfsSize = overrides.Sandbox.TmpfsSize
		}
		if overrides.Sandbox.Timeout != 0 {
			c.Sandbox.Timeout = overrides.Sandbox.Timeout
		}
	}

	if overrides.Loop != nil {
		if overrides.Loop.PollInterval != 0 {
			c.Loop.PollInterval = overrides.Loop.PollInterval
		}
		if overrides.Loop.VCSTimeout != 0 {
			c.Loop.VCSTimeout = overrides.Loop.VCSTimeout
		}
		if overrides.Loop.MaxCapturedOutput != 0 {
			c.Loop.MaxCapturedOutput = overrides.Loop.MaxCapturedOutput
		}
		if overrides.Loop.MaxDiffSize != 0 {
			c.Loop.MaxDiffSize = overrides.Loop.MaxDiffSize
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"TASKCAGE_ROOT": c.Paths.HandoffRoot,
		"HOME":          os.Getenv("HOME"),
	}

	c.Paths.HandoffRoot = expandVars(c.Paths.HandoffRoot, vars)
	vars["TASKCAGE_ROOT"] = c.Paths.HandoffRoot
	c.Paths.TargetRepo = expandVars(c.Paths.TargetRepo, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.HandoffRoot == "" {
		errs = append(errs, fmt.Errorf("paths.handoff_root is required"))
	}
	if c.Paths.TargetRepo == "" {
		errs = append(errs, fmt.Errorf("paths.target_repo is required"))
	}
	if c.Sandbox.Image == "" {
		errs = append(errs, fmt.Errorf("sandbox.image is required"))
	}
	if c.Sandbox.PIDsLimit < 256 {
		errs = append(errs, fmt.Errorf("sandbox.pids_limit must be >= 256"))
	}
	if c.Loop.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("loop.poll_interval must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the handoff root's subdirectories if they don't
// already exist.
func (c *Config) EnsurePaths() error {
	root := c.Paths.HandoffRoot
	subdirs := []string{"tasks", "running", "results", "patches", "logs", "locks", "tmp"}
	for _, sub := range subdirs {
		path := filepath.Join(root, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// EngineBinary resolves the container engine binary: the configured
// value if set, otherwise the first of "docker"/"podman" found on
// PATH.
func (c *Config) EngineBinary() (string, error) {
	if c.Sandbox.Engine != "" {
		return exec.LookPath(c.Sandbox.Engine)
	}
	for _, candidate := range []string{"docker", "podman"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no container engine found on PATH (tried docker, podman)")
}
