// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Sandbox.PIDsLimit != 256 {
		t.Errorf("expected sandbox.pids_limit=256, got %d", cfg.Sandbox.PIDsLimit)
	}
	if cfg.Loop.PollInterval != 2*time.Second {
		t.Errorf("expected loop.poll_interval=2s, got %s", cfg.Loop.PollInterval)
	}
}

func TestLoad_RequiresTaskcageConfig(t *testing.T) {
	origConfig := os.Getenv("TASKCAGE_CONFIG")
	defer os.Setenv("TASKCAGE_CONFIG", origConfig)
	os.Unsetenv("TASKCAGE_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TASKCAGE_CONFIG not set, got nil")
	}

	const expectedMsg = "TASKCAGE_CONFIG environment variable not set"
	if len(err.Error()) < len(expectedMsg) || err.Error()[:len(expectedMsg)] != expectedMsg {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithTaskcageConfig(t *testing.T) {
	origConfig := os.Getenv("TASKCAGE_CONFIG")
	defer os.Setenv("TASKCAGE_CONFIG", origConfig)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskcage.yaml")
	configContent := `
environment: staging
paths:
  handoff_root: /test/root
  target_repo: /test/repo
sandbox:
  image: test-image:latest
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Setenv("TASKCAGE_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Paths.HandoffRoot != "/test/root" {
		t.Errorf("expected handoff_root=/test/root, got %s", cfg.Paths.HandoffRoot)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskcage.yaml")
	configContent := `
environment: staging

paths:
  handoff_root: /custom/root
  target_repo: /custom/repo

sandbox:
  image: custom-image:v2
  memory_limit: 4g
  pids_limit: 512

loop:
  poll_interval: 5s
  max_diff_size: 2097152
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.HandoffRoot != "/custom/root" {
		t.Errorf("expected handoff_root=/custom/root, got %s", cfg.Paths.HandoffRoot)
	}
	if cfg.Sandbox.Image != "custom-image:v2" {
		t.Errorf("expected image=custom-image:v2, got %s", cfg.Sandbox.Image)
	}
	if cfg.Sandbox.MemoryLimit != "4g" {
		t.Errorf("expected memory_limit=4g, got %s", cfg.Sandbox.MemoryLimit)
	}
	if cfg.Sandbox.PIDsLimit != 512 {
		t.Errorf("expected pids_limit=512, got %d", cfg.Sandbox.PIDsLimit)
	}
	if cfg.Loop.PollInterval != 5*time.Second {
		t.Errorf("expected poll_interval=5s, got %s", cfg.Loop.PollInterval)
	}
	if cfg.Loop.MaxDiffSize != 2097152 {
		t.Errorf("expected max_diff_size=2097152, got %d", cfg.Loop.MaxDiffSize)
	}
	// Fields absent from the file fall back to Default()'s values.
	if cfg.Sandbox.CPULimit != "2" {
		t.Errorf("expected cpu_limit to retain default=2, got %s", cfg.Sandbox.CPULimit)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskcage.yaml")
	configContent := `
environment: production

paths:
  handoff_root: /default/root
  target_repo: /default/repo

sandbox:
  image: default-image
  pids_limit: 256

production:
  paths:
    handoff_root: /prod/root
  sandbox:
    image: prod-image
    pids_limit: 1024
  loop:
    poll_interval: 30s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.HandoffRoot != "/prod/root" {
		t.Errorf("expected handoff_root=/prod/root from production override, got %s", cfg.Paths.HandoffRoot)
	}
	if cfg.Sandbox.Image != "prod-image" {
		t.Errorf("expected image=prod-image from production override, got %s", cfg.Sandbox.Image)
	}
	if cfg.Sandbox.PIDsLimit != 1024 {
		t.Errorf("expected pids_limit=1024 from production override, got %d", cfg.Sandbox.PIDsLimit)
	}
	if cfg.Loop.PollInterval != 30*time.Second {
		t.Errorf("expected poll_interval=30s from production override, got %s", cfg.Loop.PollInterval)
	}
	// Target repo has no override in the production block, so the base
	// value must survive untouched.
	if cfg.Paths.TargetRepo != "/default/repo" {
		t.Errorf("expected target_repo to retain base value, got %s", cfg.Paths.TargetRepo)
	}
}

func TestEnvironmentOverrides_WrongEnvironmentIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskcage.yaml")
	configContent := `
environment: development

paths:
  handoff_root: /default/root
  target_repo: /default/repo

sandbox:
  image: default-image

production:
  sandbox:
    image: prod-only-image
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Sandbox.Image != "default-image" {
		t.Errorf("production override leaked into a development environment: image=%s", cfg.Sandbox.Image)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/taskcage",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/taskcage",
		},
		{
			input:    "${MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestLoadFile_ExpandsHandoffRootIntoDerivedVars(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskcage.yaml")
	configContent := `
environment: development
paths:
  handoff_root: ` + tmpDir + `/handoff
  target_repo: ${TASKCAGE_ROOT}/repo
sandbox:
  image: test-image
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := tmpDir + "/handoff/repo"
	if cfg.Paths.TargetRepo != want {
		t.Errorf("expected target_repo=%s expanded from TASKCAGE_ROOT, got %s", want, cfg.Paths.TargetRepo)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) { c.Sandbox.Image = "an-image" },
			wantErr: false,
		},
		{
			name: "invalid environment",
			modify: func(c *Config) {
				c.Sandbox.Image = "an-image"
				c.Environment = "invalid"
			},
			wantErr: true,
		},
		{
			name: "empty handoff root",
			modify: func(c *Config) {
				c.Sandbox.Image = "an-image"
				c.Paths.HandoffRoot = ""
			},
			wantErr: true,
		},
		{
			name: "empty target repo",
			modify: func(c *Config) {
				c.Sandbox.Image = "an-image"
				c.Paths.TargetRepo = ""
			},
			wantErr: true,
		},
		{
			name:    "missing sandbox image",
			modify:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "pids_limit below floor",
			modify: func(c *Config) {
				c.Sandbox.Image = "an-image"
				c.Sandbox.PIDsLimit = 10
			},
			wantErr: true,
		},
		{
			name: "non-positive poll interval",
			modify: func(c *Config) {
				c.Sandbox.Image = "an-image"
				c.Loop.PollInterval = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Paths.HandoffRoot = filepath.Join(tmpDir, "handoff")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	for _, sub := range []string{"tasks", "running", "results", "patches", "logs", "locks", "tmp"} {
		path := filepath.Join(cfg.Paths.HandoffRoot, sub)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}

func TestEngineBinary_UsesConfiguredEngine(t *testing.T) {
	cfg := Default()
	cfg.Sandbox.Engine = "does-not-exist-on-path-hopefully"

	if _, err := cfg.EngineBinary(); err == nil {
		t.Error("expected EngineBinary to fail for a nonexistent configured engine")
	}
}
