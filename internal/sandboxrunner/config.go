// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxrunner

import "time"

// EnvAllowList is the fixed set of host environment variables passed
// through into the container. Everything else is dropped.
var EnvAllowList = []string{"CI", "NODE_ENV", "HOME", "PATH", "TERM", "LANG", "LC_ALL", "TZ"}

// DefaultPIDsLimit, DefaultMemoryLimit, and DefaultCPULimit are the
// resource ceilings applied when a RunSpec leaves the corresponding
// field unset.
const (
	DefaultPIDsLimit   = 256
	DefaultMemoryLimit = "2g"
	DefaultCPULimit    = "2"
	DefaultTmpfsSize   = "512m"
	DefaultTimeout     = 5 * time.Minute
)

// RunSpec describes a single sandboxed invocation.
type RunSpec struct {
	// Engine is the container engine binary to invoke: "docker" or
	// "podman".
	Engine string

	// Image is the container image tag to run.
	Image string

	// Worktree is the host directory bind-mounted read-write at
	// /workspace inside the container.
	Worktree string

	// Command is the command and arguments to run inside the
	// container, appended after the image tag.
	Command []string

	// UID and GID are the host invoker's identity, mapped as the
	// container's non-root user.
	UID int
	GID int

	// PIDsLimit, MemoryLimit, CPULimit, and TmpfsSize override the
	// corresponding Default constant when non-zero/non-empty.
	PIDsLimit   int
	MemoryLimit string
	CPULimit    string
	TmpfsSize   string

	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration

	// Env holds additional host environment variables to read values
	// from for the allow-listed names; when nil, the process
	// environment (os.Environ) is consulted.
	Env map[string]string
}

func (s RunSpec) pidsLimit() int {
	if s.PIDsLimit > 0 {
		return s.PIDsLimit
	}
	return DefaultPIDsLimit
}

func (s RunSpec) memoryLimit() string {
	if s.MemoryLimit != "" {
		return s.MemoryLimit
	}
	return DefaultMemoryLimit
}

func (s RunSpec) cpuLimit() string {
	if s.CPULimit != "" {
		return s.CPULimit
	}
	return DefaultCPULimit
}

func (s RunSpec) tmpfsSize() string {
	if s.TmpfsSize != "" {
		return s.TmpfsSize
	}
	return DefaultTmpfsSize
}

func (s RunSpec) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}
