// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"log/slog"
	"time"

	"github.com/taskcage/taskcage/internal/clock"
)

// DefaultPollInterval is the pause between passes in continuous mode.
const DefaultPollInterval = 2 * time.Second

// CapturedOutputLimit bounds how many bytes of a verify command's
// stdout or stderr are retained in the result record itself; anything
// beyond it is spilled to a log file under logs/.
const CapturedOutputLimit = 10 * 1024

// Config holds everything the Loop needs to run, independent of any
// particular task.
type Config struct {
	// Dirs is the handoff root's fixed directory layout.
	Dirs Dirs

	// TargetRepo is the main repository the loop creates per-task
	// worktrees from. The loop never writes to it directly — only
	// through safevcs worktree operations.
	TargetRepo string

	// Engine is the container engine binary: "docker" or "podman".
	Engine string

	// Image is the container image tag every sandboxed invocation
	// runs against.
	Image string

	// ExecutorCommand is the command (and arguments) run inside the
	// sandbox to perform the AI-generated edit. Treated as opaque by
	// the loop; a placeholder/echo command is acceptable for early
	// deployments per spec.
	ExecutorCommand []string

	// ExecutorTimeout bounds the executor invocation. Falls back to
	// sandboxrunner.DefaultTimeout when zero.
	ExecutorTimeout time.Duration

	// PollInterval is the pause between passes in continuous mode.
	PollInterval time.Duration

	// Clock abstracts the sleep between passes. Defaults to
	// clock.Real(); tests inject clock.Fake() to drive Run's poll loop
	// deterministically without sleeping wall-clock time.
	Clock clock.Clock

	Logger *slog.Logger
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

func (c Config) clock() clock.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clock.Real()
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
