// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxrunner

import (
	"context"
	"os/exec"
	"time"
)

// IsEngineAvailable reports whether engineBinary ("docker" or
// "podman") is reachable on PATH.
func IsEngineAvailable(engineBinary string) bool {
	_, err := exec.LookPath(engineBinary)
	return err == nil
}

// IsImageAvailable reports whether tag is present in the local image
// store of engineBinary, probing with "<engine> image inspect <tag>".
func IsImageAvailable(engineBinary, tag string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, engineBinary, "image", "inspect", tag)
	return cmd.Run() == nil
}

// Preflight checks both engine reachability and image presence,
// returning a descriptive error naming whichever check failed so the
// orchestration loop can fail fast before claiming any task.
func Preflight(engineBinary, image string) error {
	if !IsEngineAvailable(engineBinary) {
		return &PreflightError{Reason: "container engine not found on PATH: " + engineBinary}
	}
	if !IsImageAvailable(engineBinary, image) {
		return &PreflightError{Reason: "image not available: " + image}
	}
	return nil
}

// PreflightError reports a fatal pre-flight condition: the worker
// must abort before touching any task.
type PreflightError struct {
	Reason string
}

func (e *PreflightError) Error() string {
	return "sandbox preflight failed: " + e.Reason
}
