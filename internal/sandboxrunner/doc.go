// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandboxrunner executes a single command inside a minimally
// privileged, network-less container and reports its exit code,
// captured output, and whether it was killed for running past its
// timeout.
//
// It is restructured from the teacher's bubblewrap-targeting builder
// into one that targets an external OCI container engine (docker or
// podman): the same deterministic, sorted-flag assembly discipline,
// the same availability-probe-before-launch pattern, and the same
// process-group kill-on-timeout handling, retargeted at "docker run"
// / "podman run" instead of "bwrap".
package sandboxrunner
