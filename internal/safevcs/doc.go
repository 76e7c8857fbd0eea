// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package safevcs performs git operations while guaranteeing that
// attacker-controlled hook scripts in a task's working tree cannot
// execute. Every invocation points core.hooksPath at /dev/null,
// disables auto-gc and advice output, and runs under a wall-clock
// timeout — the same envelope the orchestration loop relies on to
// treat an untrusted worktree as hostile input.
package safevcs
