// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package safefs mediates every filesystem access the orchestrator
// makes under a handoff root or a per-task worktree. All operations
// take a root and a target path; the target must resolve inside root,
// otherwise the call fails with [PathEscapeError].
//
// [Read] defends against the classic TOCTOU race where an attacker
// swaps a regular file for a symlink between a check (lstat) and a
// use (open): it opens with O_NOFOLLOW so the kernel itself refuses
// to traverse a terminal symlink, rather than relying on a prior
// stat call that could be invalidated by a concurrent rename.
//
// [WriteAtomic] additionally walks the parent directory chain below
// root with non-following metadata calls, refusing to write through a
// symlinked ancestor, then writes to a sibling temporary file with a
// high-entropy nonce suffix before renaming it into place — the same
// write/fsync/rename/fsync-parent-directory sequence used throughout
// this codebase for durable, atomic state transitions.
package safefs
