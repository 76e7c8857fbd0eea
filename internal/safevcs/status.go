// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safevcs

import (
	"context"
	"fmt"
	"strings"
)

// Status is a structured report of a working tree's state, parsed
// from "git status --porcelain=v2 --branch".
type Status struct {
	Branch    string
	Staged    []string
	Unstaged  []string
	Untracked []string
	Renamed   []RenamedFile
}

// RenamedFile records a rename or copy detected by git status.
type RenamedFile struct {
	From string
	To   string
}

// Dirty reports whether the working tree has any staged, unstaged,
// untracked, or renamed change.
func (s Status) Dirty() bool {
	return len(s.Staged) > 0 || len(s.Unstaged) > 0 || len(s.Untracked) > 0 || len(s.Renamed) > 0
}

// ChangedFiles returns the union of every path touched by a staged,
// unstaged, untracked, or renamed entry, deduplicated. Renames
// contribute both their source and destination paths. This is the set
// the orchestration loop checks against a task's declared scope.
func (s Status) ChangedFiles() []string {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, f := range s.Staged {
		add(f)
	}
	for _, f := range s.Unstaged {
		add(f)
	}
	for _, f := range s.Untracked {
		add(f)
	}
	for _, r := range s.Renamed {
		add(r.From)
		add(r.To)
	}
	return files
}

// Status returns a structured report of the working tree state at
// r.Dir().
func (r *Repository) Status(ctx context.Context) (Status, error) {
	output, err := r.run(ctx, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return Status{}, err
	}

	var status Status
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "#":
			if len(fields) >= 3 && fields[1] == "branch.head" {
				status.Branch = fields[2]
			}
		case "1", "2":
			// Ordinary or rename/copy change entry. Format:
			// 1 XY sub mH mI mW hH hW path
			// 2 XY sub mH mI mW hH hW X score path<sep>origPath
			if len(fields) < 9 {
				continue
			}
			xy := fields[1]
			if fields[0] == "2" {
				parts := strings.SplitN(line, "\t", 2)
				var orig, to string
				if len(parts) == 2 {
					to = parts[1]
					head := strings.Fields(parts[0])
					if len(head) > 0 {
						orig = head[len(head)-1]
					}
				}
				status.Renamed = append(status.Renamed, RenamedFile{From: orig, To: to})
				continue
			}
			path := fields[len(fields)-1]
			classifyXY(xy, path, &status)
		case "?":
			if len(fields) >= 2 {
				status.Untracked = append(status.Untracked, fields[1])
			}
		}
	}
	return status, nil
}

// classifyXY records path as staged and/or unstaged according to the
// two-character XY status code git status --porcelain=v2 emits, where
// X is the index state and Y is the worktree state relative to the
// index; '.' means unchanged in that column.
func classifyXY(xy, path string, status *Status) {
	if len(xy) != 2 {
		return
	}
	if xy[0] != '.' {
		status.Staged = append(status.Staged, path)
	}
	if xy[1] != '.' {
		status.Unstaged = append(status.Unstaged, path)
	}
}

// DiffMaxBytes bounds the size of a single Diff result. Output beyond
// this limit is truncated and a sentinel line is appended, matching
// the patch-file contract: a diff exactly at the limit is left
// untouched.
const DiffMaxBytes = 10 * 1024 * 1024

const truncationSentinel = "\n... [diff truncated at 10 MiB]\n"

// Diff returns the raw unified diff for the working tree. When staged
// is true it reports the diff of the index against HEAD; otherwise
// the diff of the working tree against the index. Output beyond
// DiffMaxBytes is truncated with a trailing sentinel.
func (r *Repository) Diff(ctx context.Context, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}
	output, err := r.runRaw(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	if len(output) <= DiffMaxBytes {
		return output, nil
	}
	return output[:DiffMaxBytes] + truncationSentinel, nil
}
