// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"fmt"
	"path/filepath"

	"github.com/taskcage/taskcage/internal/safefs"
)

// Dirs names the fixed subdirectories of a handoff root. The loop
// owns everything under Root for the duration it holds the worker
// lock and treats the rest of the filesystem as read-only, except for
// the target repository it mutates exclusively through safevcs.
type Dirs struct {
	Root    string
	Tasks   string
	Running string
	Results string
	Patches string
	Logs    string
	Locks   string
	Tmp     string
}

// NewDirs returns the fixed Dirs layout rooted at root.
func NewDirs(root string) Dirs {
	return Dirs{
		Root:    root,
		Tasks:   filepath.Join(root, "tasks"),
		Running: filepath.Join(root, "running"),
		Results: filepath.Join(root, "results"),
		Patches: filepath.Join(root, "patches"),
		Logs:    filepath.Join(root, "logs"),
		Locks:   filepath.Join(root, "locks"),
		Tmp:     filepath.Join(root, "tmp"),
	}
}

// Ensure creates every subdirectory of d that does not yet exist.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Tasks, d.Running, d.Results, d.Patches, d.Logs, d.Locks, d.Tmp} {
		if err := safefs.Mkdir(dir, d.Root); err != nil {
			return fmt.Errorf("loop: preparing directory %s: %w", dir, err)
		}
	}
	return nil
}

// WorkerLockPath is the fixed, singleton worker lock file name.
func (d Dirs) WorkerLockPath() string {
	return filepath.Join(d.Locks, "__worker__.lock")
}

// TaskLockPath returns the per-task lock path for id.
func (d Dirs) TaskLockPath(id string) string {
	return filepath.Join(d.Locks, id+".lock")
}

// TaskFilePath returns the tasks/<id>.json path for id.
func (d Dirs) TaskFilePath(id string) string {
	return filepath.Join(d.Tasks, id+".json")
}

// RunningFilePath returns the running/<id>.json path for id.
func (d Dirs) RunningFilePath(id string) string {
	return filepath.Join(d.Running, id+".json")
}

// ResultFilePath returns the results/<id>.json path for id.
func (d Dirs) ResultFilePath(id string) string {
	return filepath.Join(d.Results, id+".json")
}

// PatchFilePath returns the patches/<id>.patch path for id.
func (d Dirs) PatchFilePath(id string) string {
	return filepath.Join(d.Patches, id+".patch")
}

// LogFilePath returns the logs/<id>_<index>_<stream>.log path for the
// index'th verify entry's stdout or stderr spill.
func (d Dirs) LogFilePath(id string, index int, stream string) string {
	return filepath.Join(d.Logs, fmt.Sprintf("%s_%d_%s.log", id, index, stream))
}

// SpillLogPath returns the content-addressed path for a spilled
// verify stream: logs/<id>_<index>_<stream>_<hash>.log, or the same
// with a .zst suffix when the content was zstd-compressed. hash is
// the spilled content's truncated BLAKE3 digest, so re-running a task
// that reproduces byte-identical output reuses the same file instead
// of growing logs/ without bound.
func (d Dirs) SpillLogPath(id string, index int, stream, hash string, compressed bool) string {
	name := fmt.Sprintf("%s_%d_%s_%s.log", id, index, stream, hash)
	if compressed {
		name += ".zst"
	}
	return filepath.Join(d.Logs, name)
}

// WorktreePath returns the tmp/ws-<id> path for id's working tree.
func (d Dirs) WorktreePath(id string) string {
	return filepath.Join(d.Tmp, "ws-"+id)
}
