// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safefs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists reports whether path, which must resolve inside root,
// exists. A path escaping root is treated as not existing rather than
// an error, matching os.Stat-style ergonomics for call sites that only
// need a boolean.
func Exists(path, root string) bool {
	resolved, err := checkContained(path, root)
	if err != nil {
		return false
	}
	_, err = os.Lstat(resolved)
	return err == nil
}

// Mkdir creates the directory at path (and any missing parents within
// root), which must resolve inside root, with mode 0o755.
func Mkdir(path, root string) error {
	resolved, err := checkContained(path, root)
	if err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolved, root); err != nil {
		return err
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// Unlink removes the file at path, which must resolve inside root.
func Unlink(path, root string) error {
	resolved, err := checkContained(path, root)
	if err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolved, root); err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Rmdir recursively removes the directory at path, which must itself
// resolve inside root — recursion never escapes root because it
// starts from an already-contained directory and only descends.
func Rmdir(path, root string) error {
	resolved, err := checkContained(path, root)
	if err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolved, root); err != nil {
		return err
	}
	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("removing directory %s: %w", path, err)
	}
	return nil
}

// Readdir lists the entry names of the directory at path, which must
// resolve inside root.
func Readdir(path, root string) ([]string, error) {
	resolved, err := checkContained(path, root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Rename atomically moves a file from oldPath to newPath. Both must
// resolve inside root, and oldPath's and newPath's parent chains below
// root must not contain a symlink. This is the primitive the
// orchestration loop uses for tasks/ → running/ and similar queue
// transitions: a single rename, never observed half-complete.
func Rename(oldPath, newPath, root string) error {
	resolvedOld, err := checkContained(oldPath, root)
	if err != nil {
		return err
	}
	resolvedNew, err := checkContained(newPath, root)
	if err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolvedOld, root); err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolvedNew, root); err != nil {
		return err
	}
	if err := os.Rename(resolvedOld, resolvedNew); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", oldPath, newPath, err)
	}
	if parentDir, err := os.Open(filepath.Dir(resolvedNew)); err == nil {
		parentDir.Sync()
		parentDir.Close()
	}
	return nil
}
