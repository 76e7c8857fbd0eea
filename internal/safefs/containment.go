// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safefs

import (
	"os"
	"path/filepath"
	"strings"
)

// IsContained resolves both path and root to absolute, cleaned forms
// and reports whether path is root itself or lies strictly beneath it,
// using an explicit separator boundary so that a sibling directory
// sharing root as a string prefix (e.g. root "/a/b" vs path "/a/bc")
// is never mistaken for being contained.
func IsContained(path, root string) bool {
	resolvedRoot, err := resolveClean(root)
	if err != nil {
		return false
	}
	resolvedPath, err := resolveClean(path)
	if err != nil {
		return false
	}
	if resolvedPath == resolvedRoot {
		return true
	}
	return strings.HasPrefix(resolvedPath, resolvedRoot+string(filepath.Separator))
}

// resolveClean returns the absolute, cleaned form of path. It does
// not require path to exist.
func resolveClean(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// checkContained validates that path resolves inside root and returns
// the cleaned absolute path, or a [PathEscapeError].
func checkContained(path, root string) (string, error) {
	resolvedRoot, err := resolveClean(root)
	if err != nil {
		return "", err
	}
	resolvedPath, err := resolveClean(path)
	if err != nil {
		return "", err
	}
	if resolvedPath != resolvedRoot && !strings.HasPrefix(resolvedPath, resolvedRoot+string(filepath.Separator)) {
		return "", &PathEscapeError{Path: path, Root: root}
	}
	return resolvedPath, nil
}

// checkParentChainNotSymlink walks every directory component of path
// between root (exclusive) and path's immediate parent (inclusive),
// failing with a [SymlinkError] if any component is itself a symlink.
// path must already be known to resolve inside root.
func checkParentChainNotSymlink(path, root string) error {
	resolvedRoot, err := resolveClean(root)
	if err != nil {
		return err
	}

	var components []string
	current := filepath.Dir(path)
	for {
		if current == resolvedRoot || len(current) <= len(resolvedRoot) {
			break
		}
		components = append(components, current)
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	// Check root-to-leaf so the first offending ancestor reported is
	// the outermost one.
	for i := len(components) - 1; i >= 0; i-- {
		info, err := os.Lstat(components[i])
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &SymlinkError{Path: components[i]}
		}
	}
	return nil
}
