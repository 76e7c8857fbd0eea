// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safefs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteAtomic writes data to path, which must resolve inside root.
// No component of the parent chain below root may be a symlink. The
// file is first written to a sibling temporary name suffixed with a
// high-entropy nonce (mode 0o644), fsynced, then renamed into place so
// readers never observe a partial write. On failure, the temporary
// file is removed.
func WriteAtomic(path string, data []byte, root string) error {
	resolved, err := checkContained(path, root)
	if err != nil {
		return err
	}
	if err := checkParentChainNotSymlink(resolved, root); err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(resolved), uuid.NewString()))

	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(tempPath, resolved); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temporary file into place for %s: %w", path, err)
	}

	if parentDir, err := os.Open(dir); err == nil {
		parentDir.Sync()
		parentDir.Close()
	}

	return nil
}
