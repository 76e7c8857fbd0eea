// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safefs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Read reads the file at path, which must resolve inside root.
//
// The target is opened with O_NOFOLLOW, so if path itself names a
// symlink the open fails at the kernel level with [SymlinkError]
// rather than relying on a separate lstat check that a concurrent
// rename could invalidate between check and use.
func Read(path, root string) ([]byte, error) {
	resolved, err := checkContained(path, root)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(resolved, unix.O_RDONLY|unix.O_NOFOLLOW, 0)
	if err != nil {
		if err == unix.ELOOP {
			return nil, &SymlinkError{Path: path}
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	file := os.NewFile(uintptr(fd), resolved)
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, &SymlinkError{Path: path}
	}

	data := make([]byte, 0, info.Size())
	buf := make([]byte, 32*1024)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", path, readErr)
		}
		if n == 0 {
			break
		}
	}
	return data, nil
}
