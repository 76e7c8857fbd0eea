// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockState is the content of a lock file: enough to tell a live
// holder from a stale one left behind by a crashed process.
type LockState struct {
	PID       int       `json:"pid"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
	TaskID    string    `json:"task_id,omitempty"`
}

// ErrLockHeld is returned by AcquireLock when a live process already
// holds the lock.
var ErrLockHeld = errors.New("safety: lock held by a live process")

// AcquireLock attempts to atomically create the lock file at path. If
// the file already exists, its content is parsed and the recorded
// holder is checked for liveness (same host, process still running).
// A live holder makes acquisition fail with ErrLockHeld; a stale
// holder (different host, or a pid that is no longer running) is
// removed and acquisition is retried once.
func AcquireLock(path string, taskID string) error {
	state := LockState{
		PID:       os.Getpid(),
		Host:      hostname(),
		CreatedAt: time.Now(),
		TaskID:    taskID,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("safety: marshaling lock state: %w", err)
	}

	if err := createExclusive(path, data); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return fmt.Errorf("safety: creating lock %s: %w", path, err)
	}

	existing, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			// Raced with the holder releasing the lock; retry once.
			return retryCreateExclusive(path, data)
		}
		return fmt.Errorf("safety: reading lock %s: %w", path, readErr)
	}

	var existingState LockState
	if err := json.Unmarshal(existing, &existingState); err != nil {
		// Unparseable lock content cannot be trusted as live; treat as
		// stale and reclaim it.
		return reclaimStaleLock(path, data)
	}

	if existingState.Host == hostname() && processAlive(existingState.PID) {
		return ErrLockHeld
	}
	return reclaimStaleLock(path, data)
}

// ReleaseLock removes the lock file at path. A missing file is not an
// error: releasing an already-released lock is a no-op.
func ReleaseLock(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("safety: releasing lock %s: %w", path, err)
	}
	return nil
}

func reclaimStaleLock(path string, data []byte) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("safety: removing stale lock %s: %w", path, err)
	}
	return retryCreateExclusive(path, data)
}

func retryCreateExclusive(path string, data []byte) error {
	if err := createExclusive(path, data); err != nil {
		if os.IsExist(err) {
			return ErrLockHeld
		}
		return fmt.Errorf("safety: creating lock %s: %w", path, err)
	}
	return nil
}

func createExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		os.Remove(path)
		return err
	}
	if err := file.Sync(); err != nil {
		os.Remove(path)
		return err
	}
	if parentDir, err := os.Open(filepath.Dir(path)); err == nil {
		parentDir.Sync()
		parentDir.Close()
	}
	return nil
}

// processAlive reports whether pid names a running process, probing
// with signal 0 (no signal delivered, only existence/permission
// checked).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}
