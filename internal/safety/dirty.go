// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import "fmt"

// RepoDirtyError is returned when the target repository has an
// uncommitted change at the moment the loop considers a task. The
// loop maps this to exit_path = repo_dirty and refuses to process the
// task rather than risk mixing the task's changes with whatever is
// already sitting in the working tree.
type RepoDirtyError struct {
	Changed []string
}

func (e *RepoDirtyError) Error() string {
	return fmt.Sprintf("repository has %d uncommitted change(s)", len(e.Changed))
}

// dirtyStatus is the subset of safevcs.Status that CheckClean needs.
// Defined locally so this package does not import safevcs for a
// single boolean and a file list.
type dirtyStatus interface {
	Dirty() bool
	ChangedFiles() []string
}

// CheckClean refuses a dirty repository. status is typically the
// result of (*safevcs.Repository).Status.
func CheckClean(status dirtyStatus) error {
	if status.Dirty() {
		return &RepoDirtyError{Changed: status.ChangedFiles()}
	}
	return nil
}
