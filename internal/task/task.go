// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"regexp"
	"time"
)

// idPattern is the allowed character set for a Task id: ASCII,
// path-safe, no separators or parent-directory references, so an id
// can always be used verbatim as a filename.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Verify describes a single verification command to run after the
// executor, inside the sandbox.
type Verify struct {
	Cmd          string   `json:"cmd"`
	Args         []string `json:"args,omitempty"`
	ExpectedExit int      `json:"expected_exit"`
	TimeoutSec   int      `json:"timeout_sec"`
}

// Task is an immutable, schema-validated description of work.
type Task struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Prompt        string    `json:"prompt"`
	Scope         []string  `json:"scope"`
	Verify        []Verify  `json:"verify"`
	Priority      int       `json:"priority,omitempty"`
	StopOnFailure *bool     `json:"stop_on_failure,omitempty"`
}

// StopOnFailureOrDefault returns t.StopOnFailure's value, defaulting
// to true when unset.
func (t Task) StopOnFailureOrDefault() bool {
	if t.StopOnFailure == nil {
		return true
	}
	return *t.StopOnFailure
}

// Validate checks every Task invariant: id is path-safe, scope is
// nonempty, and every verify entry names a command.
func (t Task) Validate() error {
	if t.ID == "" || !idPattern.MatchString(t.ID) {
		return fmt.Errorf("task: id %q must match %s", t.ID, idPattern.String())
	}
	if len(t.Scope) == 0 {
		return fmt.Errorf("task %s: scope must be nonempty", t.ID)
	}
	for i, v := range t.Verify {
		if v.Cmd == "" {
			return fmt.Errorf("task %s: verify[%d] has empty cmd", t.ID, i)
		}
	}
	return nil
}
