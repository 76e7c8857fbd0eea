// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"encoding/json"
	"fmt"
)

// DefaultVerifyTimeoutSec is applied to a Verify entry that omits
// timeout_sec.
const DefaultVerifyTimeoutSec = 60

// Parse decodes a Task from JSON, applies field defaults, and
// validates it. data is the exact byte content of a file under
// tasks/.
func Parse(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("task: decoding JSON: %w", err)
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (t *Task) applyDefaults() {
	for i := range t.Verify {
		if t.Verify[i].TimeoutSec == 0 {
			t.Verify[i].TimeoutSec = DefaultVerifyTimeoutSec
		}
	}
}

// MarshalCanonical serializes v as indented JSON with a trailing
// newline, the canonical on-disk form for both tasks and results.
func MarshalCanonical(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("task: encoding JSON: %w", err)
	}
	return append(data, '\n'), nil
}
