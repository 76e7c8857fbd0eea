// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for task IDs, branch names, or incident
// correlation IDs that must stay distinguishable across a single test
// binary run, even when tests execute in the same second.
//
//	taskID := testutil.UniqueID("task")      // "task-1", "task-2", ...
//	branch := testutil.UniqueID("feat/ai")   // "feat/ai-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
