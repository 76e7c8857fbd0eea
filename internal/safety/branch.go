// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import "fmt"

// defaultBranches are the branch names that trigger auto-branching
// rather than being reused directly.
var defaultBranches = map[string]bool{"main": true, "master": true}

// BranchFor returns the branch the loop should check out in a task's
// worktree: a fresh feat/ai/<id> branch if currentBranch is one of the
// conventional default branches, or currentBranch unchanged otherwise.
func BranchFor(currentBranch, taskID string) string {
	if defaultBranches[currentBranch] {
		return fmt.Sprintf("feat/ai/%s", taskID)
	}
	return currentBranch
}
