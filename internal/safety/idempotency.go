// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"fmt"
	"path/filepath"

	"github.com/taskcage/taskcage/internal/safefs"
)

// HasResult reports whether a result record for taskID already exists
// under resultsDir, which must resolve inside root. A task with an
// existing result is skipped as idempotent_skip rather than
// reprocessed.
func HasResult(resultsDir, taskID, root string) bool {
	path := filepath.Join(resultsDir, fmt.Sprintf("%s.json", taskID))
	return safefs.Exists(path, root)
}
