// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for taskcage packages.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation — task IDs, branch names, incident correlation IDs —
// distinguishable across a single test binary run.
//
// This package has no taskcage-internal dependencies.
package testutil
