// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package loop implements the end-to-end orchestration state machine:
// queued → claimed → running → verifying → (scanning) → finalized.
// It ties together safefs, safevcs, scanner, sandboxrunner, safety,
// and task into the single sequential worker described by the
// handoff-directory protocol.
package loop
