// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package safety implements the orchestration loop's pre-flight and
// in-flight guardrails: worker and task lock files, idempotency and
// dirty-repo checks, the auto-branching rule, the secretless-filename
// policy, and scope enforcement against a task's declared file
// patterns.
package safety
