// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task defines the Task and Result data model: the
// schema-validated unit of work the orchestration loop consumes, and
// the canonical record of how it was resolved. Both types are plain
// JSON-tagged structs, following the teacher's lib/schema convention
// of expressing wire contracts as Go structs rather than a separate
// schema language.
package task
