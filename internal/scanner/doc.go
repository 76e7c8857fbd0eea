// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scanner detects a fixed catalog of secret patterns across a
// potentially unbounded byte stream delivered in arbitrary chunk
// sizes, without ever holding the whole stream in memory and without
// ever exposing the matched bytes through its API.
//
// The catalog is a plain table (patterns.go), not a type hierarchy —
// adding a pattern means adding a row. Streaming scan carries an
// 8 KiB tail buffer forward between calls so a pattern split across a
// chunk boundary is still found once both halves have arrived, while
// a small per-offset ledger keeps a match already reported from being
// reported again once it is rescanned as part of that carried tail.
package scanner
