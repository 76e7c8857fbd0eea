// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for taskcage's
// command-line tools. It centralizes the one legitimate raw I/O
// pattern that exists before structured logging can take over: fatal
// error reporting to stderr followed by process exit.
package process
