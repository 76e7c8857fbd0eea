// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "time"

// Status is the high-level outcome of a task's lifecycle.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusError          Status = "error"
	StatusSecretDetected Status = "secret_detected"
)

// ExitPath is the closed set of terminal reasons a task's processing
// ended. Every Result carries exactly one.
type ExitPath string

const (
	ExitCompletedSuccess    ExitPath = "completed_success"
	ExitCompletedFailed     ExitPath = "completed_failed"
	ExitWorkerLocked        ExitPath = "worker_locked"
	ExitSchemaInvalid       ExitPath = "schema_invalid"
	ExitIdempotentSkip      ExitPath = "idempotent_skip"
	ExitBranchCheckoutFailed ExitPath = "branch_checkout_failed"
	ExitRepoDirty           ExitPath = "repo_dirty"
	ExitOpencodeTimeout     ExitPath = "opencode_timeout"
	ExitOpencodeCrashed     ExitPath = "opencode_crashed"
	ExitVerifyFailed        ExitPath = "verify_failed"
	ExitScopeViolation      ExitPath = "scope_violation"
	ExitSecretDetected      ExitPath = "secret_detected"
	ExitInternalError       ExitPath = "internal_error"
)

// VerificationResult records the outcome of one Task.Verify entry.
type VerificationResult struct {
	Cmd              string   `json:"cmd"`
	Args             []string `json:"args,omitempty"`
	ExitCode         int      `json:"exit_code"`
	ExpectedExit     int      `json:"expected_exit"`
	Passed           bool     `json:"passed"`
	DurationMS       int64    `json:"duration_ms"`
	OutputTruncated  bool     `json:"output_truncated"`
}

// Artifacts names the on-disk byproducts of a task run, if any.
type Artifacts struct {
	LogPath   string `json:"log_path,omitempty"`
	PatchPath string `json:"patch_path,omitempty"`
}

// SecretIncident records that a scan matched the catalog, without
// ever naming what matched beyond the pattern name.
type SecretIncident struct {
	Patterns     []string `json:"patterns"`
	MatchCount   int      `json:"match_count"`
	IncidentHash string   `json:"incident_hash"`
}

// Result is the canonical record of one task's lifecycle outcome.
// Exactly one Result is ever written per task id.
type Result struct {
	TaskID          string               `json:"task_id"`
	TaskSnapshot    Task                 `json:"task_snapshot"`
	Status          Status               `json:"status"`
	ExitPath        ExitPath             `json:"exit_path"`
	Reason          string               `json:"reason,omitempty"`
	StartedAt       time.Time            `json:"started_at"`
	CompletedAt     time.Time            `json:"completed_at"`
	DurationMS      int64                `json:"duration_ms"`
	Verification    []VerificationResult `json:"verification,omitempty"`
	Branch          string               `json:"branch,omitempty"`
	CommitBefore    string               `json:"commit_before,omitempty"`
	CommitAfter     string               `json:"commit_after,omitempty"`
	FilesChanged    []string             `json:"files_changed,omitempty"`
	Artifacts       Artifacts            `json:"artifacts"`
	SecretIncident  *SecretIncident      `json:"secret_incident,omitempty"`
	InsecureRunnerUsed bool              `json:"insecure_runner_used"`
}
