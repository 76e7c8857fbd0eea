// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"strings"
	"testing"
	"time"
)

func validTaskJSON() string {
	return `{
		"id": "task-1",
		"created_at": "2026-01-01T00:00:00Z",
		"prompt": "do the thing",
		"scope": ["src/a.txt"],
		"verify": [{"cmd": "go", "args": ["test", "./..."]}]
	}`
}

func TestParseValidTask(t *testing.T) {
	parsed, err := Parse([]byte(validTaskJSON()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.ID != "task-1" {
		t.Errorf("ID = %q, want task-1", parsed.ID)
	}
	if len(parsed.Verify) != 1 {
		t.Fatalf("Verify = %+v, want one entry", parsed.Verify)
	}
	if parsed.Verify[0].TimeoutSec != DefaultVerifyTimeoutSec {
		t.Errorf("Verify[0].TimeoutSec = %d, want default %d", parsed.Verify[0].TimeoutSec, DefaultVerifyTimeoutSec)
	}
	if !parsed.StopOnFailureOrDefault() {
		t.Error("StopOnFailureOrDefault() = false, want true when unset")
	}
}

func TestParseRejectsInvalidID(t *testing.T) {
	tests := []string{
		`{"id": "../escape", "scope": ["a"], "verify": [{"cmd": "x"}]}`,
		`{"id": "has/slash", "scope": ["a"], "verify": [{"cmd": "x"}]}`,
		`{"id": "", "scope": ["a"], "verify": [{"cmd": "x"}]}`,
	}
	for _, data := range tests {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Parse(%s): expected error, got nil", data)
		}
	}
}

func TestParseRejectsEmptyScope(t *testing.T) {
	data := `{"id": "task-1", "scope": [], "verify": [{"cmd": "x"}]}`
	if _, err := Parse([]byte(data)); err == nil {
		t.Fatal("Parse: expected error for empty scope, got nil")
	}
}

func TestParseRejectsVerifyWithEmptyCmd(t *testing.T) {
	data := `{"id": "task-1", "scope": ["a"], "verify": [{"cmd": ""}]}`
	if _, err := Parse([]byte(data)); err == nil {
		t.Fatal("Parse: expected error for empty verify cmd, got nil")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("Parse: expected error for malformed JSON, got nil")
	}
}

func TestStopOnFailureExplicitFalse(t *testing.T) {
	falseVal := false
	tk := Task{ID: "x", Scope: []string{"a"}, Verify: []Verify{{Cmd: "x"}}, StopOnFailure: &falseVal}
	if tk.StopOnFailureOrDefault() {
		t.Error("StopOnFailureOrDefault() = true, want false when explicitly set to false")
	}
}

func TestMarshalCanonicalIsIndentedWithTrailingNewline(t *testing.T) {
	tk := Task{ID: "task-1", Scope: []string{"a"}, Verify: []Verify{{Cmd: "x"}}}
	data, err := MarshalCanonical(tk)
	if err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("MarshalCanonical output does not end with a newline")
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("MarshalCanonical output does not appear indented")
	}
}

func TestResultRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	result := Result{
		TaskID:      "task-1",
		Status:      StatusSuccess,
		ExitPath:    ExitCompletedSuccess,
		StartedAt:   now,
		CompletedAt: now.Add(time.Second),
		DurationMS:  1000,
	}
	data, err := MarshalCanonical(result)
	if err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
	if !strings.Contains(string(data), `"exit_path": "completed_success"`) {
		t.Errorf("marshaled result missing exit_path: %s", data)
	}
}
