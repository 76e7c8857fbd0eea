// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxrunner

import (
	"strings"
	"testing"
)

func TestBuildIncludesHardeningFlags(t *testing.T) {
	spec := RunSpec{
		Image:    "taskcage/executor:latest",
		Worktree: "/handoff/tmp/ws-task-1",
		Command:  []string{"./run.sh"},
		UID:      1000,
		GID:      1000,
	}

	args, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--network=none",
		"--read-only",
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
		"--pids-limit=256",
		"--memory=2g",
		"--cpus=2",
		"--user=1000:1000",
		"type=bind,src=/handoff/tmp/ws-task-1,dst=/workspace",
		"type=tmpfs,dst=/tmp,tmpfs-opts=noexec,nosuid,nodev,size=512m",
		"--workdir=/workspace",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("Build args missing %q; got %v", want, args)
		}
	}
}

func TestBuildAppendsImageThenCommand(t *testing.T) {
	spec := RunSpec{
		Image:    "taskcage/executor:latest",
		Worktree: "/handoff/tmp/ws-task-1",
		Command:  []string{"./verify.sh", "--strict"},
		UID:      1000,
		GID:      1000,
	}

	args, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	imageIndex := -1
	for i, a := range args {
		if a == spec.Image {
			imageIndex = i
			break
		}
	}
	if imageIndex == -1 {
		t.Fatalf("image tag %q not found in args %v", spec.Image, args)
	}
	if imageIndex+3 > len(args) {
		t.Fatalf("not enough args after image tag: %v", args)
	}
	if args[imageIndex+1] != "./verify.sh" || args[imageIndex+2] != "--strict" {
		t.Errorf("command args after image = %v, want [./verify.sh --strict]", args[imageIndex+1:])
	}
}

func TestBuildUsesOverriddenLimits(t *testing.T) {
	spec := RunSpec{
		Image:       "img",
		Worktree:    "/ws",
		Command:     []string{"true"},
		PIDsLimit:   512,
		MemoryLimit: "4g",
		CPULimit:    "4",
		TmpfsSize:   "1g",
	}

	args, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"--pids-limit=512", "--memory=4g", "--cpus=4", "size=1g"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Build args missing override %q; got %v", want, args)
		}
	}
}

func TestBuildRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		spec RunSpec
	}{
		{"missing image", RunSpec{Worktree: "/ws", Command: []string{"true"}}},
		{"missing worktree", RunSpec{Image: "img", Command: []string{"true"}}},
		{"missing command", RunSpec{Image: "img", Worktree: "/ws"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewContainerArgsBuilder().Build(test.spec); err == nil {
				t.Error("Build: expected error, got nil")
			}
		})
	}
}

func TestEnvArgsOnlyIncludesAllowListedNames(t *testing.T) {
	spec := RunSpec{
		Image:    "img",
		Worktree: "/ws",
		Command:  []string{"true"},
		Env: map[string]string{
			"PATH":          "/usr/bin",
			"HOME":          "/home/worker",
			"SECRET_TOKEN":  "should-not-appear",
			"AWS_SECRET_KEY": "also-should-not-appear",
		},
	}

	args, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "PATH=/usr/bin") {
		t.Error("allow-listed PATH missing from args")
	}
	if !strings.Contains(joined, "HOME=/home/worker") {
		t.Error("allow-listed HOME missing from args")
	}
	if strings.Contains(joined, "SECRET_TOKEN") || strings.Contains(joined, "AWS_SECRET_KEY") {
		t.Errorf("non-allow-listed variable leaked into args: %v", args)
	}
}

func TestEnvArgsDeterministicOrder(t *testing.T) {
	spec := RunSpec{
		Image:    "img",
		Worktree: "/ws",
		Command:  []string{"true"},
		Env: map[string]string{
			"TZ":   "UTC",
			"HOME": "/home/worker",
			"CI":   "true",
		},
	}

	first, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := NewContainerArgsBuilder().Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Join(first, " ") != strings.Join(second, " ") {
		t.Errorf("Build is non-deterministic across calls:\n%v\n%v", first, second)
	}
}
