// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxrunner

import (
	"fmt"
	"os"
	"sort"
)

// ContainerArgsBuilder assembles the argument list for an OCI
// container engine invocation. Flags are always emitted in the same
// order for a given RunSpec, and environment variables are sorted by
// name before being emitted, so two builds from identical input are
// byte-for-byte identical — useful for tests and for logging the
// exact command that was run.
type ContainerArgsBuilder struct{}

// NewContainerArgsBuilder returns a ready-to-use builder.
func NewContainerArgsBuilder() *ContainerArgsBuilder {
	return &ContainerArgsBuilder{}
}

// Build returns the full argument list for "<engine> run <args...>"
// given spec. It does not include the engine binary name itself.
func (b *ContainerArgsBuilder) Build(spec RunSpec) ([]string, error) {
	if spec.Image == "" {
		return nil, fmt.Errorf("sandboxrunner: image is required")
	}
	if spec.Worktree == "" {
		return nil, fmt.Errorf("sandboxrunner: worktree is required")
	}
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("sandboxrunner: command is required")
	}

	args := []string{
		"run", "--rm",
		"--network=none",
		"--read-only",
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
		fmt.Sprintf("--pids-limit=%d", spec.pidsLimit()),
		fmt.Sprintf("--memory=%s", spec.memoryLimit()),
		fmt.Sprintf("--cpus=%s", spec.cpuLimit()),
		fmt.Sprintf("--user=%d:%d", spec.UID, spec.GID),
		"--mount", fmt.Sprintf("type=bind,src=%s,dst=/workspace", spec.Worktree),
		"--mount", fmt.Sprintf("type=tmpfs,dst=/tmp,tmpfs-opts=noexec,nosuid,nodev,size=%s", spec.tmpfsSize()),
		"--workdir=/workspace",
	}

	for _, env := range b.envArgs(spec) {
		args = append(args, "--env", env)
	}

	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	return args, nil
}

// envArgs returns "NAME=value" entries for every allow-listed
// variable present in spec.Env (or the process environment when
// spec.Env is nil), sorted by name for deterministic output.
func (b *ContainerArgsBuilder) envArgs(spec RunSpec) []string {
	lookup := func(name string) (string, bool) {
		if spec.Env != nil {
			value, ok := spec.Env[name]
			return value, ok
		}
		return os.LookupEnv(name)
	}

	names := append([]string(nil), EnvAllowList...)
	sort.Strings(names)

	var entries []string
	for _, name := range names {
		if value, ok := lookup(name); ok {
			entries = append(entries, fmt.Sprintf("%s=%s", name, value))
		}
	}
	return entries
}
