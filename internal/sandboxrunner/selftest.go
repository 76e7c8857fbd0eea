// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandboxrunner

import (
	"context"
	"fmt"
	"strings"
)

// SelfTest is one isolation check run inside the sandbox image itself,
// rather than against the host process. A passing SelfTest means the
// isolation property held: Check receives the RunResult of executing
// Command inside the sandbox and returns nil if the expected
// (isolated) behavior was observed, or an error describing how
// isolation failed.
type SelfTest struct {
	Name        string
	Description string
	Command     []string
	Check       func(RunResult) error
}

// SelfTests is the fixed table of isolation checks run by --selftest.
// It is a table, not a hierarchy of test types, mirroring the
// teacher's escape-test catalog: each row names what it attempts and
// how to tell whether the attempt was blocked.
var SelfTests = []SelfTest{
	{
		Name:        "network-egress-blocked",
		Description: "attempt an outbound connection; must fail",
		Command:     []string{"sh", "-c", "wget -T 3 -q -O /dev/null http://1.1.1.1 && echo reached || echo blocked"},
		Check: func(result RunResult) error {
			if strings.Contains(string(result.Stdout), "reached") {
				return fmt.Errorf("outbound network connection succeeded")
			}
			return nil
		},
	},
	{
		Name:        "shadow-unreadable",
		Description: "attempt to read /etc/shadow; must fail",
		Command:     []string{"cat", "/etc/shadow"},
		Check: func(result RunResult) error {
			if result.ExitCode == 0 {
				return fmt.Errorf("read of /etc/shadow succeeded")
			}
			return nil
		},
	},
	{
		Name:        "write-outside-workspace-blocked",
		Description: "attempt to write outside /workspace; must fail",
		Command:     []string{"sh", "-c", "touch /etc/sandbox-escape-test"},
		Check: func(result RunResult) error {
			if result.ExitCode == 0 {
				return fmt.Errorf("write outside /workspace succeeded")
			}
			return nil
		},
	},
	{
		Name:        "workspace-read-write-works",
		Description: "write then read a file under /workspace; must succeed",
		Command:     []string{"sh", "-c", "echo selftest > /workspace/.sandbox-selftest && cat /workspace/.sandbox-selftest && rm /workspace/.sandbox-selftest"},
		Check: func(result RunResult) error {
			if result.ExitCode != 0 {
				return fmt.Errorf("workspace read/write failed: %s", result.Stderr)
			}
			if !strings.Contains(string(result.Stdout), "selftest") {
				return fmt.Errorf("workspace read/write returned unexpected output: %q", result.Stdout)
			}
			return nil
		},
	},
}

// SelfTestResult is the outcome of running one SelfTest.
type SelfTestResult struct {
	Test   SelfTest
	Passed bool
	Error  string
}

// RunSelfTests runs every entry in SelfTests through runner against
// base, overriding only Command per test.
func RunSelfTests(ctx context.Context, runner *Runner, base RunSpec) ([]SelfTestResult, error) {
	results := make([]SelfTestResult, 0, len(SelfTests))
	for _, test := range SelfTests {
		spec := base
		spec.Command = test.Command

		runResult, err := runner.Run(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("selftest %s: %w", test.Name, err)
		}

		result := SelfTestResult{Test: test}
		if err := test.Check(runResult); err != nil {
			result.Passed = false
			result.Error = err.Error()
		} else {
			result.Passed = true
		}
		results = append(results, result)
	}
	return results, nil
}
