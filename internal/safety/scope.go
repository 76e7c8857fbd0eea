// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"fmt"
	"sort"
	"strings"
)

// ScopeViolation names the first changed file that no scope entry
// matched.
type ScopeViolation struct {
	File string
}

func (e *ScopeViolation) Error() string {
	return fmt.Sprintf("file %q is outside the task's declared scope", e.File)
}

// CheckScope verifies that every entry in changedFiles matches at
// least one pattern in scope, per the matching rules: exact match,
// directory-prefix match (S + "/"), or glob-style S ending in "/*"
// matching anything under the preceding directory. On the first
// unmatched file it returns a *ScopeViolation naming it.
func CheckScope(scope []string, changedFiles []string) error {
	sorted := append([]string(nil), changedFiles...)
	sort.Strings(sorted)

	for _, file := range sorted {
		if !matchesAnyScope(scope, file) {
			return &ScopeViolation{File: file}
		}
	}
	return nil
}

func matchesAnyScope(scope []string, file string) bool {
	for _, s := range scope {
		if matchesScope(s, file) {
			return true
		}
	}
	return false
}

func matchesScope(entry, file string) bool {
	if entry == file {
		return true
	}
	if strings.HasSuffix(entry, "/*") {
		dir := strings.TrimSuffix(entry, "/*")
		return file == dir || strings.HasPrefix(file, dir+"/")
	}
	return strings.HasPrefix(file, entry+"/")
}
