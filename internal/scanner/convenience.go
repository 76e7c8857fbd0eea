// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

// ScanResult is the outcome of a one-shot scan of a complete string.
type ScanResult struct {
	Matches []Match
}

// ScanString runs a fresh Scanner over the entirety of s and returns
// every match. It is equivalent to Scan(s) followed by Finalize, for
// callers that already have the whole input in memory.
func ScanString(s string) ScanResult {
	scanner := New()
	matches := scanner.Scan([]byte(s))
	matches = append(matches, scanner.Finalize()...)
	return ScanResult{Matches: matches}
}

// ContainsSecrets is a fast predicate equivalent to
// len(ScanString(s).Matches) != 0, stopping at the first match found.
func ContainsSecrets(s string) bool {
	data := []byte(s)
	for _, pattern := range Catalog {
		if pattern.Regex.Match(data) {
			return true
		}
	}
	return false
}
