// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SecretFilenameViolation names a created file whose name the
// secretless-filename policy forbids.
type SecretFilenameViolation struct {
	File string
}

func (e *SecretFilenameViolation) Error() string {
	return fmt.Sprintf("file %q violates the secretless-filename policy", e.File)
}

// filenameExceptions are base names that would otherwise match the
// forbidden .env* pattern but are conventionally safe templates
// rather than real secrets.
var filenameExceptions = map[string]bool{
	".env.example":  true,
	".env.template": true,
}

// CheckFilenames verifies that no entry in files is named in a way
// the secretless-filename policy forbids: .env, .env.*, *.pem, *.key,
// excluding the .env.example / .env.template templates.
func CheckFilenames(files []string) error {
	for _, file := range files {
		if isForbiddenFilename(file) {
			return &SecretFilenameViolation{File: file}
		}
	}
	return nil
}

func isForbiddenFilename(file string) bool {
	base := filepath.Base(file)
	if filenameExceptions[base] {
		return false
	}
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return true
	}
	if strings.HasSuffix(base, ".pem") || strings.HasSuffix(base, ".key") {
		return true
	}
	return false
}
