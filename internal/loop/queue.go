// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"sort"
	"strings"

	"github.com/taskcage/taskcage/internal/safefs"
	"github.com/taskcage/taskcage/internal/task"
)

// candidate is a successfully parsed, schema-valid Task awaiting
// processing.
type candidate struct {
	task task.Task
}

// invalidEntry names a tasks/ file that failed schema validation,
// along with the decode error to record as the result's reason.
type invalidEntry struct {
	id  string
	err error
}

// enumerate lists tasks/*.json, separating entries that parse and
// validate from ones that don't. Valid entries are sorted by
// (priority desc, created_at asc), ties broken by id ascending, per
// the across-tasks ordering guarantee.
func enumerate(dirs Dirs) ([]candidate, []invalidEntry, error) {
	names, err := safefs.Readdir(dirs.Tasks, dirs.Root)
	if err != nil {
		return nil, nil, err
	}

	var valid []candidate
	var invalid []invalidEntry
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		data, err := safefs.Read(dirs.TaskFilePath(id), dirs.Root)
		if err != nil {
			invalid = append(invalid, invalidEntry{id: id, err: err})
			continue
		}

		t, err := task.Parse(data)
		if err != nil {
			invalid = append(invalid, invalidEntry{id: id, err: err})
			continue
		}
		valid = append(valid, candidate{task: t})
	}

	sort.Slice(valid, func(i, j int) bool {
		a, b := valid[i].task, valid[j].task
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return valid, invalid, nil
}
