// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package resultlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tfctl/opsctl/internal/workflow"
)

// Aliases maps a header name accepted on input to the column it stands for.
type Aliases map[string]string

// ReadFile opens path and reads it with Read.
func ReadFile(path string, keyColumn string, required ...string) ([]*workflow.WorkItem, error) {
	return ReadFileAliased(path, nil, keyColumn, required...)
}

// ReadFileAliased is ReadFile with header aliases.
func ReadFileAliased(path string, aliases Aliases, keyColumn string, required ...string) ([]*workflow.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	items, err := ReadAliased(f, aliases, keyColumn, required...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Read parses a CSV with a header row into WorkItems. keyColumn names the
// column used as the item key; it and every required column must be present
// and non-empty on each row. An optional checkpoint column sets the item's
// Checkpoint. Blank lines are skipped.
func Read(r io.Reader, keyColumn string, required ...string) ([]*workflow.WorkItem, error) {
	return ReadAliased(r, nil, keyColumn, required...)
}

// ReadAliased is Read with header names renamed through aliases first. A
// header that names both an alias and its column is rejected.
func ReadAliased(r io.Reader, aliases Aliases, keyColumn string, required ...string) ([]*workflow.WorkItem, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, name := range header {
		if column, ok := aliases[name]; ok {
			header[i] = column
		}
	}

	index := map[string]int{}
	for i, name := range header {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %s", name)
		}
		index[name] = i
	}

	var missing []string
	for _, name := range append([]string{keyColumn}, required...) {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}

	var items []*workflow.WorkItem
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		attrs := map[string]string{}
		checkpoint := 0
		for i, name := range header {
			value := strings.TrimSpace(row[i])
			switch name {
			case CheckpointColumn:
				if value == "" {
					continue
				}
				checkpoint, err = strconv.Atoi(value)
				if err != nil || checkpoint < 0 {
					return nil, fmt.Errorf("line %d: invalid checkpoint %q", line, value)
				}
			case FailedStepColumn, ErrorColumn:
			default:
				attrs[name] = value
			}
		}

		for _, name := range append([]string{keyColumn}, required...) {
			if attrs[name] == "" {
				return nil, fmt.Errorf("line %d: %s is empty", line, name)
			}
		}

		item := workflow.NewWorkItem(attrs[keyColumn], attrs)
		item.Checkpoint = checkpoint
		items = append(items, item)
	}

	return items, nil
}
