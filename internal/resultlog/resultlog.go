// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package resultlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// Reserved column names. CheckpointColumn is read back as WorkItem.Checkpoint;
// the other two are informational and dropped on read.
const (
	CheckpointColumn = "checkpoint"
	FailedStepColumn = "failed_step"
	ErrorColumn      = "error"
)

// Column is one field of a written record.
type Column struct {
	Name  string
	Value func(item *workflow.WorkItem) string
}

// Fields returns columns that read each name from the item's outputs, falling
// back to its input fields.
func Fields(names ...string) []Column {
	return lo.Map(names, func(name string, _ int) Column {
		return Column{Name: name, Value: func(item *workflow.WorkItem) string { return item.Value(name) }}
	})
}

// FailureFields is Fields plus checkpoint, failing step and error class
// columns, so a failed item can be fed back as input.
func FailureFields(names ...string) []Column {
	cols := Fields(names...)
	return append(cols,
		Column{Name: CheckpointColumn, Value: func(item *workflow.WorkItem) string {
			return strconv.Itoa(item.Checkpoint)
		}},
		Column{Name: FailedStepColumn, Value: func(item *workflow.WorkItem) string {
			return item.FailedStep
		}},
		Column{Name: ErrorColumn, Value: func(item *workflow.WorkItem) string {
			if item.Err == nil {
				return ""
			}
			return fmt.Sprintf("%s: %v", workflow.Classify(item.Err), item.Err)
		}},
	)
}

// FileName returns "<prefix>_<stamp>.csv".
func FileName(prefix, stamp string) string {
	return fmt.Sprintf("%s_%s.csv", prefix, stamp)
}

// Writer appends one CSV record per WorkItem and flushes it to disk before
// returning, so a crash loses at most the item in flight. The file and its
// header are created on the first Append; a run with nothing to record leaves
// no file behind.
type Writer struct {
	path    string
	columns []Column

	file  *os.File
	csv   *csv.Writer
	count int
}

// NewWriter returns a Writer for dir/<prefix>_<stamp>.csv. The name is fixed
// here and never recomputed.
func NewWriter(dir, prefix, stamp string, columns []Column) *Writer {
	return &Writer{
		path:    filepath.Join(dir, FileName(prefix, stamp)),
		columns: columns,
	}
}

// Path is the file the Writer appends to.
func (w *Writer) Path() string { return w.path }

// Count is the number of records written.
func (w *Writer) Count() int { return w.count }

// Append implements workflow.Sink.
func (w *Writer) Append(item *workflow.WorkItem) error {
	if err := w.open(); err != nil {
		return err
	}

	record := lo.Map(w.columns, func(c Column, _ int) string { return c.Value(item) })
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.path, err)
	}

	w.count++
	log.Debugf("%s: recorded in %s", item.Key, w.path)
	return nil
}

func (w *Writer) open() error {
	if w.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(w.path), err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}

	cw := csv.NewWriter(f)
	header := lo.Map(w.columns, func(c Column, _ int) string { return c.Name })
	if err := cw.Write(header); err != nil {
		return errors.Join(fmt.Errorf("write header %s: %w", w.path, err), f.Close())
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Join(fmt.Errorf("write header %s: %w", w.path, err), f.Close())
	}

	w.file = f
	w.csv = cw
	return nil
}

// Close closes the file if one was opened.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := errors.Join(w.csv.Error(), w.file.Close())
	w.file = nil
	return err
}
