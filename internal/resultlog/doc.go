// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package resultlog reads WorkItems from CSV input and records workflow
// outcomes as CSV. A Writer is a workflow.Sink: the engine appends each
// finished item and the record is on disk before the next item starts.
//
// Failed items are written with FailureFields, which adds checkpoint,
// failed_step and error columns. The resulting file can be passed back as
// input; Read restores the checkpoint and the engine resumes each item after
// its last completed step.
package resultlog
