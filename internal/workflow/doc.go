// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package workflow drives externally managed resources through an ordered
// pipeline of transitions. Each Step issues one mutating call and then polls
// the resource until it reports a success or failure status, or until the
// step runs out of attempts.
//
// WorkItems are processed one at a time on the calling goroutine. Every item
// moves through its own state machine:
//
//	pending -> step_1_waiting -> ... -> step_n_waiting -> done
//	                  \______________________/
//	                             |
//	                           failed
//
// A failed item does not stop the run unless the engine was built with
// HaltOnFailure. Completed items are handed to the result Sink as soon as
// they finish so a crash keeps what was already done.
//
// Calls are not idempotent. Re-running an item from the start repeats every
// mutation; set WorkItem.Checkpoint to skip steps that already completed.
package workflow
