// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

// Status is a resource status as reported by the control plane, e.g.
// "stopped", "available", "SUCCESS".
type Status string

func (s Status) String() string { return string(s) }

// Condition decides whether an observed status ends a poll loop.
type Condition func(Status) bool

// StatusIn matches any of the given statuses exactly.
func StatusIn(statuses ...Status) Condition {
	return func(s Status) bool {
		for _, want := range statuses {
			if s == want {
				return true
			}
		}
		return false
	}
}

// Never is the Condition that never matches. It is the default Failure.
func Never(Status) bool { return false }
