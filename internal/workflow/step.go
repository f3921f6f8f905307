// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Handle names the resources whose status decides a step. Most steps return a
// single id; a step that starts several executions returns all of them and is
// complete only when every one reports success.
type Handle struct {
	IDs []string
}

// HandleOf builds a Handle from ids.
func HandleOf(ids ...string) Handle {
	return Handle{IDs: ids}
}

// Action performs the step's single mutating call and returns what to poll.
// Ids created by the call (snapshot, volume, execution ARN) should be recorded
// on the item with SetOutput so later steps and the result log can use them.
type Action func(ctx context.Context, item *WorkItem) (Handle, error)

// Describer fetches the current status of one resource.
type Describer func(ctx context.Context, id string) (Status, error)

// Guard decides whether a step applies to an item. A step whose guard is false
// is skipped: no call is made and it counts as immediately successful.
type Guard func(item *WorkItem) bool

// Step is one transition in a workflow.
type Step struct {
	// Name identifies the step in logs and failure records.
	Name string
	// Guard is optional; nil means the step always runs.
	Guard Guard
	// Action is required. Use Observe for a step that only waits.
	Action Action
	// Describe polls the handle's ids. Nil means the call is synchronous and
	// the step completes as soon as Action returns.
	Describe Describer
	// Success must hold for every id in the handle.
	Success Condition
	// Failure aborts the item as soon as any id matches. Nil means Never.
	Failure Condition
	// PollInterval is the sleep between poll attempts.
	PollInterval time.Duration
	// MaxAttempts bounds the number of poll attempts.
	MaxAttempts int
	// ActionRetries is how many extra times a failing Action is re-issued,
	// RetryDelay apart. Zero, the default, never re-issues a mutating call.
	ActionRetries int
	RetryDelay    time.Duration
}

// Observe returns an Action that makes no call and hands target's ids to the
// poll loop. It is used for steps that wait for a resource to settle.
func Observe(target func(item *WorkItem) []string) Action {
	return func(_ context.Context, item *WorkItem) (Handle, error) {
		return HandleOf(target(item)...), nil
	}
}

// ItemKey is an Observe target returning the item's own key.
func ItemKey(item *WorkItem) []string {
	return []string{item.Key}
}

// Guarded returns a copy of s that only runs when guard holds.
func (s Step) Guarded(guard Guard) Step {
	s.Guard = guard
	return s
}

// WithPolling returns a copy of s with a different poll interval and budget.
// Non-positive values leave the existing setting alone.
func (s Step) WithPolling(interval time.Duration, maxAttempts int) Step {
	if interval > 0 {
		s.PollInterval = interval
	}
	if maxAttempts > 0 {
		s.MaxAttempts = maxAttempts
	}
	return s
}

func (s Step) validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("step has no name"))
	}
	if s.Action == nil {
		errs = append(errs, fmt.Errorf("step %q has no action", s.Name))
	}
	if s.Describe != nil {
		if s.Success == nil {
			errs = append(errs, fmt.Errorf("step %q polls but has no success condition", s.Name))
		}
		if s.MaxAttempts <= 0 {
			errs = append(errs, fmt.Errorf("step %q polls but max attempts is %d", s.Name, s.MaxAttempts))
		}
		if s.PollInterval < 0 {
			errs = append(errs, fmt.Errorf("step %q has a negative poll interval", s.Name))
		}
	}
	if s.ActionRetries < 0 {
		errs = append(errs, fmt.Errorf("step %q has negative action retries", s.Name))
	}
	return errors.Join(errs...)
}
