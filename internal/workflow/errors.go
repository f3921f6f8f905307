// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass names the kind of failure recorded for a WorkItem.
type ErrorClass string

const (
	ClassAPICall        ErrorClass = "api-call"
	ClassTerminalStatus ErrorClass = "terminal-status"
	ClassPollTimeout    ErrorClass = "poll-timeout"
	ClassPrecondition   ErrorClass = "precondition"
	ClassCanceled       ErrorClass = "canceled"
	ClassUnknown        ErrorClass = "unknown"
)

// APICallError is returned when a step's mutating call fails. The call is not
// retried beyond the step's ActionRetries.
type APICallError struct {
	Step     string
	Resource string
	Attempts int
	Err      error
}

func (e *APICallError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s %s: call failed after %d attempts: %v", e.Step, e.Resource, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s: call failed: %v", e.Step, e.Resource, e.Err)
}

func (e *APICallError) Unwrap() error { return e.Err }

// TerminalStatusError is returned when a polled resource reports a status the
// step declared as failure.
type TerminalStatusError struct {
	Step     string
	Resource string
	Status   Status
	Attempt  int
}

func (e *TerminalStatusError) Error() string {
	return fmt.Sprintf("%s: %s reported %q on attempt %d", e.Step, e.Resource, e.Status, e.Attempt)
}

// PollTimeoutError is returned when a step exhausts its poll attempts without
// seeing either a success or a failure status.
type PollTimeoutError struct {
	Step      string
	Resources []string
	Attempts  int
	Last      []Status
	// LastErr is the most recent describe error, if the final attempts failed.
	LastErr error
}

func (e *PollTimeoutError) Error() string {
	last := make([]string, len(e.Last))
	for i, s := range e.Last {
		last[i] = string(s)
	}
	msg := fmt.Sprintf("%s: %s did not settle after %d attempts (last status: %s)",
		e.Step, strings.Join(e.Resources, ","), e.Attempts, strings.Join(last, ","))
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *PollTimeoutError) Unwrap() error { return e.LastErr }

// PreconditionError is returned by lookups that must succeed before any
// mutation happens, such as a credentials profile or a target resource.
type PreconditionError struct {
	Check    string
	Resource string
	Err      error
}

func (e *PreconditionError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("precondition %s failed for %s: %v", e.Check, e.Resource, e.Err)
	}
	return fmt.Sprintf("precondition %s failed: %v", e.Check, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Precondition wraps err as a PreconditionError. It returns nil for a nil err.
func Precondition(check, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &PreconditionError{Check: check, Resource: resource, Err: err}
}

// Classify maps err to its ErrorClass.
func Classify(err error) ErrorClass {
	var (
		apiErr     *APICallError
		statusErr  *TerminalStatusError
		timeoutErr *PollTimeoutError
		precondErr *PreconditionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case errors.As(err, &precondErr):
		return ClassPrecondition
	case errors.As(err, &apiErr):
		return ClassAPICall
	case errors.As(err, &statusErr):
		return ClassTerminalStatus
	case errors.As(err, &timeoutErr):
		return ClassPollTimeout
	default:
		return ClassUnknown
	}
}
