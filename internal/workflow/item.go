// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/tfctl/opsctl/internal/log"
)

const (
	StatePending = "pending"
	StateDone    = "done"
	StateFailed  = "failed"

	eventComplete = "complete"
	eventFail     = "fail"
)

// WaitingState is the state an item is in while step n (1-based) runs.
func WaitingState(n int) string {
	return fmt.Sprintf("step_%d_waiting", n)
}

// WorkItem is one unit of work pushed through every step of a workflow.
type WorkItem struct {
	// Key is the primary resource id, used in logs.
	Key string
	// Attrs are the input fields for the item (dependent ids, zone, prior
	// state). Steps read them and never modify them.
	Attrs map[string]string
	// Outputs are ids produced by steps, keyed by name.
	Outputs map[string]string
	// Checkpoint is the number of leading steps already completed. The engine
	// starts at step Checkpoint+1 and advances it as steps complete.
	Checkpoint int

	// State is the item's current state machine state.
	State string
	// FailedStep and Err describe why the item failed.
	FailedStep string
	Err        error
}

// NewWorkItem returns a pending item.
func NewWorkItem(key string, attrs map[string]string) *WorkItem {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &WorkItem{
		Key:     key,
		Attrs:   attrs,
		Outputs: map[string]string{},
		State:   StatePending,
	}
}

// Attr returns an input field or "".
func (w *WorkItem) Attr(name string) string {
	return w.Attrs[name]
}

// Output returns a produced id or "".
func (w *WorkItem) Output(name string) string {
	return w.Outputs[name]
}

// SetOutput records a produced id.
func (w *WorkItem) SetOutput(name, value string) {
	if w.Outputs == nil {
		w.Outputs = map[string]string{}
	}
	w.Outputs[name] = value
}

// Value returns an output if set, otherwise the input field of the same name.
func (w *WorkItem) Value(name string) string {
	if v, ok := w.Outputs[name]; ok {
		return v
	}
	return w.Attrs[name]
}

// itemMachine wraps the per-item state machine. Steps before the checkpoint
// have no states of their own; pending leads straight to the first step that
// still has to run.
type itemMachine struct {
	fsm   *fsm.FSM
	first int
	last  int
}

func newItemMachine(item *WorkItem, stepCount int) *itemMachine {
	first := item.Checkpoint + 1
	events := fsm.Events{}

	var waiting []string
	for n := first; n <= stepCount; n++ {
		src := StatePending
		if n > first {
			src = WaitingState(n - 1)
		}
		events = append(events, fsm.EventDesc{
			Name: waitEvent(n),
			Src:  []string{src},
			Dst:  WaitingState(n),
		})
		waiting = append(waiting, WaitingState(n))
	}

	completeSrc := StatePending
	if len(waiting) > 0 {
		completeSrc = waiting[len(waiting)-1]
	}
	events = append(events, fsm.EventDesc{Name: eventComplete, Src: []string{completeSrc}, Dst: StateDone})

	if len(waiting) > 0 {
		events = append(events, fsm.EventDesc{Name: eventFail, Src: waiting, Dst: StateFailed})
	}

	item.State = StatePending
	machine := fsm.NewFSM(StatePending, events, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			item.State = e.Dst
			log.Debugf("%s: %s -> %s", item.Key, e.Src, e.Dst)
		},
	})

	return &itemMachine{fsm: machine, first: first, last: stepCount}
}

func waitEvent(n int) string {
	return fmt.Sprintf("wait_%d", n)
}

// wait moves the item into the waiting state for step n. Transitions are
// bookkeeping and must land even when ctx is already canceled.
func (m *itemMachine) wait(ctx context.Context, n int) error {
	return m.fsm.Event(context.WithoutCancel(ctx), waitEvent(n))
}

func (m *itemMachine) complete(ctx context.Context) error {
	return m.fsm.Event(context.WithoutCancel(ctx), eventComplete)
}

func (m *itemMachine) fail(ctx context.Context) error {
	return m.fsm.Event(context.WithoutCancel(ctx), eventFail)
}

func (m *itemMachine) current() string {
	return m.fsm.Current()
}
