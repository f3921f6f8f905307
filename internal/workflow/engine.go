// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tfctl/opsctl/internal/log"
)

// Sink receives WorkItems as they finish. The result log implements it.
type Sink interface {
	Append(item *WorkItem) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(item *WorkItem) error

// Append implements Sink.
func (f SinkFunc) Append(item *WorkItem) error { return f(item) }

// Engine runs a fixed pipeline of steps over WorkItems.
type Engine struct {
	name     string
	steps    []Step
	sink     Sink
	failSink Sink
	sleep    Sleeper
	halt     bool
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets where DONE items are appended.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithFailureSink sets where FAILED items are appended.
func WithFailureSink(s Sink) Option {
	return func(e *Engine) { e.failSink = s }
}

// WithSleeper replaces the sleep used between polls and action retries.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// HaltOnFailure makes the first failed item end the run with its error. It is
// used by workflows that act on a single target.
func HaltOnFailure() Option {
	return func(e *Engine) { e.halt = true }
}

// New validates steps and returns an Engine.
func New(name string, steps []Step, opts ...Option) (*Engine, error) {
	var errs []error
	for _, s := range steps {
		if err := s.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", name, err)
	}

	e := &Engine{
		name:  name,
		steps: steps,
		sleep: ContextSleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the workflow name.
func (e *Engine) Name() string { return e.name }

// Steps returns the step names in order.
func (e *Engine) Steps() []string {
	names := make([]string, len(e.steps))
	for i, s := range e.steps {
		names[i] = s.Name
	}
	return names
}

// Report is the outcome of a Run.
type Report struct {
	Workflow   string
	Done       []*WorkItem
	Failed     []*WorkItem
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed is the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run processes items in order. Each item goes through every step; a failed
// item is recorded and the next one starts, unless the engine halts on
// failure. Cancellation of ctx ends the run after recording the interrupted
// item as failed. The returned Report is never nil.
func (e *Engine) Run(ctx context.Context, items []*WorkItem) (*Report, error) {
	report := &Report{Workflow: e.name, StartedAt: e.now()}
	defer func() { report.FinishedAt = e.now() }()

	for _, item := range items {
		if item.Checkpoint < 0 || item.Checkpoint > len(e.steps) {
			return report, Precondition("checkpoint", item.Key,
				fmt.Errorf("checkpoint %d outside 0..%d", item.Checkpoint, len(e.steps)))
		}
	}

	log.Infof("%s: %d item(s), steps: %v", e.name, len(items), e.Steps())

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := e.runItem(ctx, item)
		if err == nil {
			report.Done = append(report.Done, item)
			log.Infof("%s: done", item.Key)
			if e.sink != nil {
				if err := e.sink.Append(item); err != nil {
					return report, fmt.Errorf("record result for %s: %w", item.Key, err)
				}
			}
			continue
		}

		item.Err = err
		report.Failed = append(report.Failed, item)
		log.WithFields(map[string]interface{}{
			"step":       item.FailedStep,
			"checkpoint": item.Checkpoint,
			"class":      Classify(err),
		}).WithError(err).Errorf("%s: failed", item.Key)

		if e.failSink != nil {
			if serr := e.failSink.Append(item); serr != nil {
				log.WithError(serr).Errorf("%s: could not record failure", item.Key)
			}
		}

		if e.halt || Classify(err) == ClassCanceled {
			return report, err
		}
	}

	return report, nil
}

func (e *Engine) runItem(ctx context.Context, item *WorkItem) error {
	m := newItemMachine(item, len(e.steps))

	for n := m.first; n <= m.last; n++ {
		step := e.steps[n-1]
		if err := m.wait(ctx, n); err != nil {
			return fmt.Errorf("%s: enter %s: %w", item.Key, WaitingState(n), err)
		}

		if err := e.runStep(ctx, item, step); err != nil {
			item.FailedStep = step.Name
			if ferr := m.fail(ctx); ferr != nil {
				return errors.Join(err, ferr)
			}
			return err
		}
		item.Checkpoint = n
	}

	return m.complete(ctx)
}

func (e *Engine) runStep(ctx context.Context, item *WorkItem, step Step) error {
	if step.Guard != nil && !step.Guard(item) {
		log.Infof("%s: %s skipped", item.Key, step.Name)
		return nil
	}

	log.Infof("%s: %s", item.Key, step.Name)

	h, err := e.act(ctx, item, step)
	if err != nil {
		return err
	}

	if step.Describe == nil {
		log.Infof("%s: %s complete", item.Key, step.Name)
		return nil
	}
	if len(h.IDs) == 0 {
		return &APICallError{Step: step.Name, Resource: item.Key, Attempts: 1,
			Err: errors.New("call returned no resource to wait on")}
	}

	return e.poll(ctx, item, step, h)
}

// act issues the step's call, re-issuing it at most ActionRetries times.
func (e *Engine) act(ctx context.Context, item *WorkItem, step Step) (Handle, error) {
	attempts := step.ActionRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var h Handle
		h, err = step.Action(ctx, item)
		if err == nil {
			return h, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Handle{}, ctxErr
		}
		if attempt < attempts {
			log.Warnf("%s: %s call failed (attempt %d/%d), retrying in %s: %v",
				item.Key, step.Name, attempt, attempts, step.RetryDelay, err)
			if serr := e.sleep(ctx, step.RetryDelay); serr != nil {
				return Handle{}, serr
			}
		}
	}

	return Handle{}, &APICallError{Step: step.Name, Resource: item.Key, Attempts: attempts, Err: err}
}
