// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tfctl/opsctl/internal/log"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// poll runs the step's wait loop over every id in h. All ids are described
// in the same attempt, one after the other. A failure status on any id ends
// the loop at once; success needs every id to match.
func (e *Engine) poll(ctx context.Context, item *WorkItem, step Step, h Handle) error {
	failure := step.Failure
	if failure == nil {
		failure = Never
	}

	last := make([]Status, len(h.IDs))
	var lastErr error

	for attempt := 1; attempt <= step.MaxAttempts; attempt++ {
		lastErr = nil
		for i, id := range h.IDs {
			status, err := step.Describe(ctx, id)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				lastErr = err
				log.Warnf("%s: %s describe %s failed on attempt %d/%d: %v",
					item.Key, step.Name, id, attempt, step.MaxAttempts, err)
				break
			}
			last[i] = status

			if failure(status) {
				return &TerminalStatusError{Step: step.Name, Resource: id, Status: status, Attempt: attempt}
			}
		}

		if lastErr == nil && lo.EveryBy(last, func(s Status) bool { return step.Success(s) }) {
			log.Infof("%s: %s complete (%s)", item.Key, step.Name, describeStatuses(h.IDs, last))
			return nil
		}

		if lastErr == nil {
			log.Infof("%s: %s waiting (%s) attempt %d/%d",
				item.Key, step.Name, describeStatuses(h.IDs, last), attempt, step.MaxAttempts)
		}

		if attempt < step.MaxAttempts {
			if err := e.sleep(ctx, step.PollInterval); err != nil {
				return err
			}
		}
	}

	return &PollTimeoutError{
		Step:      step.Name,
		Resources: h.IDs,
		Attempts:  step.MaxAttempts,
		Last:      last,
		LastErr:   lastErr,
	}
}

func describeStatuses(ids []string, statuses []Status) string {
	pairs := lo.Map(ids, func(id string, i int) string {
		s := statuses[i]
		if s == "" {
			s = "?"
		}
		return fmt.Sprintf("%s=%s", id, s)
	})
	return strings.Join(pairs, " ")
}
