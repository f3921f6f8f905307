// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/tfctl/opsctl/internal/meta"
	datasyncops "github.com/tfctl/opsctl/internal/ops/datasync"
	"github.com/tfctl/opsctl/internal/workflow"
)

// datasyncRunAction starts every --task and waits for all of them.
func datasyncRunAction(ctx context.Context, cmd *cli.Command) error {
	tasks := cmd.StringSlice("task")

	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return err
	}

	_, err = runWorkflow(ctx, cmd, "datasync-run", datasyncops.RunSteps(svc.DataSync, tasks),
		[]*workflow.WorkItem{datasyncops.RunItem(tasks)}, runSpec{
			Prefix:  "datasync_run",
			Columns: datasyncops.RunColumns,
			Halt:    true,
		})
	return err
}

// datasyncCommandBuilder constructs the "datasync" command group.
func datasyncCommandBuilder(meta meta.Meta) *cli.Command {
	cfg := meta.Config.Source

	return &cli.Command{
		Name:  "datasync",
		Usage: "DataSync task operations",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewAWSFlags("datasync", cfg),
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "start tasks and wait until all succeed",
				UsageText: "opsctl datasync run --task <arn> [--task <arn>...] [options]",
				Flags: slices.Concat([]cli.Flag{
					&cli.StringSliceFlag{
						Name:     "task",
						Usage:    "task ARN, repeatable",
						Required: true,
						Validator: func(values []string) error {
							for _, v := range values {
								if err := FlagValidators(v, ARNValidator); err != nil {
									return err
								}
							}
							return nil
						},
					},
				}, NewRunFlags("datasync.run", cfg)),
				Action: datasyncRunAction,
			},
		},
	}
}
