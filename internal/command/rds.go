// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/meta"
	rdsops "github.com/tfctl/opsctl/internal/ops/rds"
	"github.com/tfctl/opsctl/internal/output"
	"github.com/tfctl/opsctl/internal/workflow"
)

// rdsDescribeAction prints a DB instance, or the part of it --query selects.
func rdsDescribeAction(ctx context.Context, cmd *cli.Command) error {
	target := cmd.String("target")

	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return err
	}

	inst, err := rdsops.DescribeInstance(ctx, svc.RDS, target)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", target, err)
	}
	log.Debugf("describe %s: %d bytes", target, len(raw))

	return output.Document(stdout(cmd), raw, cmd.String("query"), cmd.String("output"))
}

// rdsRestoreAction refreshes --target from a new snapshot of --source. With
// --resume it continues a failed restore from its checkpoint, using the
// settings captured by the failed run.
func rdsRestoreAction(ctx context.Context, cmd *cli.Command) error {
	item, err := resumeItem(cmd, rdsops.ColTarget, rdsops.ColSource, rdsops.ColStamp, rdsops.ColSettings)
	if err != nil {
		return err
	}

	var svc *services
	if item == nil {
		svc, item, err = rdsRestoreTarget(ctx, cmd)
	} else {
		svc, err = connectFrom(ctx, cmd)
	}
	if err != nil {
		return err
	}

	_, err = runWorkflow(ctx, cmd, "rds-restore", rdsops.RestoreSteps(svc.RDS),
		[]*workflow.WorkItem{item}, runSpec{
			Prefix:         "rds_restore",
			Columns:        rdsops.RestoreColumns,
			FailureColumns: rdsops.RestoreFailureColumns,
			Halt:           true,
		})
	return err
}

// rdsRestoreTarget checks --source and --target and captures the target's
// settings before anything is changed.
func rdsRestoreTarget(ctx context.Context, cmd *cli.Command) (*services, *workflow.WorkItem, error) {
	opts := rdsops.RestoreOptions{
		Source: cmd.String("source"),
		Target: cmd.String("target"),
		Stamp:  GetMeta(cmd).Stamp(),
	}
	if opts.Source == "" || opts.Target == "" {
		return nil, nil, errors.New("--source and --target are required unless resuming with --resume")
	}
	if opts.Source == opts.Target {
		return nil, nil, workflow.Precondition("source instance", opts.Source, errors.New("source and target are the same instance"))
	}

	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	if _, err := rdsops.DescribeInstance(ctx, svc.RDS, opts.Source); err != nil {
		return nil, nil, workflow.Precondition("source instance", opts.Source, err)
	}
	settings, err := rdsops.CaptureTarget(ctx, svc.RDS, opts.Target)
	if err != nil {
		return nil, nil, err
	}

	item, err := rdsops.RestoreItem(opts, settings)
	if err != nil {
		return nil, nil, err
	}
	return svc, item, nil
}

func rdsTargetFlag(ns, path string, required bool) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
		Name:     "target",
		Usage:    "DB instance identifier",
		Required: required,
	})
}

// rdsCommandBuilder constructs the "rds" command group.
func rdsCommandBuilder(meta meta.Meta) *cli.Command {
	cfg := meta.Config.Source

	return &cli.Command{
		Name:  "rds",
		Usage: "RDS instance operations",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewAWSFlags("rds", cfg),
		Commands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "print a DB instance",
				UsageText: "opsctl rds describe --target <id> [--query <path>] [options]",
				Flags: append([]cli.Flag{
					rdsTargetFlag("rds.describe", cfg, true),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "gjson path selecting part of the instance, e.g. Endpoint.Address",
					},
				}, NewGlobalFlags()...),
				Action: rdsDescribeAction,
			},
			{
				Name:      "restore",
				Usage:     "replace an instance with a restore of a fresh snapshot of another",
				UsageText: "opsctl rds restore (--source <id> --target <id> | --resume <failed.csv>) [options]",
				Flags: slices.Concat([]cli.Flag{
					NameSpacedValueChainFlagFromConfigFile("rds.restore", cfg, &cli.StringFlag{
						Name:  "source",
						Usage: "DB instance to snapshot",
					}),
					rdsTargetFlag("rds.restore", cfg, false),
					NewResumeFlag(),
				}, NewRunFlags("rds.restore", cfg)),
				Action: rdsRestoreAction,
			},
		},
	}
}
