// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/config"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/meta"
	redshiftops "github.com/tfctl/opsctl/internal/ops/redshift"
	"github.com/tfctl/opsctl/internal/output"
	"github.com/tfctl/opsctl/internal/prompt"
	"github.com/tfctl/opsctl/internal/workflow"
)

// redshiftConnect asks for the cluster and profile when not given and checks
// the profile before anything is changed. It returns the cluster name.
func redshiftConnect(ctx context.Context, cmd *cli.Command, cluster string) (*services, string, error) {
	fields, err := prompt.Ask(ctx, stdin(cmd), stdout(cmd), []prompt.Field{
		{Label: "Redshift cluster name", Value: cluster},
		{Label: "AWS credentials profile", Placeholder: "DEV, TEST, UAT, PROD", Value: cmd.String("profile")},
	})
	if err != nil {
		return nil, "", err
	}
	cluster, profile := fields[0].Value, fields[1].Value

	svc, err := connect(ctx, targetOf(cmd, profile))
	if err != nil {
		return nil, "", workflow.Precondition("profile", profile, err)
	}
	id, err := awsx.CheckIdentity(ctx, svc.STS, profile)
	if err != nil {
		return nil, "", workflow.Precondition("profile", profile, err)
	}
	log.Infof("using profile %s (account %s)", profile, id.Account)
	return svc, cluster, nil
}

// redshiftTarget resolves and checks the cluster and profile. The returned
// item carries the cluster's current status.
func redshiftTarget(ctx context.Context, cmd *cli.Command) (*services, *workflow.WorkItem, error) {
	svc, cluster, err := redshiftConnect(ctx, cmd, cmd.String("cluster"))
	if err != nil {
		return nil, nil, err
	}
	item, err := redshiftops.CheckCluster(ctx, svc.Redshift, cluster)
	if err != nil {
		return nil, nil, err
	}
	return svc, item, nil
}

// redshiftStatusAction prints the cluster status once, or on every interval
// until interrupted.
func redshiftStatusAction(ctx context.Context, cmd *cli.Command) error {
	svc, item, err := redshiftTarget(ctx, cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("watch") {
		columns := []string{redshiftops.ColCluster, redshiftops.ColStatus}
		return output.Spit(stdout(cmd), columns, rowsOf([]*workflow.WorkItem{item}, columns), output.OptionsFrom(cmd))
	}

	w := stdout(cmd)
	err = redshiftops.Watch(ctx, svc.Redshift, item.Key, cmd.Duration("interval"), sleeper, func(s workflow.Status) {
		fmt.Fprintf(w, "%s %s %s\n", time.Now().Format(time.TimeOnly), item.Key, s)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// redshiftToggleAction returns the action of pause or resume. A cluster that
// is already in the wanted state is left alone.
func redshiftToggleAction(name string, want workflow.Status, steps func(redshiftops.API) []workflow.Step) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		svc, item, err := redshiftTarget(ctx, cmd)
		if err != nil {
			return err
		}
		if item.Attr(redshiftops.ColStatus) == string(want) {
			log.Infof("%s is already %s", item.Key, want)
			return nil
		}

		_, err = runWorkflow(ctx, cmd, "redshift-"+name, steps(svc.Redshift), []*workflow.WorkItem{item}, runSpec{
			Prefix:  "redshift_" + name,
			Columns: redshiftops.ClusterColumns,
			Halt:    true,
		})
		return err
	}
}

// redshiftTerminateAction keeps a final snapshot of the cluster and deletes
// it. With --resume it continues a failed terminate from its checkpoint; the
// cluster is then taken from the failure record and not checked again since
// it may be half deleted.
func redshiftTerminateAction(ctx context.Context, cmd *cli.Command) error {
	item, err := resumeItem(cmd, redshiftops.ColCluster, redshiftops.ColStatus)
	if err != nil {
		return err
	}

	var svc *services
	if item == nil {
		svc, item, err = redshiftTarget(ctx, cmd)
	} else {
		if c := cmd.String("cluster"); c != "" && c != item.Key {
			log.Warnf("--cluster %s ignored, resuming %s", c, item.Key)
		}
		svc, _, err = redshiftConnect(ctx, cmd, item.Key)
	}
	if err != nil {
		return err
	}

	opts, err := terminateOptions(cmd, item)
	if err != nil {
		return err
	}

	_, err = runWorkflow(ctx, cmd, "redshift-terminate", redshiftops.TerminateSteps(svc.Redshift, opts),
		[]*workflow.WorkItem{item}, runSpec{
			Prefix:         "redshift_terminate",
			Columns:        redshiftops.TerminateColumns,
			FailureColumns: redshiftops.TerminateFailureColumns,
			Halt:           true,
		})
	return err
}

// terminateOptions reads the retention from --retention-days, or from a
// resumed item when the flag is not set, and the delete retry policy from the
// config keys terminate.delete-retries and terminate.retry-delay.
func terminateOptions(cmd *cli.Command, item *workflow.WorkItem) (redshiftops.TerminateOptions, error) {
	opts := redshiftops.DefaultTerminateOptions()
	opts.RetentionDays = int(cmd.Int("retention-days"))
	if days := item.Attr(redshiftops.ColRetention); days != "" && !cmd.IsSet("retention-days") {
		n, err := strconv.Atoi(days)
		if err != nil {
			return opts, fmt.Errorf("%s: invalid %s %q", item.Key, redshiftops.ColRetention, days)
		}
		opts.RetentionDays = n
	}

	var err error
	if opts.DeleteRetries, err = config.GetInt("terminate.delete-retries", opts.DeleteRetries); err != nil {
		return opts, fmt.Errorf("terminate.delete-retries: %w", err)
	}
	if opts.RetryDelay, err = config.GetDuration("terminate.retry-delay", opts.RetryDelay); err != nil {
		return opts, fmt.Errorf("terminate.retry-delay: %w", err)
	}
	log.Debugf("terminate options: %+v", opts)
	return opts, nil
}

func clusterFlag(ns, path string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
		Name:  "cluster",
		Usage: "cluster identifier. Asked for when not given",
	})
}

// redshiftCommandBuilder constructs the "redshift" command group.
func redshiftCommandBuilder(meta meta.Meta) *cli.Command {
	cfg := meta.Config.Source

	return &cli.Command{
		Name:  "redshift",
		Usage: "Redshift cluster operations",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewAWSFlags("redshift", cfg),
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "print the cluster status",
				UsageText: "opsctl redshift status [--cluster <id>] [--watch [--interval 30s]] [options]",
				Flags: append([]cli.Flag{
					clusterFlag("redshift.status", cfg),
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "keep printing the status until interrupted",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "time between status checks with --watch",
						Value: 30 * time.Second,
						Validator: func(value time.Duration) error {
							return FlagValidators(value, PositiveDurationValidator)
						},
					},
				}, NewGlobalFlags()...),
				Action: redshiftStatusAction,
			},
			{
				Name:      "pause",
				Usage:     "pause a cluster",
				UsageText: "opsctl redshift pause [--cluster <id>] [options]",
				Flags:     slices.Concat([]cli.Flag{clusterFlag("redshift.pause", cfg)}, NewRunFlags("redshift.pause", cfg)),
				Action:    redshiftToggleAction("pause", redshiftops.StatusPaused, redshiftops.PauseSteps),
			},
			{
				Name:      "resume",
				Usage:     "resume a paused cluster",
				UsageText: "opsctl redshift resume [--cluster <id>] [options]",
				Flags:     slices.Concat([]cli.Flag{clusterFlag("redshift.resume", cfg)}, NewRunFlags("redshift.resume", cfg)),
				Action:    redshiftToggleAction("resume", redshiftops.StatusAvailable, redshiftops.ResumeSteps),
			},
			{
				Name:      "terminate",
				Usage:     "snapshot and delete a cluster",
				UsageText: "opsctl redshift terminate [--cluster <id>] [--retention-days 90] [--resume <failed.csv>] [options]",
				Flags: slices.Concat([]cli.Flag{
					clusterFlag("redshift.terminate", cfg),
					NewResumeFlag(),
					&cli.IntFlag{
						Name:    "retention-days",
						Usage:   "days the final snapshot is kept, -1 for ever",
						Value:   90,
						Sources: cli.NewValueSourceChain(configSources("redshift.terminate", cfg, "retention-days")...),
						Validator: func(value int) error {
							return FlagValidators(value, RetentionValidator)
						},
					},
				}, NewRunFlags("redshift.terminate", cfg)),
				Action: redshiftTerminateAction,
			},
		},
	}
}
