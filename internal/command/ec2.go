// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/meta"
	ec2ops "github.com/tfctl/opsctl/internal/ops/ec2"
	"github.com/tfctl/opsctl/internal/output"
	"github.com/tfctl/opsctl/internal/resultlog"
	"github.com/tfctl/opsctl/internal/workflow"
)

// ec2DiscoverAction lists unencrypted root volumes and writes them as the
// input of encrypt-volumes.
func ec2DiscoverAction(ctx context.Context, cmd *cli.Command) error {
	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return err
	}

	items, err := ec2ops.Discover(ctx, svc.EC2, ec2ops.DiscoverOptions{
		State:     cmd.String("state"),
		TagKey:    cmd.String("tag-key"),
		TagValues: cmd.StringSlice("tag-values"),
		Device:    cmd.String("device"),
	})
	if err != nil {
		return err
	}

	w := resultlog.NewWriter(cmd.String("out-dir"), "output", GetMeta(cmd).Stamp(), resultlog.Fields(ec2ops.VolumeColumns...))
	defer closeLog(w)
	for _, item := range items {
		if err := w.Append(item); err != nil {
			return err
		}
	}
	if w.Count() > 0 {
		log.Infof("wrote %d volume(s) to %s", w.Count(), w.Path())
	}

	return output.Spit(stdout(cmd), ec2ops.VolumeColumns, rowsOf(items, ec2ops.VolumeColumns), output.OptionsFrom(cmd))
}

// ec2EncryptVolumesAction replaces the root volume of every instance in the
// input file with an encrypted copy.
func ec2EncryptVolumesAction(ctx context.Context, cmd *cli.Command) error {
	input := cmd.Args().First()
	if input == "" {
		return errors.New("an input file from 'opsctl ec2 discover' is required")
	}

	items, err := resultlog.ReadFileAliased(input, ec2ops.InputAliases, ec2ops.ColInstanceID,
		ec2ops.ColRootVolumeID, ec2ops.ColAvailZone, ec2ops.ColInstanceState)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Infof("%s has no volumes to encrypt", input)
		return nil
	}

	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return err
	}

	steps := ec2ops.EncryptVolumeSteps(svc.EC2, ec2ops.EncryptOptions{
		Device:     cmd.String("device"),
		VolumeType: cmd.String("volume-type"),
		KMSKeyID:   cmd.String("kms-key-id"),
	})

	report, err := runWorkflow(ctx, cmd, "encrypt-volumes", steps, items, runSpec{
		Prefix:         "output_after_encryption",
		Columns:        ec2ops.EncryptedVolumeColumns,
		FailureColumns: slices.Concat(ec2ops.VolumeColumns, []string{ec2ops.ColSnapshotID, ec2ops.ColNewVolumeID}),
	})
	if report != nil && len(report.Done) > 0 {
		if serr := output.Spit(stdout(cmd), ec2ops.EncryptedVolumeColumns, rowsOf(report.Done, ec2ops.EncryptedVolumeColumns), output.OptionsFrom(cmd)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// ec2EncryptSnapshotsAction copies unencrypted snapshots into encrypted ones.
// Without an input file every unencrypted snapshot the account owns is
// copied; with one, only the snapshots it lists.
func ec2EncryptSnapshotsAction(ctx context.Context, cmd *cli.Command) error {
	svc, err := connectFrom(ctx, cmd)
	if err != nil {
		return err
	}

	var items []*workflow.WorkItem
	if input := cmd.Args().First(); input != "" {
		items, err = resultlog.ReadFile(input, ec2ops.ColSnapshotID)
	} else {
		items, err = ec2ops.UnencryptedSnapshots(ctx, svc.EC2)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Infof("no unencrypted snapshots")
		return nil
	}

	steps := ec2ops.EncryptSnapshotSteps(svc.EC2, ec2ops.EncryptOptions{
		KMSKeyID:     cmd.String("kms-key-id"),
		SourceRegion: svc.Region,
	})

	report, err := runWorkflow(ctx, cmd, "encrypt-snapshots", steps, items, runSpec{
		Prefix:         "output_encrypted_snapshots",
		Columns:        ec2ops.EncryptedSnapshotColumns,
		FailureColumns: []string{ec2ops.ColSnapshotID, ec2ops.ColVolumeID},
	})
	if report != nil && len(report.Done) > 0 {
		if serr := output.Spit(stdout(cmd), ec2ops.EncryptedSnapshotColumns, rowsOf(report.Done, ec2ops.EncryptedSnapshotColumns), output.OptionsFrom(cmd)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

func deviceFlag(ns, path string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
		Name:  "device",
		Usage: "device the root volume is attached at",
		Value: "/dev/xvda",
	})
}

func kmsKeyFlag(ns, path string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
		Name:  "kms-key-id",
		Usage: "KMS key for encryption. Defaults to the account's EBS key",
	})
}

// ec2CommandBuilder constructs the "ec2" command group.
func ec2CommandBuilder(meta meta.Meta) *cli.Command {
	cfg := meta.Config.Source

	return &cli.Command{
		Name:  "ec2",
		Usage: "EC2 instance and EBS volume operations",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewAWSFlags("ec2", cfg),
		Commands: []*cli.Command{
			{
				Name:      "discover",
				Usage:     "list unencrypted root volumes",
				UsageText: "opsctl ec2 discover [options]",
				Flags: append([]cli.Flag{
					NameSpacedValueChainFlagFromConfigFile("ec2.discover", cfg, &cli.StringFlag{
						Name:  "state",
						Usage: "instance state to match",
						Value: "running",
					}),
					NameSpacedValueChainFlagFromConfigFile("ec2.discover", cfg, &cli.StringFlag{
						Name:  "tag-key",
						Usage: "only instances with this tag",
					}),
					&cli.StringSliceFlag{
						Name:    "tag-values",
						Usage:   "values of --tag-key to match",
						Sources: cli.NewValueSourceChain(configSources("ec2.discover", cfg, "tag-values")...),
					},
					deviceFlag("ec2.discover", cfg),
					NewOutDirFlag("ec2.discover", cfg),
				}, NewGlobalFlags()...),
				Action: ec2DiscoverAction,
			},
			{
				Name:      "encrypt-volumes",
				Usage:     "replace root volumes with encrypted copies",
				UsageText: "opsctl ec2 encrypt-volumes <input.csv> [options]",
				Flags: slices.Concat([]cli.Flag{
					deviceFlag("ec2.encrypt-volumes", cfg),
					kmsKeyFlag("ec2.encrypt-volumes", cfg),
					NameSpacedValueChainFlagFromConfigFile("ec2.encrypt-volumes", cfg, &cli.StringFlag{
						Name:  "volume-type",
						Usage: "type of the encrypted volume",
						Value: "gp2",
					}),
				}, NewRunFlags("ec2.encrypt-volumes", cfg), NewGlobalFlags()),
				Action: ec2EncryptVolumesAction,
			},
			{
				Name:      "encrypt-snapshots",
				Usage:     "copy unencrypted snapshots into encrypted ones",
				UsageText: "opsctl ec2 encrypt-snapshots [input.csv] [options]",
				Flags: slices.Concat([]cli.Flag{
					kmsKeyFlag("ec2.encrypt-snapshots", cfg),
				}, NewRunFlags("ec2.encrypt-snapshots", cfg), NewGlobalFlags()),
				Action: ec2EncryptSnapshotsAction,
			},
		},
	}
}
