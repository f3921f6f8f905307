// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package rds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdsv2 "github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// Item fields of a restore.
const (
	ColSource          = "source"
	ColTarget          = "target"
	ColStamp           = "stamp"
	ColSnapshotID      = "snapshot_id"
	ColFinalSnapshotID = "final_snapshot_id"
	ColSettings        = "settings"
)

// RestoreColumns are the result fields of a restore.
var RestoreColumns = []string{ColSource, ColTarget, ColSnapshotID, ColFinalSnapshotID}

// RestoreFailureColumns are the fields of a failed restore. They carry the
// target's captured settings since a resumed restore may find the target
// already deleted.
var RestoreFailureColumns = []string{ColSource, ColTarget, ColStamp, ColSnapshotID, ColFinalSnapshotID, ColSettings}

// RestoreOptions names the instances of a restore.
type RestoreOptions struct {
	Source string
	Target string
	// Stamp is the run timestamp used in snapshot names and tags.
	Stamp string
}

// RestoreItem is the single WorkItem of a restore, keyed by target. It
// carries everything the steps need, settings included as JSON.
func RestoreItem(opts RestoreOptions, settings Settings) (*workflow.WorkItem, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings of %s: %w", opts.Target, err)
	}
	return workflow.NewWorkItem(opts.Target, map[string]string{
		ColSource:   opts.Source,
		ColTarget:   opts.Target,
		ColStamp:    opts.Stamp,
		ColSettings: string(raw),
	}), nil
}

// ItemSettings decodes the settings a restore item carries.
func ItemSettings(item *workflow.WorkItem) (Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(item.Attr(ColSettings)), &s); err != nil {
		return Settings{}, fmt.Errorf("%s: decode %s: %w", item.Key, ColSettings, err)
	}
	return s, nil
}

func itemIdentifiers(item *workflow.WorkItem) (snapshot, finalSnapshot string) {
	return Identifiers(item.Attr(ColSource), item.Key, item.Attr(ColStamp))
}

// RestoreSteps refreshes the target instance from a fresh snapshot of the
// source: snapshot source, delete target keeping a final snapshot, restore
// target from the source snapshot with the target's previous settings. A
// source snapshot that already exists and a target already gone are accepted
// so a failed restore can be run again from its checkpoint.
func RestoreSteps(api API) []workflow.Step {
	return []workflow.Step{
		{
			Name: "snapshot-source",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				source := item.Attr(ColSource)
				snapshotID, _ := itemIdentifiers(item)
				stamp := strings.ReplaceAll(item.Attr(ColStamp), "_", "-")

				_, err := api.CreateDBSnapshot(ctx, &rdsv2.CreateDBSnapshotInput{
					DBInstanceIdentifier: aws.String(source),
					DBSnapshotIdentifier: aws.String(snapshotID),
					Tags: []types.Tag{
						{Key: aws.String("creationDate"), Value: aws.String(stamp)},
						{Key: aws.String("rdsInstance"), Value: aws.String(source)},
					},
				})
				if awsx.ErrorCode(err) == "DBSnapshotAlreadyExists" {
					log.Warnf("%s: %s already exists, using it", item.Key, snapshotID)
					err = nil
				}
				if err != nil {
					return workflow.Handle{}, err
				}
				item.SetOutput(ColSnapshotID, snapshotID)
				return workflow.HandleOf(snapshotID), nil
			},
			Describe:     SnapshotStatus(api),
			Success:      workflow.StatusIn("available"),
			Failure:      workflow.StatusIn("failed"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  100,
		},
		{
			Name: "delete-target",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				_, finalSnapshotID := itemIdentifiers(item)
				_, err := api.DeleteDBInstance(ctx, &rdsv2.DeleteDBInstanceInput{
					DBInstanceIdentifier:      aws.String(item.Key),
					SkipFinalSnapshot:         aws.Bool(false),
					FinalDBSnapshotIdentifier: aws.String(finalSnapshotID),
					DeleteAutomatedBackups:    aws.Bool(true),
				})
				if awsx.IsNotFound(err) {
					log.Warnf("%s: already deleted", item.Key)
					err = nil
				}
				if err != nil {
					return workflow.Handle{}, err
				}
				item.SetOutput(ColFinalSnapshotID, finalSnapshotID)
				return workflow.HandleOf(item.Key), nil
			},
			Describe:     InstanceStatus(api),
			Success:      workflow.StatusIn(StatusDeleted),
			PollInterval: 15 * time.Second,
			MaxAttempts:  100,
		},
		{
			Name: "restore-target",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				settings, err := ItemSettings(item)
				if err != nil {
					return workflow.Handle{}, err
				}
				snapshotID := item.Value(ColSnapshotID)
				if snapshotID == "" {
					snapshotID, _ = itemIdentifiers(item)
				}
				if _, err := api.RestoreDBInstanceFromDBSnapshot(ctx, restoreInput(item.Key, snapshotID, settings)); err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(item.Key), nil
			},
			Describe: InstanceStatus(api),
			Success:  workflow.StatusIn("available"),
			Failure: workflow.StatusIn("failed", "incompatible-restore", "incompatible-parameters",
				"incompatible-network", "storage-full"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  150,
		},
	}
}

func restoreInput(target, snapshotID string, s Settings) *rdsv2.RestoreDBInstanceFromDBSnapshotInput {
	return &rdsv2.RestoreDBInstanceFromDBSnapshotInput{
		DBInstanceIdentifier:    aws.String(target),
		DBSnapshotIdentifier:    aws.String(snapshotID),
		DBInstanceClass:         s.InstanceClass,
		Port:                    s.Port,
		AvailabilityZone:        s.AvailabilityZone,
		DBSubnetGroupName:       s.SubnetGroupName,
		MultiAZ:                 s.MultiAZ,
		PubliclyAccessible:      s.PubliclyAccessible,
		AutoMinorVersionUpgrade: s.AutoMinorVersionUpgrade,
		LicenseModel:            s.LicenseModel,
		Engine:                  s.Engine,
		OptionGroupName:         s.OptionGroupName,
		Tags:                    s.Tags,
		StorageType:             s.StorageType,
		VpcSecurityGroupIds:     s.VpcSecurityGroupIDs,
		CopyTagsToSnapshot:      aws.Bool(true),
		DBParameterGroupName:    s.ParameterGroupName,
		DeletionProtection:      aws.Bool(false),
		BackupTarget:            s.BackupTarget,
		NetworkType:             s.NetworkType,
	}
}
