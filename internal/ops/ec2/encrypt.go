// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ec2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tfctl/opsctl/internal/resultlog"
	"github.com/tfctl/opsctl/internal/workflow"
)

// Item fields shared by discovery, the encryption workflows and their CSVs.
const (
	ColInstanceID          = "instance_id"
	ColRootVolumeID        = "root_volume_id"
	ColSize                = "size"
	ColAvailZone           = "availability_zone"
	ColInstanceState       = "instance_state"
	ColNewVolumeID         = "new_volume_id"
	ColSnapshotID          = "snapshot_id"
	ColVolumeID            = "volume_id"
	ColEncryptedSnapshotID = "encrypted_snapshot_id"
)

// VolumeColumns are the fields Discover produces and EncryptVolumes reads.
var VolumeColumns = []string{ColInstanceID, ColRootVolumeID, ColSize, ColAvailZone, ColInstanceState}

// InputAliases are older header names still accepted in an encrypt-volumes
// input file.
var InputAliases = resultlog.Aliases{"AvailabilityZone": ColAvailZone}

// EncryptedVolumeColumns are the result fields of a volume encryption.
var EncryptedVolumeColumns = []string{ColInstanceID, ColRootVolumeID, ColAvailZone, ColNewVolumeID, ColSnapshotID}

// EncryptedSnapshotColumns are the result fields of a snapshot encryption.
var EncryptedSnapshotColumns = []string{ColSnapshotID, ColVolumeID, ColEncryptedSnapshotID}

// EncryptOptions configures the encryption workflows.
type EncryptOptions struct {
	// Device is where the root volume is attached, e.g. /dev/xvda.
	Device string
	// VolumeType of the new encrypted volume. Defaults to gp2.
	VolumeType string
	// KMSKeyID is optional; empty uses the account's default EBS key.
	KMSKeyID string
	// SourceRegion is the region snapshots are copied from.
	SourceRegion string
}

// WasRunning is the guard on restarting an instance. Instances that were
// stopped before the workflow stay stopped.
func WasRunning(item *workflow.WorkItem) bool {
	return item.Attr(ColInstanceState) == string(types.InstanceStateNameRunning)
}

// EncryptVolumeSteps replaces an instance's unencrypted root volume with an
// encrypted copy: stop, snapshot, detach, create from snapshot, attach and
// start again if the instance was running.
func EncryptVolumeSteps(api API, opts EncryptOptions) []workflow.Step {
	if opts.VolumeType == "" {
		opts.VolumeType = string(types.VolumeTypeGp2)
	}

	return []workflow.Step{
		{
			Name: "stop-instance",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				id := item.Attr(ColInstanceID)
				if _, err := api.StopInstances(ctx, &ec2v2.StopInstancesInput{InstanceIds: []string{id}}); err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(id), nil
			},
			Describe:     InstanceState(api),
			Success:      workflow.StatusIn("stopped"),
			Failure:      workflow.StatusIn("terminated"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  40,
		},
		{
			Name: "snapshot-volume",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				vol := item.Attr(ColRootVolumeID)
				out, err := api.CreateSnapshot(ctx, &ec2v2.CreateSnapshotInput{
					VolumeId:          aws.String(vol),
					Description:       aws.String(fmt.Sprintf("Snapshot taken for %s before encryption", vol)),
					TagSpecifications: tagSpec(types.ResourceTypeSnapshot, "VolumeId", vol, "Name", "snap-unencr"),
				})
				if err != nil {
					return workflow.Handle{}, err
				}
				snap := aws.ToString(out.SnapshotId)
				item.SetOutput(ColSnapshotID, snap)
				return workflow.HandleOf(snap), nil
			},
			Describe:     SnapshotState(api),
			Success:      workflow.StatusIn("completed"),
			Failure:      workflow.StatusIn("error"),
			PollInterval: 20 * time.Second,
			MaxAttempts:  100,
		},
		{
			Name: "detach-volume",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				vol := item.Attr(ColRootVolumeID)
				_, err := api.DetachVolume(ctx, &ec2v2.DetachVolumeInput{
					VolumeId:   aws.String(vol),
					InstanceId: aws.String(item.Attr(ColInstanceID)),
					Device:     aws.String(opts.Device),
					Force:      aws.Bool(true),
				})
				if err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(vol), nil
			},
			Describe:     VolumeState(api),
			Success:      workflow.StatusIn("available"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  40,
		},
		{
			Name: "create-encrypted-volume",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				snap := item.Value(ColSnapshotID)
				if snap == "" {
					return workflow.Handle{}, errors.New("no snapshot_id to create the volume from")
				}
				in := &ec2v2.CreateVolumeInput{
					AvailabilityZone:  aws.String(item.Attr(ColAvailZone)),
					SnapshotId:        aws.String(snap),
					Encrypted:         aws.Bool(true),
					VolumeType:        types.VolumeType(opts.VolumeType),
					TagSpecifications: tagSpec(types.ResourceTypeVolume, "Name", "vol-encrypted", "SnapshotId", snap),
				}
				if opts.KMSKeyID != "" {
					in.KmsKeyId = aws.String(opts.KMSKeyID)
				}
				out, err := api.CreateVolume(ctx, in)
				if err != nil {
					return workflow.Handle{}, err
				}
				vol := aws.ToString(out.VolumeId)
				item.SetOutput(ColNewVolumeID, vol)
				return workflow.HandleOf(vol), nil
			},
			Describe:     VolumeState(api),
			Success:      workflow.StatusIn("available"),
			Failure:      workflow.StatusIn("error"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  40,
		},
		{
			Name: "attach-volume",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				vol := item.Value(ColNewVolumeID)
				if vol == "" {
					return workflow.Handle{}, errors.New("no new_volume_id to attach")
				}
				_, err := api.AttachVolume(ctx, &ec2v2.AttachVolumeInput{
					Device:     aws.String(opts.Device),
					InstanceId: aws.String(item.Attr(ColInstanceID)),
					VolumeId:   aws.String(vol),
				})
				if err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(vol), nil
			},
			Describe:     VolumeState(api),
			Success:      workflow.StatusIn("in-use"),
			Failure:      workflow.StatusIn("error"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  40,
		},
		workflow.Step{
			Name: "start-instance",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				id := item.Attr(ColInstanceID)
				if _, err := api.StartInstances(ctx, &ec2v2.StartInstancesInput{InstanceIds: []string{id}}); err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(id), nil
			},
			Describe:     InstanceState(api),
			Success:      workflow.StatusIn("running"),
			Failure:      workflow.StatusIn("terminated"),
			PollInterval: 15 * time.Second,
			MaxAttempts:  40,
		}.Guarded(WasRunning),
	}
}

// EncryptSnapshotSteps copies an unencrypted snapshot into an encrypted one.
func EncryptSnapshotSteps(api API, opts EncryptOptions) []workflow.Step {
	return []workflow.Step{
		{
			Name: "copy-snapshot",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				src := item.Attr(ColSnapshotID)
				in := &ec2v2.CopySnapshotInput{
					SourceSnapshotId: aws.String(src),
					SourceRegion:     aws.String(opts.SourceRegion),
					Description:      aws.String(fmt.Sprintf("Encrypted snapshot for %s", src)),
					Encrypted:        aws.Bool(true),
					TagSpecifications: tagSpec(types.ResourceTypeSnapshot,
						"Name", "snap-encrypted-"+src, "VolumeId", item.Attr(ColVolumeID)),
				}
				if opts.KMSKeyID != "" {
					in.KmsKeyId = aws.String(opts.KMSKeyID)
				}
				out, err := api.CopySnapshot(ctx, in)
				if err != nil {
					return workflow.Handle{}, err
				}
				snap := aws.ToString(out.SnapshotId)
				item.SetOutput(ColEncryptedSnapshotID, snap)
				return workflow.HandleOf(snap), nil
			},
			Describe:     SnapshotState(api),
			Success:      workflow.StatusIn("completed"),
			Failure:      workflow.StatusIn("error"),
			PollInterval: 20 * time.Second,
			MaxAttempts:  100,
		},
	}
}
