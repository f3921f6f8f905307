// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tfctl/opsctl/internal/workflow"
)

// API is the subset of the EC2 client used by opsctl. *ec2.Client satisfies
// it; tests substitute a fake.
type API interface {
	DescribeInstances(ctx context.Context, in *ec2v2.DescribeInstancesInput, optFns ...func(*ec2v2.Options)) (*ec2v2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, in *ec2v2.DescribeVolumesInput, optFns ...func(*ec2v2.Options)) (*ec2v2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, in *ec2v2.DescribeSnapshotsInput, optFns ...func(*ec2v2.Options)) (*ec2v2.DescribeSnapshotsOutput, error)

	StopInstances(ctx context.Context, in *ec2v2.StopInstancesInput, optFns ...func(*ec2v2.Options)) (*ec2v2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, in *ec2v2.StartInstancesInput, optFns ...func(*ec2v2.Options)) (*ec2v2.StartInstancesOutput, error)
	CreateSnapshot(ctx context.Context, in *ec2v2.CreateSnapshotInput, optFns ...func(*ec2v2.Options)) (*ec2v2.CreateSnapshotOutput, error)
	CopySnapshot(ctx context.Context, in *ec2v2.CopySnapshotInput, optFns ...func(*ec2v2.Options)) (*ec2v2.CopySnapshotOutput, error)
	CreateVolume(ctx context.Context, in *ec2v2.CreateVolumeInput, optFns ...func(*ec2v2.Options)) (*ec2v2.CreateVolumeOutput, error)
	AttachVolume(ctx context.Context, in *ec2v2.AttachVolumeInput, optFns ...func(*ec2v2.Options)) (*ec2v2.AttachVolumeOutput, error)
	DetachVolume(ctx context.Context, in *ec2v2.DetachVolumeInput, optFns ...func(*ec2v2.Options)) (*ec2v2.DetachVolumeOutput, error)
}

var _ API = (*ec2v2.Client)(nil)

// InstanceState returns a Describer reporting an instance's state name.
func InstanceState(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeInstances(ctx, &ec2v2.DescribeInstancesInput{InstanceIds: []string{id}})
		if err != nil {
			return "", err
		}
		for _, r := range out.Reservations {
			for _, inst := range r.Instances {
				if aws.ToString(inst.InstanceId) == id && inst.State != nil {
					return workflow.Status(inst.State.Name), nil
				}
			}
		}
		return "", fmt.Errorf("instance %s not in describe output", id)
	}
}

// VolumeState returns a Describer reporting a volume's state.
func VolumeState(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeVolumes(ctx, &ec2v2.DescribeVolumesInput{VolumeIds: []string{id}})
		if err != nil {
			return "", err
		}
		for _, v := range out.Volumes {
			if aws.ToString(v.VolumeId) == id {
				return workflow.Status(v.State), nil
			}
		}
		return "", fmt.Errorf("volume %s not in describe output", id)
	}
}

// SnapshotState returns a Describer reporting a snapshot's state.
func SnapshotState(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeSnapshots(ctx, &ec2v2.DescribeSnapshotsInput{SnapshotIds: []string{id}})
		if err != nil {
			return "", err
		}
		for _, s := range out.Snapshots {
			if aws.ToString(s.SnapshotId) == id {
				return workflow.Status(s.State), nil
			}
		}
		return "", fmt.Errorf("snapshot %s not in describe output", id)
	}
}

func filter(name string, values ...string) types.Filter {
	return types.Filter{Name: aws.String(name), Values: values}
}

func tagSpec(rt types.ResourceType, kv ...string) []types.TagSpecification {
	tags := make([]types.Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, types.Tag{Key: aws.String(kv[i]), Value: aws.String(kv[i+1])})
	}
	return []types.TagSpecification{{ResourceType: rt, Tags: tags}}
}
