// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package ec2

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// fakeEC2 is an in-memory API. Describe calls play back scripted states per
// id, repeating the last one; unscripted ids report the settled state of the
// call that produced them.
type fakeEC2 struct {
	calls []string

	instanceStates map[string][]types.InstanceStateName
	volumeStates   map[string][]types.VolumeState
	snapshotStates map[string][]types.SnapshotState

	instancePages []*ec2v2.DescribeInstancesOutput
	volumes       map[string][]types.Volume
	snapshotPages []*ec2v2.DescribeSnapshotsOutput

	volumeFilters [][]types.Filter

	createSnapshot *ec2v2.CreateSnapshotInput
	createVolume   *ec2v2.CreateVolumeInput
	detach         *ec2v2.DetachVolumeInput
	attach         *ec2v2.AttachVolumeInput
	copies         []*ec2v2.CopySnapshotInput

	failOn map[string]error
	next   int
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{
		instanceStates: map[string][]types.InstanceStateName{},
		volumeStates:   map[string][]types.VolumeState{},
		snapshotStates: map[string][]types.SnapshotState{},
		volumes:        map[string][]types.Volume{},
		failOn:         map[string]error{},
	}
}

func pop[T any](m map[string][]T, id string) (T, bool) {
	var zero T
	q, ok := m[id]
	if !ok || len(q) == 0 {
		return zero, false
	}
	v := q[0]
	if len(q) > 1 {
		m[id] = q[1:]
	}
	return v, true
}

func (f *fakeEC2) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeEC2) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2v2.DescribeInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeInstancesOutput, error) {
	if len(in.InstanceIds) == 0 {
		i := 0
		if in.NextToken != nil {
			i, _ = strconv.Atoi(*in.NextToken)
		}
		if i >= len(f.instancePages) {
			return &ec2v2.DescribeInstancesOutput{}, nil
		}
		return f.instancePages[i], nil
	}

	id := in.InstanceIds[0]
	state, ok := pop(f.instanceStates, id)
	if !ok {
		return &ec2v2.DescribeInstancesOutput{}, nil
	}
	return &ec2v2.DescribeInstancesOutput{Reservations: []types.Reservation{{
		Instances: []types.Instance{{InstanceId: aws.String(id), State: &types.InstanceState{Name: state}}},
	}}}, nil
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, in *ec2v2.DescribeVolumesInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeVolumesOutput, error) {
	if len(in.VolumeIds) == 0 {
		f.volumeFilters = append(f.volumeFilters, in.Filters)
		var instance string
		for _, flt := range in.Filters {
			if aws.ToString(flt.Name) == "attachment.instance-id" {
				instance = flt.Values[0]
			}
		}
		return &ec2v2.DescribeVolumesOutput{Volumes: f.volumes[instance]}, nil
	}

	id := in.VolumeIds[0]
	state, ok := pop(f.volumeStates, id)
	if !ok {
		return &ec2v2.DescribeVolumesOutput{}, nil
	}
	return &ec2v2.DescribeVolumesOutput{Volumes: []types.Volume{{VolumeId: aws.String(id), State: state}}}, nil
}

func (f *fakeEC2) DescribeSnapshots(_ context.Context, in *ec2v2.DescribeSnapshotsInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeSnapshotsOutput, error) {
	if len(in.SnapshotIds) == 0 {
		i := 0
		if in.NextToken != nil {
			i, _ = strconv.Atoi(*in.NextToken)
		}
		if i >= len(f.snapshotPages) {
			return &ec2v2.DescribeSnapshotsOutput{}, nil
		}
		return f.snapshotPages[i], nil
	}

	id := in.SnapshotIds[0]
	state, ok := pop(f.snapshotStates, id)
	if !ok {
		return &ec2v2.DescribeSnapshotsOutput{}, nil
	}
	return &ec2v2.DescribeSnapshotsOutput{Snapshots: []types.Snapshot{{SnapshotId: aws.String(id), State: state}}}, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, in *ec2v2.StopInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.StopInstancesOutput, error) {
	if err := f.record("stop " + in.InstanceIds[0]); err != nil {
		return nil, err
	}
	if _, ok := f.instanceStates[in.InstanceIds[0]]; !ok {
		f.instanceStates[in.InstanceIds[0]] = []types.InstanceStateName{"stopping", "stopped"}
	}
	return &ec2v2.StopInstancesOutput{}, nil
}

func (f *fakeEC2) StartInstances(_ context.Context, in *ec2v2.StartInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.StartInstancesOutput, error) {
	if err := f.record("start " + in.InstanceIds[0]); err != nil {
		return nil, err
	}
	f.instanceStates[in.InstanceIds[0]] = []types.InstanceStateName{"pending", "running"}
	return &ec2v2.StartInstancesOutput{}, nil
}

func (f *fakeEC2) CreateSnapshot(_ context.Context, in *ec2v2.CreateSnapshotInput, _ ...func(*ec2v2.Options)) (*ec2v2.CreateSnapshotOutput, error) {
	if err := f.record("snapshot " + aws.ToString(in.VolumeId)); err != nil {
		return nil, err
	}
	f.createSnapshot = in
	id := f.id("snap")
	if _, ok := f.snapshotStates[id]; !ok {
		f.snapshotStates[id] = []types.SnapshotState{"pending", "completed"}
	}
	return &ec2v2.CreateSnapshotOutput{SnapshotId: aws.String(id)}, nil
}

func (f *fakeEC2) CopySnapshot(_ context.Context, in *ec2v2.CopySnapshotInput, _ ...func(*ec2v2.Options)) (*ec2v2.CopySnapshotOutput, error) {
	if err := f.record("copy " + aws.ToString(in.SourceSnapshotId)); err != nil {
		return nil, err
	}
	f.copies = append(f.copies, in)
	id := f.id("snap")
	if _, ok := f.snapshotStates[id]; !ok {
		f.snapshotStates[id] = []types.SnapshotState{"completed"}
	}
	return &ec2v2.CopySnapshotOutput{SnapshotId: aws.String(id)}, nil
}

func (f *fakeEC2) CreateVolume(_ context.Context, in *ec2v2.CreateVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.CreateVolumeOutput, error) {
	if err := f.record("create " + aws.ToString(in.SnapshotId)); err != nil {
		return nil, err
	}
	f.createVolume = in
	id := f.id("vol")
	f.volumeStates[id] = []types.VolumeState{"creating", "available"}
	return &ec2v2.CreateVolumeOutput{VolumeId: aws.String(id)}, nil
}

func (f *fakeEC2) AttachVolume(_ context.Context, in *ec2v2.AttachVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.AttachVolumeOutput, error) {
	if err := f.record("attach " + aws.ToString(in.VolumeId)); err != nil {
		return nil, err
	}
	f.attach = in
	f.volumeStates[aws.ToString(in.VolumeId)] = []types.VolumeState{"in-use"}
	return &ec2v2.AttachVolumeOutput{}, nil
}

func (f *fakeEC2) DetachVolume(_ context.Context, in *ec2v2.DetachVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.DetachVolumeOutput, error) {
	if err := f.record("detach " + aws.ToString(in.VolumeId)); err != nil {
		return nil, err
	}
	f.detach = in
	f.volumeStates[aws.ToString(in.VolumeId)] = []types.VolumeState{"available"}
	return &ec2v2.DetachVolumeOutput{}, nil
}
