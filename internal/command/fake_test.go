// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	datasyncv2 "github.com/aws/aws-sdk-go-v2/service/datasync"
	dstypes "github.com/aws/aws-sdk-go-v2/service/datasync/types"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	rdsv2 "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	redshiftv2 "github.com/aws/aws-sdk-go-v2/service/redshift"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

var errUnexpected = errors.New("unexpected call")

func notFound(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "not found"}
}

// fakeEC2 keeps instance, volume and snapshot states in memory. Mutating
// calls settle the resource immediately. failOn maps a call name to the
// instance or snapshot id it fails for.
type fakeEC2 struct {
	calls []string

	instances map[string]ec2types.InstanceStateName
	volumes   map[string]ec2types.VolumeState
	snapshots map[string]ec2types.SnapshotState

	// attached are the unencrypted volumes Discover finds, by instance.
	attached    map[string][]ec2types.Volume
	unencrypted []ec2types.Snapshot

	volumeFilters [][]ec2types.Filter
	createVolume  []*ec2v2.CreateVolumeInput
	copies        []*ec2v2.CopySnapshotInput

	failOn map[string]string
	next   int
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{
		instances: map[string]ec2types.InstanceStateName{},
		volumes:   map[string]ec2types.VolumeState{},
		snapshots: map[string]ec2types.SnapshotState{},
		attached:  map[string][]ec2types.Volume{},
		failOn:    map[string]string{},
	}
}

func (f *fakeEC2) record(call, id string) error {
	f.calls = append(f.calls, call+" "+id)
	if f.failOn[call] == id {
		return fmt.Errorf("%s %s: UnauthorizedOperation", call, id)
	}
	return nil
}

func (f *fakeEC2) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s-new%d", prefix, f.next)
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2v2.DescribeInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeInstancesOutput, error) {
	ids := in.InstanceIds
	if len(ids) == 0 {
		for id := range f.instances {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	var r ec2types.Reservation
	for _, id := range ids {
		r.Instances = append(r.Instances, ec2types.Instance{
			InstanceId: aws.String(id),
			State:      &ec2types.InstanceState{Name: f.instances[id]},
		})
	}
	return &ec2v2.DescribeInstancesOutput{Reservations: []ec2types.Reservation{r}}, nil
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, in *ec2v2.DescribeVolumesInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeVolumesOutput, error) {
	if len(in.VolumeIds) > 0 {
		var out ec2v2.DescribeVolumesOutput
		for _, id := range in.VolumeIds {
			out.Volumes = append(out.Volumes, ec2types.Volume{VolumeId: aws.String(id), State: f.volumes[id]})
		}
		return &out, nil
	}

	f.volumeFilters = append(f.volumeFilters, in.Filters)
	for _, flt := range in.Filters {
		if aws.ToString(flt.Name) == "attachment.instance-id" {
			return &ec2v2.DescribeVolumesOutput{Volumes: f.attached[flt.Values[0]]}, nil
		}
	}
	return &ec2v2.DescribeVolumesOutput{}, nil
}

func (f *fakeEC2) DescribeSnapshots(_ context.Context, in *ec2v2.DescribeSnapshotsInput, _ ...func(*ec2v2.Options)) (*ec2v2.DescribeSnapshotsOutput, error) {
	if len(in.SnapshotIds) == 0 {
		return &ec2v2.DescribeSnapshotsOutput{Snapshots: f.unencrypted}, nil
	}
	var out ec2v2.DescribeSnapshotsOutput
	for _, id := range in.SnapshotIds {
		out.Snapshots = append(out.Snapshots, ec2types.Snapshot{SnapshotId: aws.String(id), State: f.snapshots[id]})
	}
	return &out, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, in *ec2v2.StopInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.StopInstancesOutput, error) {
	id := in.InstanceIds[0]
	if err := f.record("StopInstances", id); err != nil {
		return nil, err
	}
	f.instances[id] = ec2types.InstanceStateNameStopped
	return &ec2v2.StopInstancesOutput{}, nil
}

func (f *fakeEC2) StartInstances(_ context.Context, in *ec2v2.StartInstancesInput, _ ...func(*ec2v2.Options)) (*ec2v2.StartInstancesOutput, error) {
	id := in.InstanceIds[0]
	if err := f.record("StartInstances", id); err != nil {
		return nil, err
	}
	f.instances[id] = ec2types.InstanceStateNameRunning
	return &ec2v2.StartInstancesOutput{}, nil
}

func (f *fakeEC2) CreateSnapshot(_ context.Context, in *ec2v2.CreateSnapshotInput, _ ...func(*ec2v2.Options)) (*ec2v2.CreateSnapshotOutput, error) {
	if err := f.record("CreateSnapshot", aws.ToString(in.VolumeId)); err != nil {
		return nil, err
	}
	id := f.id("snap")
	f.snapshots[id] = ec2types.SnapshotStateCompleted
	return &ec2v2.CreateSnapshotOutput{SnapshotId: aws.String(id)}, nil
}

func (f *fakeEC2) CopySnapshot(_ context.Context, in *ec2v2.CopySnapshotInput, _ ...func(*ec2v2.Options)) (*ec2v2.CopySnapshotOutput, error) {
	if err := f.record("CopySnapshot", aws.ToString(in.SourceSnapshotId)); err != nil {
		return nil, err
	}
	f.copies = append(f.copies, in)
	id := f.id("snap")
	f.snapshots[id] = ec2types.SnapshotStateCompleted
	return &ec2v2.CopySnapshotOutput{SnapshotId: aws.String(id)}, nil
}

func (f *fakeEC2) CreateVolume(_ context.Context, in *ec2v2.CreateVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.CreateVolumeOutput, error) {
	if err := f.record("CreateVolume", aws.ToString(in.SnapshotId)); err != nil {
		return nil, err
	}
	f.createVolume = append(f.createVolume, in)
	id := f.id("vol")
	f.volumes[id] = ec2types.VolumeStateAvailable
	return &ec2v2.CreateVolumeOutput{VolumeId: aws.String(id)}, nil
}

func (f *fakeEC2) AttachVolume(_ context.Context, in *ec2v2.AttachVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.AttachVolumeOutput, error) {
	if err := f.record("AttachVolume", aws.ToString(in.InstanceId)); err != nil {
		return nil, err
	}
	f.volumes[aws.ToString(in.VolumeId)] = ec2types.VolumeStateInUse
	return &ec2v2.AttachVolumeOutput{}, nil
}

func (f *fakeEC2) DetachVolume(_ context.Context, in *ec2v2.DetachVolumeInput, _ ...func(*ec2v2.Options)) (*ec2v2.DetachVolumeOutput, error) {
	if err := f.record("DetachVolume", aws.ToString(in.InstanceId)); err != nil {
		return nil, err
	}
	f.volumes[aws.ToString(in.VolumeId)] = ec2types.VolumeStateAvailable
	return &ec2v2.DetachVolumeOutput{}, nil
}

// fakeRDS keeps instances and snapshots in memory. Mutating calls settle
// immediately. restoreErr fails every restore.
type fakeRDS struct {
	calls      []string
	instances  map[string]rdstypes.DBInstance
	snapshots  map[string]string
	restores   []*rdsv2.RestoreDBInstanceFromDBSnapshotInput
	restoreErr error
}

func newFakeRDS() *fakeRDS {
	return &fakeRDS{instances: map[string]rdstypes.DBInstance{}, snapshots: map[string]string{}}
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, in *rdsv2.DescribeDBInstancesInput, _ ...func(*rdsv2.Options)) (*rdsv2.DescribeDBInstancesOutput, error) {
	inst, ok := f.instances[aws.ToString(in.DBInstanceIdentifier)]
	if !ok {
		return nil, notFound("DBInstanceNotFound")
	}
	return &rdsv2.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{inst}}, nil
}

func (f *fakeRDS) DescribeDBSnapshots(_ context.Context, in *rdsv2.DescribeDBSnapshotsInput, _ ...func(*rdsv2.Options)) (*rdsv2.DescribeDBSnapshotsOutput, error) {
	id := aws.ToString(in.DBSnapshotIdentifier)
	status, ok := f.snapshots[id]
	if !ok {
		return nil, notFound("DBSnapshotNotFound")
	}
	return &rdsv2.DescribeDBSnapshotsOutput{DBSnapshots: []rdstypes.DBSnapshot{{
		DBSnapshotIdentifier: aws.String(id),
		Status:               aws.String(status),
	}}}, nil
}

func (f *fakeRDS) CreateDBSnapshot(_ context.Context, in *rdsv2.CreateDBSnapshotInput, _ ...func(*rdsv2.Options)) (*rdsv2.CreateDBSnapshotOutput, error) {
	source := aws.ToString(in.DBInstanceIdentifier)
	f.calls = append(f.calls, "CreateDBSnapshot "+source)
	if _, ok := f.instances[source]; !ok {
		return nil, notFound("DBInstanceNotFound")
	}
	id := aws.ToString(in.DBSnapshotIdentifier)
	if _, ok := f.snapshots[id]; ok {
		return nil, &smithy.GenericAPIError{Code: "DBSnapshotAlreadyExists", Message: id}
	}
	f.snapshots[id] = "available"
	return &rdsv2.CreateDBSnapshotOutput{}, nil
}

func (f *fakeRDS) DeleteDBInstance(_ context.Context, in *rdsv2.DeleteDBInstanceInput, _ ...func(*rdsv2.Options)) (*rdsv2.DeleteDBInstanceOutput, error) {
	id := aws.ToString(in.DBInstanceIdentifier)
	f.calls = append(f.calls, "DeleteDBInstance "+id)
	if _, ok := f.instances[id]; !ok {
		return nil, notFound("DBInstanceNotFound")
	}
	delete(f.instances, id)
	if final := aws.ToString(in.FinalDBSnapshotIdentifier); final != "" {
		f.snapshots[final] = "available"
	}
	return &rdsv2.DeleteDBInstanceOutput{}, nil
}

func (f *fakeRDS) RestoreDBInstanceFromDBSnapshot(_ context.Context, in *rdsv2.RestoreDBInstanceFromDBSnapshotInput, _ ...func(*rdsv2.Options)) (*rdsv2.RestoreDBInstanceFromDBSnapshotOutput, error) {
	id := aws.ToString(in.DBInstanceIdentifier)
	f.calls = append(f.calls, "RestoreDBInstanceFromDBSnapshot "+id)
	f.restores = append(f.restores, in)
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	if _, ok := f.snapshots[aws.ToString(in.DBSnapshotIdentifier)]; !ok {
		return nil, notFound("DBSnapshotNotFound")
	}
	f.instances[id] = rdstypes.DBInstance{DBInstanceIdentifier: aws.String(id), DBInstanceStatus: aws.String("available")}
	return &rdsv2.RestoreDBInstanceFromDBSnapshotOutput{}, nil
}

// fakeRedshift keeps cluster and snapshot states. A cluster missing from
// clusters is reported as not found. deleteErr fails every delete.
type fakeRedshift struct {
	calls     []string
	clusters  map[string]string
	snapshots map[string]string
	retention int32
	deleteErr error
}

func newFakeRedshift() *fakeRedshift {
	return &fakeRedshift{clusters: map[string]string{}, snapshots: map[string]string{}}
}

func (f *fakeRedshift) DescribeClusters(_ context.Context, in *redshiftv2.DescribeClustersInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClustersOutput, error) {
	id := aws.ToString(in.ClusterIdentifier)
	status, ok := f.clusters[id]
	if !ok {
		return nil, notFound("ClusterNotFound")
	}
	return &redshiftv2.DescribeClustersOutput{Clusters: []rstypes.Cluster{{
		ClusterIdentifier: aws.String(id),
		ClusterStatus:     aws.String(status),
		NodeType:          aws.String("ra3.xlplus"),
		NumberOfNodes:     aws.Int32(2),
	}}}, nil
}

func (f *fakeRedshift) DescribeClusterSnapshots(_ context.Context, in *redshiftv2.DescribeClusterSnapshotsInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClusterSnapshotsOutput, error) {
	id := aws.ToString(in.SnapshotIdentifier)
	status, ok := f.snapshots[id]
	if !ok {
		return nil, notFound("ClusterSnapshotNotFound")
	}
	return &redshiftv2.DescribeClusterSnapshotsOutput{Snapshots: []rstypes.Snapshot{{
		SnapshotIdentifier: aws.String(id),
		Status:             aws.String(status),
	}}}, nil
}

func (f *fakeRedshift) PauseCluster(_ context.Context, in *redshiftv2.PauseClusterInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.PauseClusterOutput, error) {
	id := aws.ToString(in.ClusterIdentifier)
	f.calls = append(f.calls, "PauseCluster "+id)
	f.clusters[id] = "paused"
	return &redshiftv2.PauseClusterOutput{}, nil
}

func (f *fakeRedshift) ResumeCluster(_ context.Context, in *redshiftv2.ResumeClusterInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.ResumeClusterOutput, error) {
	id := aws.ToString(in.ClusterIdentifier)
	f.calls = append(f.calls, "ResumeCluster "+id)
	f.clusters[id] = "available"
	return &redshiftv2.ResumeClusterOutput{}, nil
}

func (f *fakeRedshift) CreateClusterSnapshot(_ context.Context, in *redshiftv2.CreateClusterSnapshotInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.CreateClusterSnapshotOutput, error) {
	id := aws.ToString(in.SnapshotIdentifier)
	f.calls = append(f.calls, "CreateClusterSnapshot "+id)
	if _, ok := f.snapshots[id]; ok {
		return nil, &smithy.GenericAPIError{Code: "ClusterSnapshotAlreadyExists", Message: id}
	}
	f.snapshots[id] = "available"
	return &redshiftv2.CreateClusterSnapshotOutput{}, nil
}

func (f *fakeRedshift) ModifyClusterSnapshot(_ context.Context, in *redshiftv2.ModifyClusterSnapshotInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.ModifyClusterSnapshotOutput, error) {
	f.calls = append(f.calls, "ModifyClusterSnapshot "+aws.ToString(in.SnapshotIdentifier))
	f.retention = aws.ToInt32(in.ManualSnapshotRetentionPeriod)
	return &redshiftv2.ModifyClusterSnapshotOutput{}, nil
}

func (f *fakeRedshift) DeleteCluster(_ context.Context, in *redshiftv2.DeleteClusterInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DeleteClusterOutput, error) {
	id := aws.ToString(in.ClusterIdentifier)
	f.calls = append(f.calls, "DeleteCluster "+id)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if _, ok := f.clusters[id]; !ok {
		return nil, notFound("ClusterNotFound")
	}
	if !aws.ToBool(in.SkipFinalClusterSnapshot) {
		return nil, errors.New("final snapshot expected to be skipped")
	}
	delete(f.clusters, id)
	return &redshiftv2.DeleteClusterOutput{}, nil
}

// fakeDataSync starts executions that report status.
type fakeDataSync struct {
	started []string
	status  dstypes.TaskExecutionStatus
}

func (f *fakeDataSync) StartTaskExecution(_ context.Context, in *datasyncv2.StartTaskExecutionInput, _ ...func(*datasyncv2.Options)) (*datasyncv2.StartTaskExecutionOutput, error) {
	f.started = append(f.started, aws.ToString(in.TaskArn))
	return &datasyncv2.StartTaskExecutionOutput{
		TaskExecutionArn: aws.String(fmt.Sprintf("%s/execution/exec-%d", aws.ToString(in.TaskArn), len(f.started))),
	}, nil
}

func (f *fakeDataSync) DescribeTaskExecution(_ context.Context, in *datasyncv2.DescribeTaskExecutionInput, _ ...func(*datasyncv2.Options)) (*datasyncv2.DescribeTaskExecutionOutput, error) {
	return &datasyncv2.DescribeTaskExecutionOutput{TaskExecutionArn: in.TaskExecutionArn, Status: f.status}, nil
}

type fakeSTS struct {
	err error
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *stsv2.GetCallerIdentityInput, ...func(*stsv2.Options)) (*stsv2.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stsv2.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/ops"),
	}, nil
}
